package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"listhub_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// ListingDraftRepository 本地草稿记录仓储接口
type ListingDraftRepository interface {
	Create(ctx context.Context, draft *model.ListingDraft) error
	GetByToken(ctx context.Context, token string) (*model.ListingDraft, error)
	GetByListingID(ctx context.Context, listingID int64) (*model.ListingDraft, error)
	Update(ctx context.Context, draft *model.ListingDraft) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter DraftFilter) ([]model.ListingDraft, int64, error)

	// 过期清理相关
	FindStale(ctx context.Context, before time.Time) ([]*model.ListingDraft, error)
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

// DraftFilter 草稿过滤条件
type DraftFilter struct {
	SellerID int64
	Kind     string
	Status   string
	Page     int
	PageSize int
}

// ==================== 仓储实现 ====================

type listingDraftRepo struct {
	db *gorm.DB
}

// NewListingDraftRepository 创建草稿仓储
func NewListingDraftRepository(db *gorm.DB) ListingDraftRepository {
	return &listingDraftRepo{db: db}
}

func (r *listingDraftRepo) Create(ctx context.Context, draft *model.ListingDraft) error {
	return r.db.WithContext(ctx).Create(draft).Error
}

func (r *listingDraftRepo) GetByToken(ctx context.Context, token string) (*model.ListingDraft, error) {
	var draft model.ListingDraft
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&draft).Error; err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *listingDraftRepo) GetByListingID(ctx context.Context, listingID int64) (*model.ListingDraft, error) {
	var draft model.ListingDraft
	if err := r.db.WithContext(ctx).Where("listing_id = ?", listingID).First(&draft).Error; err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *listingDraftRepo) Update(ctx context.Context, draft *model.ListingDraft) error {
	return r.db.WithContext(ctx).Save(draft).Error
}

func (r *listingDraftRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.ListingDraft{}).Where("id = ?", id).Updates(fields).Error
}

func (r *listingDraftRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.ListingDraft{}, id).Error
}

func (r *listingDraftRepo) List(ctx context.Context, filter DraftFilter) ([]model.ListingDraft, int64, error) {
	var drafts []model.ListingDraft
	var total int64

	query := r.db.WithContext(ctx).Model(&model.ListingDraft{})

	if filter.SellerID > 0 {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize
	if err := query.Order("updated_at DESC").Limit(filter.PageSize).Offset(offset).Find(&drafts).Error; err != nil {
		return nil, 0, err
	}

	return drafts, total, nil
}

// FindStale 查找超过保留期的未提交草稿
func (r *listingDraftRepo) FindStale(ctx context.Context, before time.Time) ([]*model.ListingDraft, error) {
	var drafts []*model.ListingDraft
	err := r.db.WithContext(ctx).
		Where("updated_at < ? AND status = ?", before, model.ListingStatusDraft).
		Find(&drafts).Error
	return drafts, err
}

// DeleteStale 批量删除过期草稿
func (r *listingDraftRepo) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("updated_at < ? AND status = ?", before, model.ListingStatusDraft).
		Delete(&model.ListingDraft{})
	return result.RowsAffected, result.Error
}
