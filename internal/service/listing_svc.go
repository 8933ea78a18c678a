package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"listhub_v1_202608/internal/model"
	"listhub_v1_202608/internal/repository"
	"listhub_v1_202608/internal/staging"
	"listhub_v1_202608/pkg/upstream"
)

// 刊登查询缓存有效期
const listingCacheTTL = time.Hour

// ==================== 刊登服务 ====================

// ListingService 草稿列表、刊登查询（带缓存）与克隆
type ListingService struct {
	drafts repository.ListingDraftRepository
	api    ListingAPI
	cache  staging.Store
	log    *zap.Logger
}

// NewListingService 创建刊登服务
func NewListingService(
	drafts repository.ListingDraftRepository,
	api ListingAPI,
	cache staging.Store,
	log *zap.Logger,
) *ListingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ListingService{drafts: drafts, api: api, cache: cache, log: log}
}

// DraftSummary 草稿列表项
type DraftSummary struct {
	Token     string `json:"token"`
	Kind      string `json:"kind"`
	ListingID int64  `json:"listingId,omitempty"`
	Status    string `json:"status"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updatedAt"`
}

// ListDrafts 卖家的草稿列表
func (s *ListingService) ListDrafts(ctx context.Context, sellerID int64, kind, status string, page, pageSize int) ([]DraftSummary, int64, error) {
	drafts, total, err := s.drafts.List(ctx, repository.DraftFilter{
		SellerID: sellerID,
		Kind:     kind,
		Status:   status,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, 0, err
	}

	result := make([]DraftSummary, len(drafts))
	for i, d := range drafts {
		payload := d.Payload.Data()
		result[i] = DraftSummary{
			Token:     d.Token,
			Kind:      d.Kind,
			ListingID: d.ListingID,
			Status:    d.Status,
			Title:     payload.Title,
			UpdatedAt: d.UpdatedAt.Format(time.RFC3339),
		}
	}
	return result, total, nil
}

// GetListing 查询已发布刊登，命中缓存直接返回
func (s *ListingService) GetListing(ctx context.Context, kind string, id int64) (*upstream.ListingRecord, error) {
	if !model.ValidKind(kind) {
		return nil, fmt.Errorf("无效的刊登类型: %s", kind)
	}

	key := fmt.Sprintf("listing:%s:%d", kind, id)
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var rec upstream.ListingRecord
			if err := json.Unmarshal([]byte(raw), &rec); err == nil {
				return &rec, nil
			}
			// 缓存内容坏了就当没命中
			_ = s.cache.Delete(ctx, key)
		}
	}

	rec, err := s.api.GetListing(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(rec); err == nil {
			if err := s.cache.Set(ctx, key, string(data), listingCacheTTL); err != nil {
				s.log.Warn("写入刊登缓存失败", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return rec, nil
}

// Clone 克隆已有刊登
func (s *ListingService) Clone(ctx context.Context, kind string, id int64) (*upstream.SaveResult, error) {
	if !model.ValidKind(kind) {
		return nil, fmt.Errorf("无效的刊登类型: %s", kind)
	}
	return s.api.CloneListing(ctx, kind, id)
}
