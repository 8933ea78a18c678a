package model

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ==================== 常量定义 ====================

const (
	// 刊登类型
	ListingKindProduct = "product"
	ListingKindService = "service"

	// 刊登状态
	ListingStatusDraft       = "DRAFT"
	ListingStatusUnderReview = "UNDER_REVIEW"
	ListingStatusActive      = "ACTIVE"
	ListingStatusInactive    = "INACTIVE"

	// 可见性
	VisibilityPublic  = "PUBLIC"
	VisibilityPrivate = "PRIVATE"

	// 图册条目类型（二选一，互斥）
	CatalogEntryMedia = "MEDIA"
	CatalogEntryURL   = "URL"

	// 计价单位
	PriceUnitFixed   = "FIXED"
	PriceUnitPerHour = "PER_HOUR"
	PriceUnitPerDay  = "PER_DAY"
	PriceUnitPerItem = "PER_ITEM"
)

// ValidKind 校验刊登类型
func ValidKind(kind string) bool {
	return kind == ListingKindProduct || kind == ListingKindService
}

// ValidPriceUnit 校验计价单位
func ValidPriceUnit(unit string) bool {
	switch unit {
	case PriceUnitFixed, PriceUnitPerHour, PriceUnitPerDay, PriceUnitPerItem:
		return true
	}
	return false
}

// ==================== 值对象 ====================

// FileReference 已上传文件的引用（只存引用，不存二进制内容）
// 提交时会被折叠成裸 ID，见 submission_svc
type FileReference struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	MediaType string `json:"mediaType,omitempty"`
	Purpose   string `json:"purpose,omitempty"`
	Name      string `json:"name,omitempty"`
	Size      int64  `json:"size,omitempty"`
}

// Valid 引用必须同时有 ID 和路径
func (f *FileReference) Valid() bool {
	return f != nil && f.ID > 0 && f.Path != ""
}

// RegionSelection 国家→省→市 的层级选择
type RegionSelection struct {
	Country string   `json:"country"`
	States  []string `json:"states,omitempty"`
	Cities  []string `json:"cities,omitempty"`
}

// DeliveryConfig 配送/服务范围配置
// 三个渠道至少选一个才允许定稿（交叉校验，不在类型层面强制）
type DeliveryConfig struct {
	Nationally      *RegionSelection  `json:"nationally,omitempty"`
	Internationally []RegionSelection `json:"internationally,omitempty"`
	Online          []RegionSelection `json:"online,omitempty"`
}

// HasChannel 是否至少选择了一个渠道
func (d *DeliveryConfig) HasChannel() bool {
	if d == nil {
		return false
	}
	return d.Nationally != nil || len(d.Internationally) > 0 || len(d.Online) > 0
}

// CatalogEntry 图册条目：MEDIA（上传文件）或 URL（外部链接），互斥
type CatalogEntry struct {
	Type string         `json:"type"`
	File *FileReference `json:"file,omitempty"`
	URL  string         `json:"url,omitempty"`
}

// Valid 校验条目的互斥约束
func (e *CatalogEntry) Valid() bool {
	switch e.Type {
	case CatalogEntryMedia:
		return e.File.Valid() && e.URL == ""
	case CatalogEntryURL:
		return e.URL != "" && e.File == nil
	}
	return false
}

// FAQ 常见问答
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FeaturedProject 精选项目（仅服务类刊登）
type FeaturedProject struct {
	Name   string          `json:"name"`
	Images []FileReference `json:"images"`
}

// Price 价格：金额（分）+ 计价单位
type Price struct {
	Amount int64  `json:"amount"`
	Unit   string `json:"unit"`
}

// ==================== 向导工作态 ====================

// ListingPayload 向导各步骤字段的并集，全部可选
// 暂存区以它的顶层字段为粒度做浅合并
type ListingPayload struct {
	Title            string            `json:"title,omitempty"`
	Visibility       string            `json:"visibility,omitempty"`
	CategoryID       int64             `json:"categoryId,omitempty"`
	SubcategoryID    int64             `json:"subcategoryId,omitempty"`
	Delivery         *DeliveryConfig   `json:"delivery,omitempty"`
	Description      string            `json:"description,omitempty"`
	MainImages       []FileReference   `json:"mainImages,omitempty"`
	Highlights       []string          `json:"highlights,omitempty"`
	Specialties      []string          `json:"specialties,omitempty"`
	PaymentMethods   []string          `json:"paymentMethods,omitempty"`
	Price            *Price            `json:"price,omitempty"`
	Catalog          []CatalogEntry    `json:"catalog,omitempty"`
	FAQs             []FAQ             `json:"faqs,omitempty"`
	FeaturedProjects []FeaturedProject `json:"featuredProjects,omitempty"`
}

// ==================== 数据库模型 ====================

// ListingDraft 本地草稿记录（服务端持久化的草稿策略）
// 未在上游创建的刊登以客户端 Token 定位，ListingID 为 0
type ListingDraft struct {
	ID        int64          `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time      `gorm:"index"`
	UpdatedAt time.Time      `gorm:"index"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Token     string `gorm:"size:64;uniqueIndex;not null;comment:客户端草稿令牌"`
	SellerID  int64  `gorm:"index;not null;comment:卖家ID"`
	Kind      string `gorm:"size:16;index;not null;comment:刊登类型"`
	ListingID int64  `gorm:"index;comment:上游刊登ID，0表示未创建"`
	Status    string `gorm:"size:32;index;default:DRAFT;comment:状态"`

	Payload datatypes.JSONType[ListingPayload] `gorm:"comment:草稿工作态"`
}

func (*ListingDraft) TableName() string {
	return "listing_drafts"
}

// IsPublished 是否已在上游发布过（编辑模式走上游数据）
func (d *ListingDraft) IsPublished() bool {
	return d.ListingID > 0 && d.Status != ListingStatusDraft
}

// CanFinalize 定稿前的状态检查
func (d *ListingDraft) CanFinalize() error {
	if d.Status != ListingStatusDraft && d.Status != ListingStatusActive {
		return errors.New("当前状态不允许提交")
	}
	return nil
}

// MarkSubmitted 标记为已提交（状态流转 DRAFT -> UNDER_REVIEW）
func (d *ListingDraft) MarkSubmitted(listingID int64) {
	d.ListingID = listingID
	d.Status = ListingStatusUnderReview
}
