package service

import (
	"context"
	"sync"

	"listhub_v1_202608/internal/model"
	"listhub_v1_202608/pkg/upstream"
)

// ==================== 分类服务 ====================

// CategoryService 分类浏览器的数据源
type CategoryService struct {
	api ListingAPI
}

// NewCategoryService 创建分类服务
func NewCategoryService(api ListingAPI) *CategoryService {
	return &CategoryService{api: api}
}

// CategoryTabs 两类分类树，分别填充独立的 UI 标签页
type CategoryTabs struct {
	Product []upstream.Category `json:"product"`
	Service []upstream.Category `json:"service"`
}

// GetAll 并发拉取商品/服务两棵分类树后合并返回
// 两次请求互不依赖，完成顺序无关紧要
func (s *CategoryService) GetAll(ctx context.Context) (*CategoryTabs, error) {
	var (
		wg         sync.WaitGroup
		product    []upstream.Category
		service    []upstream.Category
		productErr error
		serviceErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		product, productErr = s.api.GetCategories(ctx, model.ListingKindProduct)
	}()
	go func() {
		defer wg.Done()
		service, serviceErr = s.api.GetCategories(ctx, model.ListingKindService)
	}()
	wg.Wait()

	if productErr != nil {
		return nil, productErr
	}
	if serviceErr != nil {
		return nil, serviceErr
	}

	return &CategoryTabs{Product: product, Service: service}, nil
}
