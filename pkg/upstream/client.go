package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ==================== 配置 ====================

// Config 上游市场后端配置
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ==================== 客户端 ====================

// Client 市场后端 REST 客户端
// 路径约定见后端 HTTP 契约：/listing/draft/{id}、/listing/{kind}/{id} 等
type Client struct {
	http *resty.Client
}

// NewClient 创建上游客户端
func NewClient(cfg *Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", cfg.APIKey)

	return &Client{http: http}
}

// call 统一发起请求并拆信封
func (c *Client) call(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("请求上游失败: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		// 信封都解不出来，按 HTTP 状态兜底
		if resp.IsError() {
			return &APIError{StatusCode: resp.StatusCode()}
		}
		return fmt.Errorf("解析上游响应失败: %w", err)
	}

	if resp.IsError() || env.Code != 0 {
		return &APIError{StatusCode: resp.StatusCode(), Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("解析上游数据失败: %w", err)
		}
	}
	return nil
}

// ==================== 草稿 ====================

// GetDraft 拉取上游草稿
func (c *Client) GetDraft(ctx context.Context, id int64) (*ListingRecord, error) {
	var rec ListingRecord
	if err := c.call(ctx, "GET", fmt.Sprintf("/listing/draft/%d", id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveDraft 持久化一个草稿步骤（服务端暂存草稿策略）
func (c *Client) SaveDraft(ctx context.Context, id int64, payload interface{}) error {
	return c.call(ctx, "PUT", fmt.Sprintf("/listing/draft/%d", id), payload, nil)
}

// ==================== 刊登 ====================

// GetListing 拉取已发布刊登（编辑模式预填充）
func (c *Client) GetListing(ctx context.Context, kind string, id int64) (*ListingRecord, error) {
	var rec ListingRecord
	if err := c.call(ctx, "GET", fmt.Sprintf("/listing/%s/%d", kind, id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateListing 创建新刊登
func (c *Client) CreateListing(ctx context.Context, kind string, payload interface{}) (*SaveResult, error) {
	var result SaveResult
	if err := c.call(ctx, "POST", fmt.Sprintf("/listing/%s", kind), payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateListing 定稿/更新已有刊登
func (c *Client) UpdateListing(ctx context.Context, kind string, id int64, payload interface{}) (*SaveResult, error) {
	var result SaveResult
	if err := c.call(ctx, "PUT", fmt.Sprintf("/listing/%s/%d", kind, id), payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CloneListing 克隆已有刊登
func (c *Client) CloneListing(ctx context.Context, kind string, id int64) (*SaveResult, error) {
	var result SaveResult
	if err := c.call(ctx, "PUT", fmt.Sprintf("/listing/%s/clone/%d", kind, id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ==================== 分类 ====================

// GetCategories 拉取指定类型的分类树
func (c *Client) GetCategories(ctx context.Context, kind string) ([]Category, error) {
	var categories []Category
	if err := c.call(ctx, "GET", fmt.Sprintf("/category/%s", kind), nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}
