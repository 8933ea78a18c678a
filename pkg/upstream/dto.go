package upstream

import (
	"encoding/json"
	"fmt"
)

// ==================== 响应信封 ====================

// envelope 市场后端统一响应格式
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ==================== 错误 ====================

// APIError 上游返回的业务错误，携带服务端消息供前端展示
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("上游服务错误 (HTTP %d)", e.StatusCode)
}

// ==================== 数据结构 ====================

// ListingRecord 上游刊登/草稿记录
type ListingRecord struct {
	ID      int64           `json:"id"`
	Kind    string          `json:"kind"`
	Status  string          `json:"status"`
	Payload json.RawMessage `json:"payload"`
}

// SaveResult 创建/更新结果
type SaveResult struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// Category 分类树节点
type Category struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	Children []Category `json:"children,omitempty"`
}
