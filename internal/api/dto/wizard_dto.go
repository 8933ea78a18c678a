package dto

import (
	"encoding/json"

	"listhub_v1_202608/internal/schema"
	"listhub_v1_202608/internal/service"
)

// ==================== 请求 DTO ====================

// OpenSessionRequest 进入向导请求
// listing_id > 0 表示编辑已发布刊登，预填充服务端数据
type OpenSessionRequest struct {
	ListingID int64 `json:"listing_id"`
}

// SubmitStepRequest 步骤提交请求：该步骤的表单切片，原文透传给校验层
type SubmitStepRequest struct {
	Data json.RawMessage `json:"data" binding:"required"`
}

// SubmitRequest 定稿提交请求：最后一步的表单数据（可为空）
type SubmitRequest struct {
	Data json.RawMessage `json:"data"`
}

// ListDraftsRequest 草稿列表请求
type ListDraftsRequest struct {
	Kind     string `form:"kind"`
	Status   string `form:"status"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
}

// ==================== 响应 DTO ====================

// StateResponse 向导状态响应
type StateResponse struct {
	Kind            string          `json:"kind"`
	Step            string          `json:"step"`
	IsEdit          bool            `json:"isEdit"`
	Steps           []string        `json:"steps"`
	Payload         json.RawMessage `json:"payload"`
	StagedDiscarded bool            `json:"stagedDiscarded"`
}

// ValidationFailureResponse 校验失败响应
// First 是确定性的首错误，前端据此滚动定位
type ValidationFailureResponse struct {
	Errors []schema.FieldError `json:"errors"`
	First  *schema.FieldError  `json:"first"`
}

// NewValidationFailure 从字段错误表构造响应
func NewValidationFailure(errs schema.FieldErrors) *ValidationFailureResponse {
	return &ValidationFailureResponse{
		Errors: errs,
		First:  errs.First(),
	}
}

// StepsOf 步骤序列转字符串切片
func StepsOf(steps []service.Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = string(s)
	}
	return out
}
