package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"listhub_v1_202608/internal/model"
	"listhub_v1_202608/internal/repository"
	"listhub_v1_202608/internal/schema"
	"listhub_v1_202608/internal/staging"
)

// ==================== 文件引用折叠 ====================

// CollapseFileRefs 递归遍历载荷，把形如文件引用的对象（同时含 id 和 path）
// 替换成裸 ID，归一化为后端期望的形状
// 幂等：已折叠（只剩 ID）的节点再跑一遍结果不变
func CollapseFileRefs(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		if id, hasID := val["id"]; hasID {
			if _, hasPath := val["path"]; hasPath {
				return id
			}
		}
		for k, item := range val {
			val[k] = CollapseFileRefs(item)
		}
		return val
	case []interface{}:
		for i, item := range val {
			val[i] = CollapseFileRefs(item)
		}
		return val
	}
	return v
}

// ==================== 提交服务 ====================

// SubmissionService 最后一步的组装与提交
type SubmissionService struct {
	drafts repository.ListingDraftRepository
	stager *staging.Stager
	api    ListingAPI
	cache  staging.Store
	log    *zap.Logger
}

// NewSubmissionService 创建提交服务
func NewSubmissionService(
	drafts repository.ListingDraftRepository,
	stager *staging.Stager,
	api ListingAPI,
	cache staging.Store,
	log *zap.Logger,
) *SubmissionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SubmissionService{drafts: drafts, stager: stager, api: api, cache: cache, log: log}
}

// SubmitResult 提交结果
type SubmitResult struct {
	ListingID   int64  `json:"listingId"`
	Status      string `json:"status"`
	Destination string `json:"destination"` // 提交后的去向
}

// Submit 定稿提交：合并全部暂存 + 最后一步表单数据，转换后发往上游
// 成功后清暂存、失效缓存；失败时暂存原样保留，停在当前步骤
func (s *SubmissionService) Submit(ctx context.Context, sellerID int64, plan, kind, token string, finalRaw json.RawMessage) (*SubmitResult, error) {
	draft, err := s.drafts.GetByToken(ctx, token)
	if err != nil {
		return nil, ErrDraftNotFound
	}
	if draft.SellerID != sellerID {
		return nil, ErrNotOwner
	}
	if err := draft.CanFinalize(); err != nil {
		return nil, err
	}

	// 1. 合并：草稿记录基底 <- 暂存 <- 最后一步表单
	merged := draft.Payload.Data()
	if staged, loadErr := s.stager.Load(ctx, kind, token); loadErr == nil && len(staged) > 0 {
		if m, mergeErr := staging.Merge(merged, staged); mergeErr == nil {
			merged = m
		}
	}
	if len(finalRaw) > 0 {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(finalRaw, &fields); err != nil {
			return nil, fmt.Errorf("解析提交数据失败: %w", err)
		}
		if merged, err = staging.Merge(merged, fields); err != nil {
			return nil, err
		}
	}

	// 2. 全量校验，拦住一切没走完的步骤
	var steps []string
	for _, step := range StepsFor(kind) {
		steps = append(steps, string(step))
	}
	if errs := schema.ValidateAll(kind, steps, &merged); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	if errs := checkQuota(plan, &merged); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	// 3. 折叠文件引用，归一化载荷
	payload, err := normalizePayload(merged)
	if err != nil {
		return nil, err
	}

	// 4. 新刊登走创建，已有刊登走更新
	var result *upstreamResult
	if draft.ListingID > 0 {
		r, err := s.api.UpdateListing(ctx, kind, draft.ListingID, payload)
		if err != nil {
			return nil, err
		}
		result = &upstreamResult{ID: r.ID, Status: r.Status}
	} else {
		r, err := s.api.CreateListing(ctx, kind, payload)
		if err != nil {
			return nil, err
		}
		result = &upstreamResult{ID: r.ID, Status: r.Status}
	}

	// 5. 收尾：状态流转、清暂存、失效缓存
	draft.MarkSubmitted(result.ID)
	if result.Status != "" {
		draft.Status = result.Status
	}
	draft.Payload = datatypes.NewJSONType(merged)
	if err := s.drafts.Update(ctx, draft); err != nil {
		s.log.Error("提交成功但本地草稿状态更新失败", zap.String("token", token), zap.Error(err))
	}

	if err := s.stager.Clear(ctx, kind, token); err != nil {
		s.log.Warn("清除暂存失败", zap.String("token", token), zap.Error(err))
	}
	s.invalidateListing(ctx, kind, result.ID)

	return &SubmitResult{
		ListingID:   result.ID,
		Status:      draft.Status,
		Destination: "/listings",
	}, nil
}

type upstreamResult struct {
	ID     int64
	Status string
}

// normalizePayload 载荷 -> 通用 map -> 折叠文件引用
func normalizePayload(p model.ListingPayload) (map[string]interface{}, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	normalized := CollapseFileRefs(generic)
	out, ok := normalized.(map[string]interface{})
	if !ok {
		return nil, errors.New("载荷归一化失败")
	}
	return out, nil
}

// invalidateListing 失效刊登查询缓存
func (s *SubmissionService) invalidateListing(ctx context.Context, kind string, id int64) {
	if s.cache == nil || id <= 0 {
		return
	}
	key := fmt.Sprintf("listing:%s:%d", kind, id)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.Warn("失效刊登缓存失败", zap.String("key", key), zap.Error(err))
	}
}
