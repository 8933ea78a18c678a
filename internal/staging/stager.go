package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"listhub_v1_202608/internal/model"
)

// ==================== 错误定义 ====================

// ErrStagedDataCorrupted 暂存数据损坏：重新解析失败时丢弃并引导回第一步
var ErrStagedDataCorrupted = errors.New("暂存数据已损坏")

// ==================== 暂存器 ====================

// Stager 向导步骤数据的暂存区
// 键格式 edit-<kind>-<id>，值为 JSON 序列化的部分刊登载荷
// 以顶层字段为粒度做浅合并
type Stager struct {
	store Store
	ttl   time.Duration
	log   *zap.Logger
}

// NewStager 创建暂存器
func NewStager(store Store, ttl time.Duration, log *zap.Logger) *Stager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Stager{store: store, ttl: ttl, log: log}
}

// Key 暂存键：edit-<kind>-<id>
func Key(kind, id string) string {
	return fmt.Sprintf("edit-%s-%s", kind, id)
}

// StageStep 写入一个步骤校验通过后的数据，与已有暂存做浅合并
// 存储不可用时静默降级：只记日志不报错，提交仍可走表单现值
func (s *Stager) StageStep(ctx context.Context, kind, id string, stepData map[string]json.RawMessage) error {
	key := Key(kind, id)

	merged := make(map[string]json.RawMessage)
	if raw, ok, err := s.store.Get(ctx, key); err != nil {
		s.log.Warn("读取暂存失败，放弃合并旧数据", zap.String("key", key), zap.Error(err))
	} else if ok {
		if err := json.Unmarshal([]byte(raw), &merged); err != nil {
			// 旧暂存已损坏，直接覆盖
			s.log.Warn("旧暂存数据损坏，已丢弃", zap.String("key", key))
			merged = make(map[string]json.RawMessage)
		}
	}

	for k, v := range stepData {
		merged[k] = v
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return err
	}

	if err := s.store.Set(ctx, key, string(data), s.ttl); err != nil {
		s.log.Warn("写入暂存失败，已降级为不暂存", zap.String("key", key), zap.Error(err))
		return nil
	}
	return nil
}

// Load 读取暂存的部分载荷
// 返回顶层字段原文，供合并用；解析失败视为损坏：删除并返回 ErrStagedDataCorrupted
func (s *Stager) Load(ctx context.Context, kind, id string) (map[string]json.RawMessage, error) {
	key := Key(kind, id)

	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.log.Warn("读取暂存失败", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	if !ok {
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		_ = s.store.Delete(ctx, key)
		return nil, ErrStagedDataCorrupted
	}

	// 再按 schema 结构解析一次，字段内容不合法同样视为损坏
	if err := json.Unmarshal([]byte(raw), &model.ListingPayload{}); err != nil {
		_ = s.store.Delete(ctx, key)
		return nil, ErrStagedDataCorrupted
	}

	return fields, nil
}

// Clear 清除暂存：提交成功或用户放弃编辑时调用
func (s *Stager) Clear(ctx context.Context, kind, id string) error {
	return s.store.Delete(ctx, Key(kind, id))
}

// ==================== 合并 ====================

// Merge 三方数据调和：服务端数据为基底，暂存字段覆盖重叠部分
func Merge(base model.ListingPayload, staged map[string]json.RawMessage) (model.ListingPayload, error) {
	if len(staged) == 0 {
		return base, nil
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return base, err
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(baseJSON, &fields); err != nil {
		return base, err
	}

	for k, v := range staged {
		fields[k] = v
	}

	mergedJSON, err := json.Marshal(fields)
	if err != nil {
		return base, err
	}

	var merged model.ListingPayload
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return base, ErrStagedDataCorrupted
	}
	return merged, nil
}
