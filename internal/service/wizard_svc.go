package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"listhub_v1_202608/internal/model"
	"listhub_v1_202608/internal/repository"
	"listhub_v1_202608/internal/schema"
	"listhub_v1_202608/internal/staging"
	"listhub_v1_202608/pkg/upstream"
)

// ==================== 外部服务依赖 ====================

// ListingAPI 上游市场后端接口，生产实现为 pkg/upstream.Client
type ListingAPI interface {
	GetListing(ctx context.Context, kind string, id int64) (*upstream.ListingRecord, error)
	SaveDraft(ctx context.Context, id int64, payload interface{}) error
	CreateListing(ctx context.Context, kind string, payload interface{}) (*upstream.SaveResult, error)
	UpdateListing(ctx context.Context, kind string, id int64, payload interface{}) (*upstream.SaveResult, error)
	CloneListing(ctx context.Context, kind string, id int64) (*upstream.SaveResult, error)
	GetCategories(ctx context.Context, kind string) ([]upstream.Category, error)
}

// ==================== 步骤状态机 ====================

// Step 向导步骤
type Step string

const (
	StepMainInfo       Step = "main-info"
	StepAdditionalInfo Step = "additional-info"
	StepFeatured       Step = "featured"
)

// 按刊登类型的步骤表，严格线性
var stepTable = map[string][]Step{
	model.ListingKindProduct: {StepMainInfo, StepAdditionalInfo},
	model.ListingKindService: {StepMainInfo, StepAdditionalInfo, StepFeatured},
}

// StepsFor 返回指定类型的步骤序列
func StepsFor(kind string) []Step {
	return stepTable[kind]
}

// stepIndex 步骤在序列中的下标，-1 表示不属于该类型
func stepIndex(kind string, step Step) int {
	for i, s := range StepsFor(kind) {
		if s == step {
			return i
		}
	}
	return -1
}

// State 向导显式状态
// URL 查询参数只是它的一种序列化，不是状态本身
type State struct {
	Kind   string `json:"kind"`
	Step   Step   `json:"step"`
	IsEdit bool   `json:"isEdit"`
}

// ParseState 从查询参数还原状态；step 为空时落在第一步
func ParseState(kind, stepParam string, isEdit bool) (State, error) {
	if !model.ValidKind(kind) {
		return State{}, fmt.Errorf("无效的刊登类型: %s", kind)
	}

	step := Step(stepParam)
	if stepParam == "" {
		step = StepsFor(kind)[0]
	} else if stepIndex(kind, step) < 0 {
		return State{}, fmt.Errorf("类型 %s 不存在步骤 %s", kind, stepParam)
	}

	return State{Kind: kind, Step: step, IsEdit: isEdit}, nil
}

// Next 下一步；最后一步返回 false
func (s State) Next() (Step, bool) {
	steps := StepsFor(s.Kind)
	idx := stepIndex(s.Kind, s.Step)
	if idx < 0 || idx+1 >= len(steps) {
		return "", false
	}
	return steps[idx+1], true
}

// Prev 上一步；第一步返回 false。回退永远允许，不需要重新校验
func (s State) Prev() (Step, bool) {
	idx := stepIndex(s.Kind, s.Step)
	if idx <= 0 {
		return "", false
	}
	return StepsFor(s.Kind)[idx-1], true
}

// IsLast 是否最后一步
func (s State) IsLast() bool {
	steps := StepsFor(s.Kind)
	return stepIndex(s.Kind, s.Step) == len(steps)-1
}

// furthestStep 当前数据能到达的最远步骤下标
// 前面任一步骤未通过校验即止步于该步骤，禁止跳步
func furthestStep(kind string, p *model.ListingPayload) int {
	steps := StepsFor(kind)
	for i, step := range steps {
		if errs := schema.ValidateStep(kind, string(step), p); len(errs) > 0 {
			return i
		}
	}
	return len(steps) - 1
}

// ==================== 错误定义 ====================

var (
	ErrDraftNotFound      = errors.New("草稿不存在")
	ErrNotOwner           = errors.New("无权操作该草稿")
	ErrStepLocked         = errors.New("请先完成前面的步骤")
	ErrDiscardNeedConfirm = errors.New("放弃编辑需要确认")
)

// ValidationError 步骤校验失败，携带完整字段错误表
type ValidationError struct {
	Fields schema.FieldErrors
}

func (e *ValidationError) Error() string {
	return e.Fields.Error()
}

// ==================== 向导服务 ====================

// WizardService 向导步骤控制器
// 持有当前状态的唯一真相：步骤表 + 本地草稿记录 + 暂存区
type WizardService struct {
	drafts repository.ListingDraftRepository
	stager *staging.Stager
	api    ListingAPI
	log    *zap.Logger
}

// NewWizardService 创建向导服务
func NewWizardService(
	drafts repository.ListingDraftRepository,
	stager *staging.Stager,
	api ListingAPI,
	log *zap.Logger,
) *WizardService {
	if log == nil {
		log = zap.NewNop()
	}
	return &WizardService{drafts: drafts, stager: stager, api: api, log: log}
}

// SessionResult 会话创建结果
type SessionResult struct {
	Token     string `json:"token"`
	Kind      string `json:"kind"`
	Step      Step   `json:"step"`
	ListingID int64  `json:"listingId,omitempty"`
}

// OpenSession 进入向导：新建空草稿，或为已发布刊登打开编辑会话
// listingID > 0 时从上游拉取当前已发布数据做预填充
func (s *WizardService) OpenSession(ctx context.Context, sellerID int64, kind string, listingID int64) (*SessionResult, error) {
	if !model.ValidKind(kind) {
		return nil, fmt.Errorf("无效的刊登类型: %s", kind)
	}

	draft := &model.ListingDraft{
		Token:    uuid.NewString(),
		SellerID: sellerID,
		Kind:     kind,
		Status:   model.ListingStatusDraft,
	}

	if listingID > 0 {
		// 编辑模式：已有会话直接复用，避免同一刊登出现多份草稿
		if existing, err := s.drafts.GetByListingID(ctx, listingID); err == nil {
			if existing.SellerID != sellerID {
				return nil, ErrNotOwner
			}
			return &SessionResult{
				Token:     existing.Token,
				Kind:      existing.Kind,
				Step:      StepsFor(existing.Kind)[0],
				ListingID: existing.ListingID,
			}, nil
		}

		record, err := s.api.GetListing(ctx, kind, listingID)
		if err != nil {
			return nil, fmt.Errorf("拉取刊登失败: %w", err)
		}

		var payload model.ListingPayload
		if len(record.Payload) > 0 {
			if err := json.Unmarshal(record.Payload, &payload); err != nil {
				return nil, fmt.Errorf("解析刊登数据失败: %w", err)
			}
		}

		draft.ListingID = listingID
		draft.Status = record.Status
		draft.Payload = datatypes.NewJSONType(payload)
	}

	if err := s.drafts.Create(ctx, draft); err != nil {
		return nil, fmt.Errorf("创建草稿失败: %w", err)
	}

	return &SessionResult{
		Token:     draft.Token,
		Kind:      kind,
		Step:      StepsFor(kind)[0],
		ListingID: draft.ListingID,
	}, nil
}

// StateResult 当前向导状态 + 合并后的工作态
type StateResult struct {
	State           State                `json:"state"`
	Steps           []Step               `json:"steps"`
	Payload         model.ListingPayload `json:"payload"`
	StagedDiscarded bool                 `json:"stagedDiscarded"`
}

// GetState 解析请求状态并返回合并后的工作态
// 合并优先级：服务端草稿为基底，会话暂存覆盖；损坏的暂存被丢弃并重定向到第一步
func (s *WizardService) GetState(ctx context.Context, sellerID int64, kind, token, stepParam string, isEdit bool) (*StateResult, error) {
	state, err := ParseState(kind, stepParam, isEdit)
	if err != nil {
		return nil, err
	}

	draft, err := s.loadDraft(ctx, sellerID, kind, token)
	if err != nil {
		return nil, err
	}

	merged := draft.Payload.Data()
	discarded := false

	staged, err := s.stager.Load(ctx, kind, token)
	if errors.Is(err, staging.ErrStagedDataCorrupted) {
		// 故障保护：损坏的暂存绝不参与合并，回到第一步重来
		discarded = true
		state.Step = StepsFor(kind)[0]
	} else if err == nil && len(staged) > 0 {
		if m, mergeErr := staging.Merge(merged, staged); mergeErr == nil {
			merged = m
		} else {
			_ = s.stager.Clear(ctx, kind, token)
			discarded = true
			state.Step = StepsFor(kind)[0]
		}
	}

	// 禁止跳步：请求的步骤超过数据允许的最远步骤时收敛回去
	if max := furthestStep(kind, &merged); stepIndex(kind, state.Step) > max {
		state.Step = StepsFor(kind)[max]
	}

	return &StateResult{
		State:           state,
		Steps:           StepsFor(kind),
		Payload:         merged,
		StagedDiscarded: discarded,
	}, nil
}

// StepResult 步骤提交结果
type StepResult struct {
	NextStep Step `json:"nextStep,omitempty"`
	Done     bool `json:"done"`
}

// SubmitStep 提交当前步骤：校验 -> 配额检查 -> 暂存 -> 前进
// 校验或网络失败都会阻止前进，表单数据不丢失
func (s *WizardService) SubmitStep(ctx context.Context, sellerID int64, plan, kind, token, stepParam string, raw json.RawMessage) (*StepResult, error) {
	state, err := ParseState(kind, stepParam, false)
	if err != nil {
		return nil, err
	}

	draft, err := s.loadDraft(ctx, sellerID, kind, token)
	if err != nil {
		return nil, err
	}

	var stepPayload model.ListingPayload
	if err := json.Unmarshal(raw, &stepPayload); err != nil {
		return nil, fmt.Errorf("解析步骤数据失败: %w", err)
	}

	// 基于已合并状态判断前置步骤是否完成
	base := draft.Payload.Data()
	if staged, loadErr := s.stager.Load(ctx, kind, token); loadErr == nil && len(staged) > 0 {
		if m, mergeErr := staging.Merge(base, staged); mergeErr == nil {
			base = m
		}
	}
	if stepIndex(kind, state.Step) > furthestStep(kind, &base) {
		return nil, ErrStepLocked
	}

	// 校验当前步骤。先在基底上套用本步数据，跨字段规则才能看到全貌
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("解析步骤数据失败: %w", err)
	}
	candidate, err := staging.Merge(base, fields)
	if err != nil {
		return nil, err
	}
	if errs := schema.ValidateStep(kind, string(state.Step), &candidate); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	// 配额用尽时前置拒绝，不暂存也不发上游请求
	if errs := checkQuota(plan, &candidate); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	// 暂存校验通过的切片
	if err := s.stager.StageStep(ctx, kind, token, fields); err != nil {
		return nil, err
	}

	// 同步到本地草稿记录（持久化草稿策略）
	draft.Payload = datatypes.NewJSONType(candidate)
	if err := s.drafts.Update(ctx, draft); err != nil {
		return nil, fmt.Errorf("保存草稿失败: %w", err)
	}

	// 服务类刊登额外持久化到上游草稿记录
	if kind == model.ListingKindService && draft.ListingID > 0 {
		if err := s.api.SaveDraft(ctx, draft.ListingID, candidate); err != nil {
			return nil, fmt.Errorf("持久化上游草稿失败: %w", err)
		}
	}

	next, ok := state.Next()
	if !ok {
		return &StepResult{Done: true}, nil
	}
	return &StepResult{NextStep: next}, nil
}

// DiscardEdit 放弃编辑：需要显式确认
// 清除暂存并强制重新拉取服务端权威数据，保证不残留任何过期客户端状态
func (s *WizardService) DiscardEdit(ctx context.Context, sellerID int64, kind, token string, confirm bool) error {
	if !confirm {
		return ErrDiscardNeedConfirm
	}

	draft, err := s.loadDraft(ctx, sellerID, kind, token)
	if err != nil {
		return err
	}

	if err := s.stager.Clear(ctx, kind, token); err != nil {
		s.log.Warn("清除暂存失败", zap.String("token", token), zap.Error(err))
	}

	if draft.ListingID > 0 {
		record, err := s.api.GetListing(ctx, kind, draft.ListingID)
		if err != nil {
			return fmt.Errorf("重新拉取刊登失败: %w", err)
		}
		var payload model.ListingPayload
		if len(record.Payload) > 0 {
			if err := json.Unmarshal(record.Payload, &payload); err != nil {
				return fmt.Errorf("解析刊登数据失败: %w", err)
			}
		}
		draft.Payload = datatypes.NewJSONType(payload)
		draft.Status = record.Status
		if err := s.drafts.Update(ctx, draft); err != nil {
			return fmt.Errorf("保存草稿失败: %w", err)
		}
	}

	return nil
}

// checkQuota 订阅套餐配额检查
// 载荷超出套餐上限时返回字段错误，提示升级套餐
func checkQuota(plan string, p *model.ListingPayload) schema.FieldErrors {
	limits := model.LimitsFor(plan)
	var errs schema.FieldErrors

	media := 0
	for i := range p.Catalog {
		if p.Catalog[i].Type == model.CatalogEntryMedia {
			media++
		}
	}
	if media > limits.CatalogMedia {
		errs = append(errs, schema.FieldError{
			Field:   "catalog",
			Message: fmt.Sprintf("当前套餐最多支持 %d 个图册文件，请升级套餐", limits.CatalogMedia),
		})
	}

	if len(p.FeaturedProjects) > limits.FeaturedProjects {
		errs = append(errs, schema.FieldError{
			Field:   "featuredProjects",
			Message: fmt.Sprintf("当前套餐最多支持 %d 个精选项目，请升级套餐", limits.FeaturedProjects),
		})
	}
	for i, proj := range p.FeaturedProjects {
		if limits.FeaturedImages > 0 && len(proj.Images) > limits.FeaturedImages {
			errs = append(errs, schema.FieldError{
				Field:   fmt.Sprintf("featuredProjects[%d].images", i),
				Message: fmt.Sprintf("当前套餐每个项目最多 %d 张图片", limits.FeaturedImages),
			})
		}
	}
	return errs
}

// QuotaUsage 单项配额使用情况
type QuotaUsage struct {
	Limit     int `json:"limit"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

// LimitsResult 订阅套餐配额
type LimitsResult struct {
	Plan             string     `json:"plan"`
	CatalogMedia     QuotaUsage `json:"catalogMedia"`
	FeaturedProjects QuotaUsage `json:"featuredProjects"`
}

// Limits 计算当前会话的剩余配额
// remaining == 0 时前端应禁用添加动作，不构造非法状态
func (s *WizardService) Limits(ctx context.Context, sellerID int64, plan, kind, token string) (*LimitsResult, error) {
	state, err := s.GetState(ctx, sellerID, kind, token, "", false)
	if err != nil {
		return nil, err
	}

	limits := model.LimitsFor(plan)
	mediaUsed := 0
	for i := range state.Payload.Catalog {
		if state.Payload.Catalog[i].Type == model.CatalogEntryMedia {
			mediaUsed++
		}
	}
	projectsUsed := len(state.Payload.FeaturedProjects)

	return &LimitsResult{
		Plan: plan,
		CatalogMedia: QuotaUsage{
			Limit:     limits.CatalogMedia,
			Used:      mediaUsed,
			Remaining: model.Remaining(limits.CatalogMedia, mediaUsed),
		},
		FeaturedProjects: QuotaUsage{
			Limit:     limits.FeaturedProjects,
			Used:      projectsUsed,
			Remaining: model.Remaining(limits.FeaturedProjects, projectsUsed),
		},
	}, nil
}

// loadDraft 按令牌加载并做属主校验
func (s *WizardService) loadDraft(ctx context.Context, sellerID int64, kind, token string) (*model.ListingDraft, error) {
	draft, err := s.drafts.GetByToken(ctx, token)
	if err != nil {
		return nil, ErrDraftNotFound
	}
	if draft.SellerID != sellerID {
		return nil, ErrNotOwner
	}
	if draft.Kind != kind {
		return nil, fmt.Errorf("草稿类型不匹配: %s", draft.Kind)
	}
	return draft, nil
}
