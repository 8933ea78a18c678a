package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"gorm.io/datatypes"

	"listhub_v1_202608/internal/model"
	"listhub_v1_202608/internal/repository"
	"listhub_v1_202608/internal/staging"
	"listhub_v1_202608/pkg/upstream"
)

// ==================== 文件引用折叠 ====================

func TestCollapseFileRefs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "文件引用折叠为裸ID",
			input: `{"mainImages":[{"id":12,"path":"/u/12.jpg","name":"a.jpg"}]}`,
			want:  `{"mainImages":[12]}`,
		},
		{
			name:  "嵌套引用递归折叠",
			input: `{"featuredProjects":[{"name":"P1","images":[{"id":3,"path":"/3.jpg"},{"id":4,"path":"/4.jpg"}]}]}`,
			want:  `{"featuredProjects":[{"images":[3,4],"name":"P1"}]}`,
		},
		{
			name:  "只有id没有path不折叠",
			input: `{"category":{"id":5,"label":"设计"}}`,
			want:  `{"category":{"id":5,"label":"设计"}}`,
		},
		{
			name:  "标量与数组原样保留",
			input: `{"title":"Soap","tags":["a","b"],"count":3}`,
			want:  `{"count":3,"tags":["a","b"],"title":"Soap"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var input, want interface{}
			json.Unmarshal([]byte(tt.input), &input)
			json.Unmarshal([]byte(tt.want), &want)

			got := CollapseFileRefs(input)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("期望 %v，实际 %v", want, got)
			}
		})
	}
}

// 幂等：折叠一次和折叠两次结果一致
func TestCollapseFileRefsIdempotent(t *testing.T) {
	input := `{"mainImages":[{"id":12,"path":"/u/12.jpg"}],"catalog":[{"type":"MEDIA","file":{"id":7,"path":"/7.png"}}]}`

	var v interface{}
	json.Unmarshal([]byte(input), &v)

	once := CollapseFileRefs(v)
	onceJSON, _ := json.Marshal(once)

	twice := CollapseFileRefs(once)
	twiceJSON, _ := json.Marshal(twice)

	if string(onceJSON) != string(twiceJSON) {
		t.Fatalf("折叠应幂等：%s != %s", onceJSON, twiceJSON)
	}
}

// ==================== 提交 ====================

type submissionEnv struct {
	svc    *SubmissionService
	drafts repository.ListingDraftRepository
	store  *staging.MemoryStore
	stager *staging.Stager
	api    *mockListingAPI
}

func setupSubmission(t *testing.T) *submissionEnv {
	t.Helper()
	db := setupTestDB(t)
	drafts := repository.NewListingDraftRepository(db)
	store := staging.NewMemoryStore()
	stager := staging.NewStager(store, time.Hour, nil)
	api := &mockListingAPI{}
	return &submissionEnv{
		svc:    NewSubmissionService(drafts, stager, api, store, nil),
		drafts: drafts,
		store:  store,
		stager: stager,
		api:    api,
	}
}

// completePayload 能通过商品类全量校验的载荷
func completePayload() model.ListingPayload {
	return model.ListingPayload{
		Title:         "Handmade Soap",
		Visibility:    model.VisibilityPublic,
		CategoryID:    1,
		SubcategoryID: 11,
		Delivery: &model.DeliveryConfig{
			Nationally: &model.RegionSelection{Country: "IN", States: []string{"Maharashtra"}},
		},
		Description: "纯手工皂，冷制工艺",
		Price:       &model.Price{Amount: 1999, Unit: model.PriceUnitFixed},
		MainImages:  []model.FileReference{{ID: 12, Path: "/u/12.jpg"}},
	}
}

func seedDraft(t *testing.T, env *submissionEnv, draft *model.ListingDraft) {
	t.Helper()
	if err := env.drafts.Create(context.Background(), draft); err != nil {
		t.Fatalf("准备草稿失败: %v", err)
	}
}

func TestSubmitCreatesNewListing(t *testing.T) {
	env := setupSubmission(t)
	ctx := context.Background()

	var sentPayload map[string]interface{}
	env.api.createListingFn = func(_ context.Context, kind string, payload interface{}) (*upstream.SaveResult, error) {
		sentPayload = payload.(map[string]interface{})
		return &upstream.SaveResult{ID: 2001, Status: model.ListingStatusUnderReview}, nil
	}

	seedDraft(t, env, &model.ListingDraft{
		Token:    "tok-new",
		SellerID: 7,
		Kind:     model.ListingKindProduct,
		Status:   model.ListingStatusDraft,
		Payload:  datatypes.NewJSONType(completePayload()),
	})

	result, err := env.svc.Submit(ctx, 7, model.PlanPremium, "product", "tok-new", nil)
	if err != nil {
		t.Fatalf("Submit 失败: %v", err)
	}
	if result.ListingID != 2001 || result.Destination != "/listings" {
		t.Fatalf("提交结果异常: %+v", result)
	}

	// 发往上游的载荷中文件引用已折叠为裸ID
	images, ok := sentPayload["mainImages"].([]interface{})
	if !ok || len(images) != 1 {
		t.Fatalf("上游载荷主图异常: %v", sentPayload["mainImages"])
	}
	if _, isMap := images[0].(map[string]interface{}); isMap {
		t.Fatalf("文件引用应折叠为裸ID: %v", images[0])
	}

	// 本地草稿状态流转为 UNDER_REVIEW
	draft, _ := env.drafts.GetByToken(ctx, "tok-new")
	if draft.Status != model.ListingStatusUnderReview || draft.ListingID != 2001 {
		t.Fatalf("草稿状态未流转: %+v", draft)
	}
}

func TestSubmitUpdatesExistingListing(t *testing.T) {
	env := setupSubmission(t)
	ctx := context.Background()

	var updatedID int64
	env.api.updateListingFn = func(_ context.Context, _ string, id int64, _ interface{}) (*upstream.SaveResult, error) {
		updatedID = id
		return &upstream.SaveResult{ID: id, Status: model.ListingStatusActive}, nil
	}

	seedDraft(t, env, &model.ListingDraft{
		Token:     "tok-edit",
		SellerID:  7,
		Kind:      model.ListingKindProduct,
		ListingID: 777,
		Status:    model.ListingStatusActive,
		Payload:   datatypes.NewJSONType(completePayload()),
	})

	result, err := env.svc.Submit(ctx, 7, model.PlanPremium, "product", "tok-edit", nil)
	if err != nil {
		t.Fatalf("Submit 失败: %v", err)
	}
	if updatedID != 777 || result.ListingID != 777 {
		t.Fatalf("已有刊登应走更新: updatedID=%d result=%+v", updatedID, result)
	}
}

// 提交成功后暂存被清除，刊登缓存被失效
func TestSubmitClearsStagedAndCache(t *testing.T) {
	env := setupSubmission(t)
	ctx := context.Background()

	seedDraft(t, env, &model.ListingDraft{
		Token:     "tok-clean",
		SellerID:  7,
		Kind:      model.ListingKindProduct,
		ListingID: 888,
		Status:    model.ListingStatusActive,
		Payload:   datatypes.NewJSONType(completePayload()),
	})

	// 预置暂存和缓存
	env.stager.StageStep(ctx, "product", "tok-clean", map[string]json.RawMessage{
		"title": json.RawMessage(`"Staged Title"`),
	})
	env.store.Set(ctx, fmt.Sprintf("listing:product:%d", 888), `{"id":888}`, 0)

	if _, err := env.svc.Submit(ctx, 7, model.PlanPremium, "product", "tok-clean", nil); err != nil {
		t.Fatalf("Submit 失败: %v", err)
	}

	if fields, _ := env.stager.Load(ctx, "product", "tok-clean"); fields != nil {
		t.Fatal("提交成功后暂存应被清除")
	}
	if _, ok, _ := env.store.Get(ctx, "listing:product:888"); ok {
		t.Fatal("提交成功后刊登缓存应被失效")
	}
}

// 上游失败时暂存原样保留，用户数据不丢失
func TestSubmitFailurePreservesStaged(t *testing.T) {
	env := setupSubmission(t)
	ctx := context.Background()

	env.api.createListingFn = func(context.Context, string, interface{}) (*upstream.SaveResult, error) {
		return nil, &upstream.APIError{StatusCode: 503, Message: "服务暂不可用"}
	}

	seedDraft(t, env, &model.ListingDraft{
		Token:    "tok-fail",
		SellerID: 7,
		Kind:     model.ListingKindProduct,
		Status:   model.ListingStatusDraft,
		Payload:  datatypes.NewJSONType(completePayload()),
	})
	env.stager.StageStep(ctx, "product", "tok-fail", map[string]json.RawMessage{
		"title": json.RawMessage(`"Staged Title"`),
	})

	_, err := env.svc.Submit(ctx, 7, model.PlanPremium, "product", "tok-fail", nil)
	var apiErr *upstream.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("期望 APIError，实际: %v", err)
	}

	if fields, _ := env.stager.Load(ctx, "product", "tok-fail"); fields == nil {
		t.Fatal("提交失败后暂存必须保留")
	}
	draft, _ := env.drafts.GetByToken(ctx, "tok-fail")
	if draft.Status != model.ListingStatusDraft {
		t.Fatalf("提交失败不应流转状态: %s", draft.Status)
	}
}

// 有步骤未完成时全量校验必须拦截
func TestSubmitIncompleteBlocked(t *testing.T) {
	env := setupSubmission(t)
	ctx := context.Background()

	incomplete := completePayload()
	incomplete.Price = nil // additional-info 未完成

	seedDraft(t, env, &model.ListingDraft{
		Token:    "tok-incomplete",
		SellerID: 7,
		Kind:     model.ListingKindProduct,
		Status:   model.ListingStatusDraft,
		Payload:  datatypes.NewJSONType(incomplete),
	})

	_, err := env.svc.Submit(ctx, 7, model.PlanPremium, "product", "tok-incomplete", nil)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("期望 ValidationError，实际: %v", err)
	}
	if !ve.Fields.Has("price") {
		t.Fatalf("应报 price 错误: %v", ve.Fields)
	}
}

// 填好标题和分类但一个渠道都没选：提交被拦截，错误落在渠道字段组，
// 且不发任何上游请求
func TestSubmitZeroChannelsBlocked(t *testing.T) {
	env := setupSubmission(t)
	ctx := context.Background()

	created := false
	env.api.createListingFn = func(context.Context, string, interface{}) (*upstream.SaveResult, error) {
		created = true
		return &upstream.SaveResult{ID: 1}, nil
	}

	noChannels := completePayload()
	noChannels.Delivery = &model.DeliveryConfig{}

	seedDraft(t, env, &model.ListingDraft{
		Token:    "tok-nochan",
		SellerID: 7,
		Kind:     model.ListingKindProduct,
		Status:   model.ListingStatusDraft,
		Payload:  datatypes.NewJSONType(noChannels),
	})

	_, err := env.svc.Submit(ctx, 7, model.PlanPremium, "product", "tok-nochan", nil)
	var ve *ValidationError
	if !errors.As(err, &ve) || !ve.Fields.Has("delivery") {
		t.Fatalf("期望 delivery 渠道错误，实际: %v", err)
	}
	if created {
		t.Fatal("校验失败不应到达上游")
	}
}

// 最后一步的表单现值优先级最高：基底 <- 暂存 <- 表单
func TestSubmitFinalDataWins(t *testing.T) {
	env := setupSubmission(t)
	ctx := context.Background()

	var sentTitle string
	env.api.createListingFn = func(_ context.Context, _ string, payload interface{}) (*upstream.SaveResult, error) {
		sentTitle = payload.(map[string]interface{})["title"].(string)
		return &upstream.SaveResult{ID: 1, Status: model.ListingStatusUnderReview}, nil
	}

	seedDraft(t, env, &model.ListingDraft{
		Token:    "tok-final",
		SellerID: 7,
		Kind:     model.ListingKindProduct,
		Status:   model.ListingStatusDraft,
		Payload:  datatypes.NewJSONType(completePayload()),
	})
	env.stager.StageStep(ctx, "product", "tok-final", map[string]json.RawMessage{
		"title": json.RawMessage(`"Staged Title"`),
	})

	finalRaw := json.RawMessage(`{"title":"Final Title"}`)
	if _, err := env.svc.Submit(ctx, 7, model.PlanPremium, "product", "tok-final", finalRaw); err != nil {
		t.Fatalf("Submit 失败: %v", err)
	}
	if sentTitle != "Final Title" {
		t.Fatalf("表单现值应覆盖暂存: %s", sentTitle)
	}
}

func TestSubmitOwnershipAndState(t *testing.T) {
	env := setupSubmission(t)
	ctx := context.Background()

	seedDraft(t, env, &model.ListingDraft{
		Token:    "tok-owner",
		SellerID: 7,
		Kind:     model.ListingKindProduct,
		Status:   model.ListingStatusUnderReview, // 审核中不允许再提交
		Payload:  datatypes.NewJSONType(completePayload()),
	})

	if _, err := env.svc.Submit(ctx, 8, model.PlanPremium, "product", "tok-owner", nil); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("期望 ErrNotOwner，实际: %v", err)
	}
	if _, err := env.svc.Submit(ctx, 7, model.PlanPremium, "product", "missing", nil); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("期望 ErrDraftNotFound，实际: %v", err)
	}
	if _, err := env.svc.Submit(ctx, 7, model.PlanPremium, "product", "tok-owner", nil); err == nil {
		t.Fatal("审核中的草稿不应允许提交")
	}
}
