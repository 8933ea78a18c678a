package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"listhub_v1_202608/internal/controller"
	"listhub_v1_202608/internal/middleware"
	"listhub_v1_202608/internal/model"
	"listhub_v1_202608/internal/repository"
	"listhub_v1_202608/internal/router"
	"listhub_v1_202608/internal/service"
	"listhub_v1_202608/internal/staging"
	"listhub_v1_202608/pkg/upstream"
)

// ==================== Mock 上游 ====================

type fakeAPI struct {
	getListingFn func(ctx context.Context, kind string, id int64) (*upstream.ListingRecord, error)
}

func (f *fakeAPI) GetListing(ctx context.Context, kind string, id int64) (*upstream.ListingRecord, error) {
	if f.getListingFn != nil {
		return f.getListingFn(ctx, kind, id)
	}
	return &upstream.ListingRecord{ID: id, Kind: kind, Status: model.ListingStatusActive}, nil
}

func (f *fakeAPI) SaveDraft(context.Context, int64, interface{}) error { return nil }

func (f *fakeAPI) CreateListing(context.Context, string, interface{}) (*upstream.SaveResult, error) {
	return &upstream.SaveResult{ID: 3001, Status: model.ListingStatusUnderReview}, nil
}

func (f *fakeAPI) UpdateListing(_ context.Context, _ string, id int64, _ interface{}) (*upstream.SaveResult, error) {
	return &upstream.SaveResult{ID: id, Status: model.ListingStatusActive}, nil
}

func (f *fakeAPI) CloneListing(_ context.Context, _ string, id int64) (*upstream.SaveResult, error) {
	return &upstream.SaveResult{ID: id + 1, Status: model.ListingStatusDraft}, nil
}

func (f *fakeAPI) GetCategories(_ context.Context, kind string) ([]upstream.Category, error) {
	return []upstream.Category{{ID: 1, Name: kind + "-root"}}, nil
}

// ==================== 测试服务器 ====================

type testServer struct {
	engine *gin.Engine
	token  string // 卖家 7，STANDARD 套餐
	api    *fakeAPI
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.ListingDraft{}); err != nil {
		t.Fatalf("建表失败: %v", err)
	}

	drafts := repository.NewListingDraftRepository(db)
	store := staging.NewMemoryStore()
	stager := staging.NewStager(store, time.Hour, nil)
	api := &fakeAPI{}

	wizardSvc := service.NewWizardService(drafts, stager, api, nil)
	submissionSvc := service.NewSubmissionService(drafts, stager, api, store, nil)
	listingSvc := service.NewListingService(drafts, api, store, nil)
	categorySvc := service.NewCategoryService(api)

	ctls := &router.Controllers{
		Wizard:   controller.NewWizardController(wizardSvc, submissionSvc),
		Listing:  controller.NewListingController(listingSvc),
		Category: controller.NewCategoryController(categorySvc),
	}

	auth := middleware.NewAuthenticator(&middleware.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenTTL: time.Hour,
		Issuer:         "test",
	})
	token, err := auth.GenerateToken(7, model.PlanStandard)
	if err != nil {
		t.Fatalf("签发测试 token 失败: %v", err)
	}

	return &testServer{
		engine: router.SetupRouter(ctls, auth, nil),
		token:  token,
		api:    api,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("编码请求体失败: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析响应失败: %v\n%s", err, w.Body.String())
	}
	return body
}

// openSession 建会话并返回令牌
func (s *testServer) openSession(t *testing.T, kind string) string {
	t.Helper()
	w := s.do(t, "POST", "/api/wizard/"+kind, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("建会话失败: %d %s", w.Code, w.Body.String())
	}
	data := decodeBody(t, w)["data"].(map[string]interface{})
	return data["token"].(string)
}

var stepMainInfo = map[string]interface{}{
	"data": map[string]interface{}{
		"title":         "Handmade Soap",
		"visibility":    "PUBLIC",
		"categoryId":    1,
		"subcategoryId": 11,
		"delivery": map[string]interface{}{
			"nationally": map[string]interface{}{
				"country": "IN",
				"states":  []string{"Maharashtra"},
			},
		},
	},
}

var stepAdditionalInfo = map[string]interface{}{
	"data": map[string]interface{}{
		"description": "纯手工皂，冷制工艺",
		"price":       map[string]interface{}{"amount": 1999, "unit": "FIXED"},
	},
}

// ==================== 认证 ====================

func TestAuthRequired(t *testing.T) {
	s := setupServer(t)

	req := httptest.NewRequest("POST", "/api/wizard/product", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest("POST", "/api/wizard/product", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// ==================== 向导流程 ====================

func TestOpenSessionEndpoint(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, "POST", "/api/wizard/product", nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.NotEmpty(t, data["token"])
	assert.Equal(t, "main-info", data["step"])
}

func TestSubmitStepEndpoint(t *testing.T) {
	s := setupServer(t)
	token := s.openSession(t, "product")

	w := s.do(t, "POST", "/api/wizard/product/"+token+"/steps/main-info", stepMainInfo)
	assert.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "additional-info", data["nextStep"])
}

func TestSubmitStepValidation422(t *testing.T) {
	s := setupServer(t)
	token := s.openSession(t, "product")

	w := s.do(t, "POST", "/api/wizard/product/"+token+"/steps/main-info", map[string]interface{}{
		"data": map[string]interface{}{"title": ""},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	first := data["first"].(map[string]interface{})
	assert.Equal(t, "title", first["field"])
	assert.NotEmpty(t, data["errors"])
}

func TestSubmitStepMissingBody(t *testing.T) {
	s := setupServer(t)
	token := s.openSession(t, "product")

	w := s.do(t, "POST", "/api/wizard/product/"+token+"/steps/main-info", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStateEndpoint(t *testing.T) {
	s := setupServer(t)
	token := s.openSession(t, "product")
	s.do(t, "POST", "/api/wizard/product/"+token+"/steps/main-info", stepMainInfo)

	w := s.do(t, "GET", "/api/wizard/product/"+token+"/state?step=additional-info", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "additional-info", data["step"])
	payload := data["payload"].(map[string]interface{})
	assert.Equal(t, "Handmade Soap", payload["title"])
}

func TestDiscardEndpoint(t *testing.T) {
	s := setupServer(t)
	token := s.openSession(t, "product")

	// 未确认
	w := s.do(t, "POST", "/api/wizard/product/"+token+"/discard", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "POST", "/api/wizard/product/"+token+"/discard?confirm=true", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmitEndpoint(t *testing.T) {
	s := setupServer(t)
	token := s.openSession(t, "product")
	s.do(t, "POST", "/api/wizard/product/"+token+"/steps/main-info", stepMainInfo)
	s.do(t, "POST", "/api/wizard/product/"+token+"/steps/additional-info", stepAdditionalInfo)

	w := s.do(t, "POST", "/api/wizard/product/"+token+"/submit", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(3001), data["listingId"])
	assert.Equal(t, "/listings", data["destination"])
}

func TestSubmitIncomplete422(t *testing.T) {
	s := setupServer(t)
	token := s.openSession(t, "product")
	s.do(t, "POST", "/api/wizard/product/"+token+"/steps/main-info", stepMainInfo)

	// additional-info 未完成
	w := s.do(t, "POST", "/api/wizard/product/"+token+"/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestLimitsEndpoint(t *testing.T) {
	s := setupServer(t)
	token := s.openSession(t, "service")

	w := s.do(t, "GET", "/api/wizard/service/"+token+"/limits", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, model.PlanStandard, data["plan"])
	media := data["catalogMedia"].(map[string]interface{})
	assert.Equal(t, float64(10), media["limit"])
}

func TestWizardNotFound404(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, "GET", "/api/wizard/product/no-such-token/state", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ==================== 刊登与分类 ====================

func TestListDraftsEndpoint(t *testing.T) {
	s := setupServer(t)
	s.openSession(t, "product")
	s.openSession(t, "service")

	w := s.do(t, "GET", "/api/drafts?kind=product", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["total"])
}

func TestGetListingEndpoint(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, "GET", "/api/listings/product/42", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(42), data["id"])

	// 非数字 ID
	w = s.do(t, "GET", "/api/listings/product/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCloneEndpoint(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, "POST", "/api/listings/product/10/clone", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(11), data["id"])
}

func TestCategoriesEndpoint(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, "GET", "/api/categories", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	product := data["product"].([]interface{})
	service := data["service"].([]interface{})
	assert.Len(t, product, 1)
	assert.Len(t, service, 1)
}

// 上游错误透传为 502，带服务端消息
func TestUpstreamError502(t *testing.T) {
	s := setupServer(t)
	s.api.getListingFn = func(context.Context, string, int64) (*upstream.ListingRecord, error) {
		return nil, &upstream.APIError{StatusCode: 500, Message: "上游维护中"}
	}

	w := s.do(t, "GET", "/api/listings/product/42", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "上游维护中")
}
