package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"listhub_v1_202608/internal/api/dto"
	"listhub_v1_202608/internal/middleware"
	"listhub_v1_202608/internal/service"
	"listhub_v1_202608/pkg/upstream"
)

// ==================== 控制器 ====================

// WizardController 向导控制器
type WizardController struct {
	wizard     *service.WizardService
	submission *service.SubmissionService
}

func NewWizardController(wizard *service.WizardService, submission *service.SubmissionService) *WizardController {
	return &WizardController{wizard: wizard, submission: submission}
}

// ==================== API 方法 ====================

// OpenSession 进入向导
// @Summary 打开刊登向导会话（新建或编辑）
// @Tags Wizard
// @Accept json
// @Param kind path string true "刊登类型 product/service"
// @Param body body dto.OpenSessionRequest false "listing_id>0 为编辑模式"
// @Success 201 {object} service.SessionResult
// @Router /api/wizard/{kind} [post]
func (ctrl *WizardController) OpenSession(c *gin.Context) {
	kind := c.Param("kind")

	var req dto.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	result, err := ctrl.wizard.OpenSession(ctx, middleware.GetSellerID(c), kind, req.ListingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "success",
		"data":    result,
	})
}

// GetState 获取向导状态
// @Summary 获取当前步骤与合并后的工作态
// @Tags Wizard
// @Param kind path string true "刊登类型"
// @Param token path string true "草稿令牌"
// @Param step query string false "步骤"
// @Param isEdit query bool false "编辑模式"
// @Success 200 {object} dto.StateResponse
// @Router /api/wizard/{kind}/{token}/state [get]
func (ctrl *WizardController) GetState(c *gin.Context) {
	kind := c.Param("kind")
	token := c.Param("token")
	step := c.Query("step")
	isEdit := c.Query("isEdit") == "true"

	ctx := c.Request.Context()
	result, err := ctrl.wizard.GetState(ctx, middleware.GetSellerID(c), kind, token, step, isEdit)
	if err != nil {
		respondError(c, err)
		return
	}

	payload, _ := json.Marshal(result.Payload)
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": dto.StateResponse{
			Kind:            result.State.Kind,
			Step:            string(result.State.Step),
			IsEdit:          result.State.IsEdit,
			Steps:           dto.StepsOf(result.Steps),
			Payload:         payload,
			StagedDiscarded: result.StagedDiscarded,
		},
	})
}

// SubmitStep 提交步骤
// @Summary 校验并暂存当前步骤，返回下一步
// @Tags Wizard
// @Accept json
// @Param kind path string true "刊登类型"
// @Param token path string true "草稿令牌"
// @Param step path string true "步骤"
// @Param body body dto.SubmitStepRequest true "步骤表单数据"
// @Success 200 {object} service.StepResult
// @Failure 422 {object} dto.ValidationFailureResponse
// @Router /api/wizard/{kind}/{token}/steps/{step} [post]
func (ctrl *WizardController) SubmitStep(c *gin.Context) {
	kind := c.Param("kind")
	token := c.Param("token")
	step := c.Param("step")

	var req dto.SubmitStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	result, err := ctrl.wizard.SubmitStep(ctx, middleware.GetSellerID(c), middleware.GetPlan(c), kind, token, step, req.Data)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    result,
	})
}

// Discard 放弃编辑
// @Summary 放弃编辑：清暂存并重载服务端数据，需 confirm=true
// @Tags Wizard
// @Param kind path string true "刊登类型"
// @Param token path string true "草稿令牌"
// @Param confirm query bool true "用户已确认"
// @Success 200 {object} map[string]interface{}
// @Router /api/wizard/{kind}/{token}/discard [post]
func (ctrl *WizardController) Discard(c *gin.Context) {
	kind := c.Param("kind")
	token := c.Param("token")
	confirm := c.Query("confirm") == "true"

	ctx := c.Request.Context()
	if err := ctrl.wizard.DiscardEdit(ctx, middleware.GetSellerID(c), kind, token, confirm); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "已放弃编辑",
	})
}

// Submit 定稿提交
// @Summary 合并全部步骤数据并提交到市场后端
// @Tags Wizard
// @Accept json
// @Param kind path string true "刊登类型"
// @Param token path string true "草稿令牌"
// @Param body body dto.SubmitRequest false "最后一步表单数据"
// @Success 200 {object} service.SubmitResult
// @Failure 422 {object} dto.ValidationFailureResponse
// @Router /api/wizard/{kind}/{token}/submit [post]
func (ctrl *WizardController) Submit(c *gin.Context) {
	kind := c.Param("kind")
	token := c.Param("token")

	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	result, err := ctrl.submission.Submit(ctx, middleware.GetSellerID(c), middleware.GetPlan(c), kind, token, req.Data)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "提交成功",
		"data":    result,
	})
}

// Limits 查询配额
// @Summary 查询当前套餐的图册/精选项目剩余配额
// @Tags Wizard
// @Param kind path string true "刊登类型"
// @Param token path string true "草稿令牌"
// @Success 200 {object} service.LimitsResult
// @Router /api/wizard/{kind}/{token}/limits [get]
func (ctrl *WizardController) Limits(c *gin.Context) {
	kind := c.Param("kind")
	token := c.Param("token")

	ctx := c.Request.Context()
	result, err := ctrl.wizard.Limits(ctx, middleware.GetSellerID(c), middleware.GetPlan(c), kind, token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    result,
	})
}

// ==================== 错误映射 ====================

// respondError 统一错误响应
// 校验错误 422 带完整字段表；上游错误透传服务端消息；其余按语义映射
func respondError(c *gin.Context, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":    422,
			"message": ve.Error(),
			"data":    dto.NewValidationFailure(ve.Fields),
		})
		return
	}

	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"code":    502,
			"message": apiErr.Error(),
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrDraftNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "message": err.Error()})
	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"code": 403, "message": err.Error()})
	case errors.Is(err, service.ErrStepLocked),
		errors.Is(err, service.ErrDiscardNeedConfirm):
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
	}
}
