package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"listhub_v1_202608/internal/api/dto"
	"listhub_v1_202608/internal/middleware"
	"listhub_v1_202608/internal/service"
)

// ==================== 控制器 ====================

// ListingController 刊登控制器
type ListingController struct {
	listingService *service.ListingService
}

func NewListingController(listingService *service.ListingService) *ListingController {
	return &ListingController{listingService: listingService}
}

// ==================== API 方法 ====================

// ListDrafts 草稿列表
// @Summary 获取卖家的草稿列表
// @Tags Listing
// @Param kind query string false "刊登类型筛选"
// @Param status query string false "状态筛选"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /api/drafts [get]
func (ctrl *ListingController) ListDrafts(c *gin.Context) {
	var req dto.ListDraftsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	drafts, total, err := ctrl.listingService.ListDrafts(
		ctx, middleware.GetSellerID(c), req.Kind, req.Status, req.Page, req.PageSize,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":     0,
		"message":  "success",
		"data":     drafts,
		"total":    total,
		"page":     req.Page,
		"pageSize": req.PageSize,
	})
}

// GetListing 查询已发布刊登
// @Summary 查询已发布刊登（带缓存）
// @Tags Listing
// @Param kind path string true "刊登类型"
// @Param id path int true "刊登ID"
// @Success 200 {object} upstream.ListingRecord
// @Router /api/listings/{kind}/{id} [get]
func (ctrl *ListingController) GetListing(c *gin.Context) {
	kind := c.Param("kind")
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的刊登ID",
		})
		return
	}

	ctx := c.Request.Context()
	record, err := ctrl.listingService.GetListing(ctx, kind, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    record,
	})
}

// Clone 克隆刊登
// @Summary 克隆一个已有刊登
// @Tags Listing
// @Param kind path string true "刊登类型"
// @Param id path int true "刊登ID"
// @Success 200 {object} upstream.SaveResult
// @Router /api/listings/{kind}/{id}/clone [post]
func (ctrl *ListingController) Clone(c *gin.Context) {
	kind := c.Param("kind")
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的刊登ID",
		})
		return
	}

	ctx := c.Request.Context()
	result, err := ctrl.listingService.Clone(ctx, kind, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "克隆成功",
		"data":    result,
	})
}
