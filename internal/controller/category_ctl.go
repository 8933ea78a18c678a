package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"listhub_v1_202608/internal/service"
)

// CategoryController 分类控制器
type CategoryController struct {
	categoryService *service.CategoryService
}

func NewCategoryController(categoryService *service.CategoryService) *CategoryController {
	return &CategoryController{categoryService: categoryService}
}

// GetAll 获取分类
// @Summary 获取商品/服务两棵分类树
// @Tags Category
// @Success 200 {object} service.CategoryTabs
// @Router /api/categories [get]
func (ctrl *CategoryController) GetAll(c *gin.Context) {
	ctx := c.Request.Context()
	result, err := ctrl.categoryService.GetAll(ctx)
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
