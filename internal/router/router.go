package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"listhub_v1_202608/internal/controller"
	"listhub_v1_202608/internal/middleware"
)

// Controllers 控制器集合
type Controllers struct {
	Wizard   *controller.WizardController
	Listing  *controller.ListingController
	Category *controller.CategoryController
}

// SetupRouter 注册所有路由
func SetupRouter(ctls *Controllers, auth *middleware.Authenticator, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLog(log))

	api := r.Group("/api")
	api.Use(auth.Auth())
	{
		// wizard 刊登向导
		wizard := api.Group("/wizard/:kind")
		{
			// POST /api/wizard/:kind
			wizard.POST("", ctls.Wizard.OpenSession)
			wizard.GET("/:token/state", ctls.Wizard.GetState)
			wizard.POST("/:token/steps/:step", ctls.Wizard.SubmitStep)
			wizard.POST("/:token/discard", ctls.Wizard.Discard)
			wizard.POST("/:token/submit", ctls.Wizard.Submit)
			wizard.GET("/:token/limits", ctls.Wizard.Limits)
		}

		// listing 刊登与草稿
		api.GET("/drafts", ctls.Listing.ListDrafts)
		listings := api.Group("/listings/:kind")
		{
			listings.GET("/:id", ctls.Listing.GetListing)
			listings.POST("/:id/clone", ctls.Listing.Clone)
		}

		// category 分类浏览器
		api.GET("/categories", ctls.Category.GetAll)
	}

	return r
}
