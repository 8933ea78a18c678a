package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"listhub_v1_202608/internal/config"
	"listhub_v1_202608/internal/controller"
	"listhub_v1_202608/internal/middleware"
	"listhub_v1_202608/internal/model"
	"listhub_v1_202608/internal/repository"
	"listhub_v1_202608/internal/router"
	"listhub_v1_202608/internal/service"
	"listhub_v1_202608/internal/staging"
	"listhub_v1_202608/internal/task"
	"listhub_v1_202608/pkg/database"
	"listhub_v1_202608/pkg/logger"
	"listhub_v1_202608/pkg/upstream"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 初始化日志
	zlog, err := logger.New(cfg.Server.Mode)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zlog.Sync()

	if cfg.Server.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 3. 初始化数据库
	db, err := database.InitDB(cfg.Database.DSN, &model.ListingDraft{})
	if err != nil {
		zlog.Fatal("初始化数据库失败", zap.Error(err))
	}

	// 4. 初始化依赖
	deps := initDependencies(cfg, db, zlog)

	// 5. 启动定时任务
	deps.Cleanup.Start()
	defer deps.Cleanup.Stop()

	// 6. 初始化路由并启动服务
	r := router.SetupRouter(deps.Controllers, deps.Auth, zlog)
	startServer(cfg.Server.Port, r, zlog)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Store       staging.Store
	Services    *Services
	Controllers *router.Controllers
	Auth        *middleware.Authenticator
	Cleanup     *task.CleanupTask
}

// Services 服务集合
type Services struct {
	Wizard     *service.WizardService
	Submission *service.SubmissionService
	Listing    *service.ListingService
	Category   *service.CategoryService
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB, zlog *zap.Logger) *Dependencies {
	// -------- 暂存存储 --------
	store := initStore(cfg, zlog)
	stager := staging.NewStager(store, cfg.Wizard.StagingTTL, zlog)

	// -------- 上游客户端 --------
	api := upstream.NewClient(&upstream.Config{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.Upstream.Timeout,
	})

	// -------- Repo 层 --------
	draftRepo := repository.NewListingDraftRepository(db)

	// -------- 业务服务 --------
	services := &Services{
		Wizard:     service.NewWizardService(draftRepo, stager, api, zlog),
		Submission: service.NewSubmissionService(draftRepo, stager, api, store, zlog),
		Listing:    service.NewListingService(draftRepo, api, store, zlog),
		Category:   service.NewCategoryService(api),
	}

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		Wizard:   controller.NewWizardController(services.Wizard, services.Submission),
		Listing:  controller.NewListingController(services.Listing),
		Category: controller.NewCategoryController(services.Category),
	}

	auth := middleware.NewAuthenticator(&middleware.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenTTL: cfg.JWT.Expiry,
	})

	cleanup := task.NewCleanupTask(draftRepo, stager, cfg.Wizard.DraftRetention, zlog)

	return &Dependencies{
		DB:          db,
		Store:       store,
		Services:    services,
		Controllers: controllers,
		Auth:        auth,
		Cleanup:     cleanup,
	}
}

// initStore 选择暂存存储
// 配置了 Redis 地址则用 Redis，连接失败或未配置退回进程内存储
func initStore(cfg *config.Config, zlog *zap.Logger) staging.Store {
	if cfg.Redis.Addr == "" {
		zlog.Info("未配置 Redis，暂存使用内存存储")
		return staging.NewMemoryStore()
	}

	store, err := staging.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		zlog.Warn("Redis 连接失败，退回内存存储", zap.Error(err))
		return staging.NewMemoryStore()
	}
	zlog.Info("暂存使用 Redis 存储", zap.String("addr", cfg.Redis.Addr))
	return store
}

// ==================== 服务启动 ====================

// startServer 启动服务并等待退出信号
func startServer(port string, r *gin.Engine, zlog *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		zlog.Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Fatal("服务强制关闭", zap.Error(err))
	}

	zlog.Info("服务已退出")
}
