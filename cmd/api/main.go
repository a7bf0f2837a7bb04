package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/teamhub/kb-api/api/swagger"
	"github.com/teamhub/kb-api/internal/handler"
	"github.com/teamhub/kb-api/internal/middleware"
	"github.com/teamhub/kb-api/internal/models"
	"github.com/teamhub/kb-api/internal/repository"
	"github.com/teamhub/kb-api/internal/service"
	"github.com/teamhub/kb-api/pkg/cache"
	"github.com/teamhub/kb-api/pkg/config"
	"github.com/teamhub/kb-api/pkg/database"
	"github.com/teamhub/kb-api/pkg/logger"
	corsmiddleware "github.com/teamhub/kb-api/pkg/middleware/cors"
	reqidmiddleware "github.com/teamhub/kb-api/pkg/middleware/requestid"
)

// @title TeamHub Knowledge Base API
// @version 1.0.0
// @description REST API for team spaces, wiki pages, shared documents and templates
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	spaceRepo := repository.NewSpaceRepository(db)
	pageRepo := repository.NewPageRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, metricsSvc)

	activitySvc := service.NewActivityService(activityRepo, cacheRepo, logr, service.ActivityServiceConfig{
		Workers:    cfg.Activities.Workers,
		BufferSize: cfg.Activities.BufferSize,
		FeedLimit:  cfg.Activities.FeedLimit,
		CacheTTL:   cfg.Activities.CacheTTL,
		Metrics:    metricsSvc,
	})

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "teamhub-kb",
	})
	spaceSvc := service.NewSpaceService(spaceRepo, activitySvc, validate, logr)
	pageSvc := service.NewPageService(pageRepo, spaceRepo, activitySvc, metricsSvc, validate, logr)
	documentSvc := service.NewDocumentService(documentRepo, userRepo, activitySvc, metricsSvc, validate, logr)
	commentSvc := service.NewCommentService(commentRepo, pageRepo, activitySvc, validate, logr)
	templateSvc := service.NewTemplateService(templateRepo, activitySvc, validate, logr)

	var adminSvc *service.AdminService
	if cfg.Stats.CacheEnabled {
		adminSvc = service.NewAdminService(userRepo, pageRepo, spaceRepo, cacheRepo, validate, logr, cfg.Stats.CacheTTL)
	} else {
		adminSvc = service.NewAdminService(userRepo, pageRepo, spaceRepo, nil, validate, logr, cfg.Stats.CacheTTL)
	}
	exportSvc := service.NewExportService(pageSvc, activitySvc, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	activitySvc.Start(ctx)
	defer activitySvc.Stop()

	authHandler := handler.NewAuthHandler(authSvc)
	spaceHandler := handler.NewSpaceHandler(spaceSvc)
	pageHandler := handler.NewPageHandler(pageSvc, exportSvc)
	documentHandler := handler.NewDocumentHandler(documentSvc)
	commentHandler := handler.NewCommentHandler(commentSvc)
	templateHandler := handler.NewTemplateHandler(templateSvc)
	activityHandler := handler.NewActivityHandler(activitySvc, exportSvc)
	adminHandler := handler.NewAdminHandler(adminSvc, activitySvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	requireAuth := middleware.JWT(authSvc)
	requireAdmin := middleware.RequireRoles(models.RoleAdmin)
	requireEditor := middleware.RequireRoles(models.RoleAdmin, models.RoleEditor)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password/:token", authHandler.ResetPassword)
		auth.GET("/profile", requireAuth, authHandler.Profile)
		auth.POST("/logout", requireAuth, authHandler.Logout)
	}

	spaces := api.Group("/spaces", requireAuth)
	{
		spaces.GET("", spaceHandler.List)
		spaces.POST("", requireEditor, spaceHandler.Create)
		spaces.GET("/:id", spaceHandler.Get)
		spaces.PUT("/:id", requireEditor, spaceHandler.Update)
		spaces.DELETE("/:id", requireAdmin, spaceHandler.Delete)
	}

	pages := api.Group("/pages", requireAuth)
	{
		pages.GET("", pageHandler.List)
		pages.POST("", pageHandler.Create)
		pages.GET("/search", pageHandler.Search)
		pages.GET("/suggestions", pageHandler.Suggestions)
		pages.GET("/:id", pageHandler.Get)
		pages.PUT("/:id", pageHandler.Update)
		pages.DELETE("/:id", pageHandler.Delete)
		pages.GET("/:id/versions", pageHandler.Versions)
		if cfg.Exports.Enabled {
			pages.GET("/:id/export", pageHandler.ExportPDF)
		}
	}

	documents := api.Group("/documents")
	{
		documents.GET("/public/:id", middleware.OptionalJWT(authSvc), documentHandler.GetPublic)
		documents.GET("", requireAuth, documentHandler.List)
		documents.POST("", requireAuth, documentHandler.Create)
		documents.GET("/search", requireAuth, documentHandler.Search)
		documents.GET("/:id", requireAuth, documentHandler.Get)
		documents.PUT("/:id", requireAuth, documentHandler.Update)
		documents.POST("/:id/share", requireAuth, documentHandler.Share)
	}

	comments := api.Group("/comments", requireAuth)
	{
		comments.POST("", commentHandler.Create)
		comments.GET("/page/:pageId", commentHandler.ListByPage)
		comments.PUT("/:id", commentHandler.Update)
		comments.DELETE("/:id", commentHandler.Delete)
	}

	templates := api.Group("/templates", requireAuth)
	{
		templates.GET("", templateHandler.List)
		templates.POST("", templateHandler.Create)
		templates.GET("/:id", templateHandler.Get)
		templates.PUT("/:id", templateHandler.Update)
		templates.DELETE("/:id", templateHandler.Delete)
		templates.POST("/:id/use", templateHandler.Use)
	}

	activities := api.Group("/activities", requireAuth)
	{
		activities.GET("", activityHandler.Feed)
		if cfg.Exports.Enabled {
			activities.GET("/export", activityHandler.ExportCSV)
		}
	}

	admin := api.Group("/admin", requireAuth, requireAdmin)
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/activities", adminHandler.RecentActivities)
		admin.PUT("/users/:userId/role", adminHandler.UpdateUserRole)
		admin.DELETE("/users/:userId", adminHandler.DeleteUser)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
