package main

import (
	"context"
	"errors"
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

	_ "github.com/quotecraft/machine-quote-api/api/swagger"
	"github.com/quotecraft/machine-quote-api/internal/handler"
	"github.com/quotecraft/machine-quote-api/internal/middleware"
	"github.com/quotecraft/machine-quote-api/internal/repository"
	"github.com/quotecraft/machine-quote-api/internal/service"
	"github.com/quotecraft/machine-quote-api/pkg/cache"
	"github.com/quotecraft/machine-quote-api/pkg/config"
	"github.com/quotecraft/machine-quote-api/pkg/database"
	"github.com/quotecraft/machine-quote-api/pkg/jobs"
	"github.com/quotecraft/machine-quote-api/pkg/logger"
	corsmiddleware "github.com/quotecraft/machine-quote-api/pkg/middleware/cors"
	reqidmiddleware "github.com/quotecraft/machine-quote-api/pkg/middleware/requestid"
	"github.com/quotecraft/machine-quote-api/pkg/storage"
)

// @title Machine Quote API
// @version 1.0.0
// @description Machine configuration and quotation backend
// @BasePath /api/v1
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, catalog caching disabled", "error", err)
		redisClient = nil
	}

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	machineRepo := repository.NewMachineRepository(db)
	configRepo := repository.NewConfigurationRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled && redisClient != nil)
	roleSvc := service.NewRoleService(roleRepo, logr)
	tokenSvc := service.NewTokenService(tokenRepo, logr, service.TokenConfig{
		Secret: cfg.JWT.RefreshSecret,
		Expiry: cfg.JWT.RefreshExpiration,
		Issuer: cfg.JWT.Issuer,
	})
	authSvc := service.NewAuthService(userRepo, roleSvc, tokenSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	customerSvc := service.NewCustomerService(customerRepo, quotationRepo, validate, logr)
	groupSvc := service.NewMachineGroupService(machineRepo, cacheSvc, validate, logr)
	machineSvc := service.NewMachineService(machineRepo, configRepo, cacheSvc, validate, logr)
	tabSvc := service.NewConfigurationTabService(machineRepo, configRepo, cacheSvc, validate, logr)
	configSvc := service.NewConfigurationService(configRepo, cacheSvc, validate, logr)

	mailSvc := service.NewMailService(service.NewLogMailSender(logr), customerRepo, metrics, jobs.QueueConfig{
		Workers:    cfg.Mailer.Workers,
		MaxRetries: cfg.Mailer.Retries,
		RetryDelay: cfg.Mailer.RetryDelay,
		Logger:     logr,
	}, logr)
	mailSvc.Start(ctx)
	defer mailSvc.Stop()

	quotationSvc := service.NewQuotationService(quotationRepo, customerRepo, machineSvc, configRepo, mailSvc, validate, logr)
	exportSvc := service.NewExportService(quotationSvc, store, signer, cfg.APIPrefix+"/downloads", logr)

	authHandler := handler.NewAuthHandler(authSvc)
	customerHandler := handler.NewCustomerHandler(customerSvc)
	groupHandler := handler.NewMachineGroupHandler(groupSvc)
	machineHandler := handler.NewMachineHandler(machineSvc)
	tabHandler := handler.NewConfigurationTabHandler(tabSvc)
	configHandler := handler.NewConfigurationHandler(configSvc)
	quotationHandler := handler.NewQuotationHandler(quotationSvc, exportSvc)
	downloadHandler := handler.NewDownloadHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Metrics)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/logout-all", middleware.JWT(authSvc), authHandler.LogoutAll)
		auth.GET("/profile", middleware.JWT(authSvc), authHandler.Profile)
	}

	// Signed tokens carry the authorization for downloads.
	api.GET("/downloads/:token", downloadHandler.Download)

	protected := api.Group("", middleware.JWT(authSvc))
	{
		customers := protected.Group("/customers")
		{
			customers.GET("", customerHandler.List)
			customers.POST("", customerHandler.Create)
			customers.GET("/:id", customerHandler.Get)
			customers.PUT("/:id", customerHandler.Update)
			customers.DELETE("/:id", customerHandler.Delete)
			customers.GET("/:id/quotations", customerHandler.Quotations)
		}

		groups := protected.Group("/machine-groups")
		{
			groups.GET("", groupHandler.List)
			groups.GET("/:id", groupHandler.Get)
			groups.POST("", middleware.RequireAdmin(), groupHandler.Create)
			groups.PUT("/:id", middleware.RequireAdmin(), groupHandler.Update)
			groups.DELETE("/:id", middleware.RequireAdmin(), groupHandler.Delete)
		}

		machines := protected.Group("/machines")
		{
			machines.GET("", machineHandler.List)
			machines.GET("/:id", machineHandler.Get)
			machines.GET("/:id/configuration", machineHandler.Configuration)
			machines.GET("/:id/tabs", tabHandler.List)
			machines.POST("", middleware.RequireAdmin(), machineHandler.Create)
			machines.PUT("/:id", middleware.RequireAdmin(), machineHandler.Update)
			machines.DELETE("/:id", middleware.RequireAdmin(), machineHandler.Delete)
			machines.POST("/:id/tabs", middleware.RequireAdmin(), tabHandler.Create)
		}

		tabs := protected.Group("/tabs", middleware.RequireAdmin())
		{
			tabs.PUT("/:tabId", tabHandler.Update)
			tabs.DELETE("/:tabId", tabHandler.Delete)
			tabs.POST("/:tabId/configurations", tabHandler.Assign)
		}

		assignments := protected.Group("/tab-configurations", middleware.RequireAdmin())
		{
			assignments.PUT("/:assignmentId", tabHandler.UpdateAssignment)
			assignments.DELETE("/:assignmentId", tabHandler.RemoveAssignment)
		}

		configurations := protected.Group("/configurations")
		{
			configurations.GET("", configHandler.List)
			configurations.GET("/:id", configHandler.Get)
			configurations.GET("/:id/dependencies", configHandler.Dependencies)
			configurations.POST("/validate", configHandler.ValidateValue)
			configurations.POST("", middleware.RequireAdmin(), configHandler.Create)
			configurations.PUT("/:id", middleware.RequireAdmin(), configHandler.Update)
			configurations.DELETE("/:id", middleware.RequireAdmin(), configHandler.Delete)
			configurations.POST("/:id/options", middleware.RequireAdmin(), configHandler.CreateOption)
			configurations.POST("/:id/rules", middleware.RequireAdmin(), configHandler.CreateRule)
		}

		options := protected.Group("/configuration-options", middleware.RequireAdmin())
		{
			options.PUT("/:optionId", configHandler.UpdateOption)
			options.DELETE("/:optionId", configHandler.DeleteOption)
		}

		protected.DELETE("/validation-rules/:ruleId", middleware.RequireAdmin(), configHandler.DeleteRule)
		protected.POST("/configuration-dependencies", middleware.RequireAdmin(), configHandler.CreateDependency)
		protected.DELETE("/configuration-dependencies/:dependencyId", middleware.RequireAdmin(), configHandler.DeleteDependency)

		quotations := protected.Group("/quotations")
		{
			quotations.GET("", quotationHandler.List)
			quotations.POST("", quotationHandler.Create)
			quotations.GET("/:id", quotationHandler.Get)
			quotations.PUT("/:id", quotationHandler.Update)
			quotations.DELETE("/:id", quotationHandler.Delete)
			quotations.PUT("/:id/status", quotationHandler.UpdateStatus)
			quotations.GET("/:id/configurations", quotationHandler.Configurations)
			quotations.POST("/:id/configurations", quotationHandler.SetConfiguration)
			quotations.PUT("/:id/configurations", quotationHandler.SetConfiguration)
			quotations.DELETE("/:id/configurations/:configurationId", quotationHandler.RemoveConfiguration)
			quotations.GET("/:id/configurations/:configurationId/history", quotationHandler.ConfigurationHistory)
			quotations.GET("/:id/versions", quotationHandler.Versions)
			quotations.POST("/:id/versions", quotationHandler.CreateVersion)
			quotations.POST("/:id/clone", quotationHandler.Clone)
			quotations.GET("/:id/price", quotationHandler.Price)
			quotations.GET("/:id/pdf", quotationHandler.PDF)
			quotations.POST("/:id/export", quotationHandler.Export)
			quotations.POST("/:id/send", quotationHandler.Send)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
