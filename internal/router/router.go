package router

import (
	"time"

	"shoply/config"
	"shoply/internal/handler"
	"shoply/internal/metrics"
	"shoply/internal/middleware"
	"shoply/internal/repository"
	"shoply/internal/service"
	"shoply/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services exposes the long-running pieces main needs to drive (periodic
// cleanup, the AMQP consumer's targets).
type Services struct {
	Notifier *service.Notifier
	Orders   *service.OrderService
	Stock    *service.StockService
	Cleanup  *service.CleanupService
}

func Setup(cfg *config.Config, db *gorm.DB, hub *ws.Hub, rdb *redis.Client, log *zap.Logger) (*gin.Engine, *Services) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Repositories
	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	notificationRepo := repository.NewNotificationRepository(db, cfg.Cleanup.RetentionDays)

	// Services
	notifier := service.NewNotifier(notificationRepo, hub, log)
	orderSvc := service.NewOrderService(orderRepo, notifier, log)
	stockSvc := service.NewStockService(productRepo, notifier, rdb, cfg.Stock.DedupWindow, log)
	cleanupSvc := service.NewCleanupService(
		notificationRepo, rdb,
		notificationRepo.Retention(), cfg.Cleanup.MinInterval,
		cfg.Cleanup.BatchSize, cfg.Cleanup.LazyThreshold,
		log,
	)

	// Handlers
	notificationHandler := handler.NewNotificationHandler(notificationRepo, userRepo, cleanupSvc)
	orderHandler := handler.NewOrderHandler(orderSvc)
	adminHandler := handler.NewAdminHandler(notifier, stockSvc, cleanupSvc, userRepo, log)

	authMw := middleware.AuthRequired(&cfg.JWT)
	// after auth so the limiter keys by user id, not client ip
	rateMw := middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second))

	api := r.Group("/api/v1")
	{
		me := api.Group("/me")
		me.Use(authMw, rateMw)
		{
			me.GET("/notifications", notificationHandler.List)
			me.GET("/notifications/unread-count", notificationHandler.UnreadCount)
			me.POST("/notifications/read", notificationHandler.MarkRead)
			me.POST("/notifications/read-all", notificationHandler.MarkAllRead)
		}

		api.GET("/orders/:id/timeline", authMw, rateMw, orderHandler.Timeline)

		admin := api.Group("/admin")
		admin.Use(authMw, rateMw, middleware.AdminRequired())
		{
			admin.POST("/notifications", adminHandler.SendNotification)
			admin.POST("/orders/:id/status", orderHandler.UpdateStatus)
			admin.POST("/stock/scan", adminHandler.TriggerStockScan)
			admin.POST("/cleanup", adminHandler.TriggerCleanup)
			admin.GET("/cleanup/stats", adminHandler.CleanupStats)
		}
	}

	r.GET("/ws", ws.Serve(&cfg.JWT, hub))

	reg := prometheus.NewRegistry()
	metrics.Register(reg)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":         "ok",
			"sessions":       hub.SessionCount(),
			"stale_sessions": hub.StaleSessions(90 * time.Second),
		})
	})

	return r, &Services{
		Notifier: notifier,
		Orders:   orderSvc,
		Stock:    stockSvc,
		Cleanup:  cleanupSvc,
	}
}
