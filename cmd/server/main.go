package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"csone/internal/config"
	"csone/internal/handlers"
	"csone/internal/observability"
	"csone/internal/services"
	"csone/internal/store"
	"csone/pkg/recordings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	// 读取配置文件（默认 ./config.yml）并初始化日志
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	cfg := config.Load()
	if err := config.InitLogger(cfg); err != nil {
		logrus.Warnf("init logger: %v", err)
	}
	appLogger := logrus.StandardLogger()

	// 链路追踪（可选）
	if cfg.Monitoring.Tracing.Enabled {
		shutdown, err := observability.SetupTracing(context.Background(), cfg)
		if err != nil {
			appLogger.Warnf("Failed to setup tracing: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(ctx)
			}()
		}
	}

	// 记录存储：内存数据集，启动时加载演示数据
	recordStore := store.NewSeeded(appLogger)

	// WebSocket 事件中心
	wsHub := services.NewWebSocketHub(appLogger)
	go wsHub.Run()

	// 录音后端（可选）：不可用时通话结束使用占位转写
	var recordingsClient recordings.RecordingsInterface
	if cfg.Recordings.Enabled {
		recordingsClient = recordings.NewClient(cfg.Recordings.ClientConfig(), appLogger)
	}

	// 初始化业务服务
	callService := services.NewCallService(recordStore, wsHub, recordingsClient, appLogger)
	aiService := services.NewAIService(&cfg.AI.OpenAI, recordStore, appLogger)
	statisticsService := services.NewStatisticsService(recordStore, appLogger)

	// 初始化 Gin
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddlewareWithConfig(cfg))
	if cfg.Monitoring.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Monitoring.Tracing.ServiceName))
	}

	// 健康检查
	healthHandler := handlers.NewHealthHandler()
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)

	// WebSocket
	wsHandler := handlers.NewWebSocketHandler(wsHub)
	r.GET("/ws", wsHandler.HandleWebSocket)
	r.GET("/ws/stats", wsHandler.GetStats)

	// API 路由组
	api := r.Group("/api/v1")
	handlers.RegisterCustomerRoutes(api, handlers.NewCustomerHandler(recordStore, appLogger))
	handlers.RegisterTicketRoutes(api, handlers.NewTicketHandler(recordStore, appLogger))
	handlers.RegisterCallRoutes(api, handlers.NewCallHandler(recordStore, callService, wsHub, appLogger))
	handlers.RegisterAIRoutes(api, handlers.NewAIHandler(aiService, recordStore, appLogger))
	handlers.RegisterReportRoutes(api, handlers.NewReportHandler(statisticsService, appLogger))
	api.GET("/agents", handlers.NewAgentHandler(recordStore).ListAgents)

	// 启动服务器
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: r}
	go func() {
		appLogger.Infof("Starting server on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	callService.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatalf("Server forced to shutdown: %v", err)
	}
	appLogger.Info("Server exited")
}

// corsMiddlewareWithConfig CORS 中间件
func corsMiddlewareWithConfig(cfg *config.Config) gin.HandlerFunc {
	allowedOrigins := "*"
	allowedMethods := "GET, POST, PUT, DELETE, OPTIONS"
	allowedHeaders := "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization"
	if cfg != nil && cfg.Security.CORS.Enabled {
		if len(cfg.Security.CORS.AllowedOrigins) > 0 {
			allowedOrigins = strings.Join(cfg.Security.CORS.AllowedOrigins, ", ")
		}
		if len(cfg.Security.CORS.AllowedMethods) > 0 {
			allowedMethods = strings.Join(cfg.Security.CORS.AllowedMethods, ", ")
		}
		if len(cfg.Security.CORS.AllowedHeaders) > 0 {
			allowedHeaders = strings.Join(cfg.Security.CORS.AllowedHeaders, ", ")
		}
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowedOrigins)
		c.Header("Access-Control-Allow-Methods", allowedMethods)
		c.Header("Access-Control-Allow-Headers", allowedHeaders)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
