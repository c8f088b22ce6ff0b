package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"csone/internal/config"
	"csone/internal/handlers"
	"csone/internal/services"
	"csone/internal/store"
	"csone/pkg/recordings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the csone application",
	Long:  `Run the csone application`,
	Run:   run,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run(cmd *cobra.Command, args []string) {
	// 加载配置
	cfg := config.Load()

	// 初始化日志系统
	if err := config.InitLogger(cfg); err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}
	appLogger := logrus.StandardLogger()

	// 初始化服务
	recordStore := store.NewSeeded(appLogger)
	wsHub := services.NewWebSocketHub(appLogger)

	var recordingsClient recordings.RecordingsInterface
	if cfg.Recordings.Enabled {
		recordingsClient = recordings.NewClient(cfg.Recordings.ClientConfig(), appLogger)
	}

	callService := services.NewCallService(recordStore, wsHub, recordingsClient, appLogger)
	aiService := services.NewAIService(&cfg.AI.OpenAI, recordStore, appLogger)
	statisticsService := services.NewStatisticsService(recordStore, appLogger)

	// 启动服务
	go wsHub.Run()

	// 设置 Gin 模式
	if cfg.Server.Host != "localhost" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := setupRouter(recordStore, wsHub, callService, aiService, statisticsService, appLogger)

	// 创建服务器
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	// 启动服务器
	go func() {
		logrus.Infof("Starting server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server failed to start: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 停掉在跑的通话计时器
	callService.Shutdown()

	// 关闭服务器
	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func setupRouter(
	recordStore *store.Store,
	wsHub *services.WebSocketHub,
	callService *services.CallService,
	aiService services.AIServiceInterface,
	statisticsService *services.StatisticsService,
	appLogger *logrus.Logger,
) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// 健康检查
	healthHandler := handlers.NewHealthHandler()
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API 路由组
	api := router.Group("/api/v1")
	{
		// WebSocket 连接
		wsHandler := handlers.NewWebSocketHandler(wsHub)
		api.GET("/ws", wsHandler.HandleWebSocket)
		api.GET("/ws/stats", wsHandler.GetStats)

		// 业务路由
		handlers.RegisterCustomerRoutes(api, handlers.NewCustomerHandler(recordStore, appLogger))
		handlers.RegisterTicketRoutes(api, handlers.NewTicketHandler(recordStore, appLogger))
		handlers.RegisterCallRoutes(api, handlers.NewCallHandler(recordStore, callService, wsHub, appLogger))
		handlers.RegisterAIRoutes(api, handlers.NewAIHandler(aiService, recordStore, appLogger))
		handlers.RegisterReportRoutes(api, handlers.NewReportHandler(statisticsService, appLogger))
		api.GET("/agents", handlers.NewAgentHandler(recordStore).ListAgents)
	}

	return router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
