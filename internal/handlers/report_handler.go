package handlers

import (
	"net/http"

	"csone/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ReportHandler 运营报表处理器
type ReportHandler struct {
	stats  *services.StatisticsService
	logger *logrus.Logger
}

// NewReportHandler 创建报表处理器
func NewReportHandler(stats *services.StatisticsService, logger *logrus.Logger) *ReportHandler {
	return &ReportHandler{
		stats:  stats,
		logger: logger,
	}
}

// GetOverview 运营总览：客户/工单/互动/通话与 AI 调用统计
// @Summary 运营总览
// @Tags 报表
// @Produce json
// @Success 200 {object} services.OverviewStats
// @Router /api/v1/reports/overview [get]
func (h *ReportHandler) GetOverview(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.stats.Overview(),
	})
}

// RegisterReportRoutes 注册报表相关路由
func RegisterReportRoutes(r *gin.RouterGroup, handler *ReportHandler) {
	reports := r.Group("/reports")
	{
		reports.GET("/overview", handler.GetOverview)
	}
}
