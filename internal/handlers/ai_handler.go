package handlers

import (
	"net/http"

	"csone/internal/services"
	"csone/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AIHandler AI 能力处理器：通话摘要与客户管理助手
type AIHandler struct {
	ai     services.AIServiceInterface
	store  *store.Store
	logger *logrus.Logger
}

// NewAIHandler 创建 AI 处理器
func NewAIHandler(ai services.AIServiceInterface, st *store.Store, logger *logrus.Logger) *AIHandler {
	return &AIHandler{
		ai:     ai,
		store:  st,
		logger: logger,
	}
}

// SummarizeCallRequest 通话摘要请求；音频以 data URI 传入，可选地把
// 结果回填到某条 Call 互动上
type SummarizeCallRequest struct {
	AudioDataURI  string `json:"audioDataUri" binding:"required"`
	InteractionID string `json:"interactionId"`
}

// SummarizeCall 通话摘要：返回摘要、情绪和关键话题
// @Summary 通话摘要
// @Description 对通话录音生成摘要、情绪判断与关键话题列表
// @Tags AI
// @Accept json
// @Produce json
// @Param request body SummarizeCallRequest true "摘要请求"
// @Success 200 {object} services.CallSummary
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/ai/summarize-call [post]
func (h *AIHandler) SummarizeCall(c *gin.Context) {
	var req SummarizeCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	summary, err := h.ai.SummarizeCall(c.Request.Context(), req.AudioDataURI)
	if err != nil {
		h.logger.Errorf("Failed to summarize call: %v", err)
		respondError(c, err, "Failed to summarize call")
		return
	}

	if req.InteractionID != "" {
		if _, err := h.store.AttachCallSummary(req.InteractionID, summary.Summary, summary.Sentiment, summary.KeyTopics); err != nil {
			h.logger.Errorf("Failed to attach summary to interaction %s: %v", req.InteractionID, err)
			respondError(c, err, "Failed to attach summary")
			return
		}
	}

	c.JSON(http.StatusOK, summary)
}

// ManageCustomerRequest 客户管理助手请求
type ManageCustomerRequest struct {
	Query string `json:"query" binding:"required"`
}

// ManageCustomer 自然语言客户管理：助手可调用建档工具创建客户
// @Summary 客户管理助手
// @Tags AI
// @Accept json
// @Produce json
// @Param request body ManageCustomerRequest true "自然语言指令"
// @Success 200 {object} services.AgentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/ai/manage-customer [post]
func (h *AIHandler) ManageCustomer(c *gin.Context) {
	var req ManageCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.ai.ManageCustomer(c.Request.Context(), req.Query)
	if err != nil {
		h.logger.Errorf("Customer management agent failed: %v", err)
		respondError(c, err, "Agent request failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RegisterAIRoutes 注册 AI 相关路由
func RegisterAIRoutes(r *gin.RouterGroup, handler *AIHandler) {
	ai := r.Group("/ai")
	{
		ai.POST("/summarize-call", handler.SummarizeCall)
		ai.POST("/manage-customer", handler.ManageCustomer)
	}
}
