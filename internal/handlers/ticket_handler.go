package handlers

import (
	"net/http"

	"csone/internal/models"
	"csone/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TicketHandler 工单管理处理器
type TicketHandler struct {
	store  *store.Store
	logger *logrus.Logger
}

// NewTicketHandler 创建工单处理器
func NewTicketHandler(st *store.Store, logger *logrus.Logger) *TicketHandler {
	return &TicketHandler{
		store:  st,
		logger: logger,
	}
}

// CreateTicket 创建工单
// @Summary 创建工单
// @Description 为已有客户创建工单，自动生成系统互动记录
// @Tags 工单管理
// @Accept json
// @Produce json
// @Param ticket body store.TicketCreateRequest true "工单信息"
// @Success 201 {object} models.Ticket
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/tickets [post]
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	var req store.TicketCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	ticket, err := h.store.CreateTicket(&req)
	if err != nil {
		h.logger.Errorf("Failed to create ticket for customer %s: %v", req.CustomerID, err)
		respondError(c, err, "Failed to create ticket")
		return
	}

	c.JSON(http.StatusCreated, ticket)
}

// ListTickets 工单列表，按更新时间倒序
// @Summary 工单列表
// @Tags 工单管理
// @Produce json
// @Success 200 {array} models.Ticket
// @Router /api/v1/tickets [get]
func (h *TicketHandler) ListTickets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.store.ListTickets(),
	})
}

// GetTicket 获取工单详情
// @Summary 获取工单详情
// @Tags 工单管理
// @Produce json
// @Param id path string true "工单ID"
// @Success 200 {object} models.Ticket
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tickets/{id} [get]
func (h *TicketHandler) GetTicket(c *gin.Context) {
	ticket, err := h.store.GetTicket(c.Param("id"))
	if err != nil {
		respondError(c, err, "Ticket not found")
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// TicketStatusRequest 工单状态更新请求
type TicketStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateTicketStatus 更新工单状态
// @Summary 更新工单状态
// @Tags 工单管理
// @Accept json
// @Produce json
// @Param id path string true "工单ID"
// @Param status body TicketStatusRequest true "新状态"
// @Success 200 {object} models.Ticket
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tickets/{id}/status [put]
func (h *TicketHandler) UpdateTicketStatus(c *gin.Context) {
	var req TicketStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	ticket, err := h.store.UpdateTicketStatus(c.Param("id"), models.TicketStatus(req.Status))
	if err != nil {
		respondError(c, err, "Failed to update ticket status")
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// TicketAgentRequest 工单改派请求
type TicketAgentRequest struct {
	AgentID string `json:"agentId" binding:"required"`
}

// ReassignTicketAgent 改派工单处理客服
// @Summary 改派工单客服
// @Tags 工单管理
// @Accept json
// @Produce json
// @Param id path string true "工单ID"
// @Param agent body TicketAgentRequest true "客服ID"
// @Success 200 {object} models.Ticket
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tickets/{id}/agent [put]
func (h *TicketHandler) ReassignTicketAgent(c *gin.Context) {
	var req TicketAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	ticket, err := h.store.ReassignTicketAgent(c.Param("id"), req.AgentID)
	if err != nil {
		respondError(c, err, "Failed to reassign ticket")
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// GetTicketInteractions 工单的互动时间线，最新在前
// @Summary 工单互动时间线
// @Tags 工单管理
// @Produce json
// @Param id path string true "工单ID"
// @Success 200 {array} models.Interaction
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tickets/{id}/interactions [get]
func (h *TicketHandler) GetTicketInteractions(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.store.GetTicket(id); err != nil {
		respondError(c, err, "Ticket not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.store.InteractionsForTicket(id),
	})
}

// AddTicketInteraction 在工单上记录一条互动
// @Summary 记录工单互动
// @Tags 工单管理
// @Accept json
// @Produce json
// @Param id path string true "工单ID"
// @Param interaction body store.InteractionCreateRequest true "互动内容"
// @Success 201 {object} models.Interaction
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/tickets/{id}/interactions [post]
func (h *TicketHandler) AddTicketInteraction(c *gin.Context) {
	var req store.InteractionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}
	req.TicketID = c.Param("id")

	interaction, err := h.store.AppendInteraction(&req)
	if err != nil {
		h.logger.Errorf("Failed to log interaction for ticket %s: %v", req.TicketID, err)
		respondError(c, err, "Failed to log interaction")
		return
	}

	c.JSON(http.StatusCreated, interaction)
}

// SearchMergeCandidates 工单合并搜索：主题/编号子串匹配，排除已选工单
// @Summary 工单合并候选搜索
// @Tags 工单管理
// @Produce json
// @Param q query string true "搜索词"
// @Param exclude query string false "排除的工单ID"
// @Success 200 {array} models.Ticket
// @Router /api/v1/tickets/merge/search [get]
func (h *TicketHandler) SearchMergeCandidates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.store.SearchTickets(c.Query("q"), c.Query("exclude")),
	})
}

// TicketMergeRequest 工单合并请求；仅允许同一客户下的工单合并
type TicketMergeRequest struct {
	PrimaryID string `json:"primaryId" binding:"required"`
	SourceID  string `json:"sourceId" binding:"required"`
	Confirm   bool   `json:"confirm"`
}

// MergeTickets 工单合并：来源工单的互动并入主工单，来源关闭
// @Summary 合并工单
// @Tags 工单管理
// @Accept json
// @Produce json
// @Param merge body TicketMergeRequest true "合并请求"
// @Success 200 {object} store.TicketMergeResult
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/tickets/merge [post]
func (h *TicketHandler) MergeTickets(c *gin.Context) {
	var req TicketMergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}
	if !req.Confirm {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Confirmation required",
			Message: "Merging tickets cannot be undone; set confirm to proceed",
		})
		return
	}

	result, err := h.store.MergeTickets(req.PrimaryID, req.SourceID)
	if err != nil {
		h.logger.Errorf("Failed to merge ticket %s into %s: %v", req.SourceID, req.PrimaryID, err)
		respondError(c, err, "Failed to merge tickets")
		return
	}

	c.JSON(http.StatusOK, result)
}

// RegisterTicketRoutes 注册工单管理相关路由
func RegisterTicketRoutes(r *gin.RouterGroup, handler *TicketHandler) {
	tickets := r.Group("/tickets")
	{
		tickets.POST("", handler.CreateTicket)
		tickets.GET("", handler.ListTickets)
		tickets.GET("/merge/search", handler.SearchMergeCandidates)
		tickets.POST("/merge", handler.MergeTickets)
		tickets.GET("/:id", handler.GetTicket)
		tickets.PUT("/:id/status", handler.UpdateTicketStatus)
		tickets.PUT("/:id/agent", handler.ReassignTicketAgent)
		tickets.GET("/:id/interactions", handler.GetTicketInteractions)
		tickets.POST("/:id/interactions", handler.AddTicketInteraction)
	}
}
