package handlers

import (
	"net/http"

	"csone/internal/services"
	"csone/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CallHandler 通话生命周期处理器
type CallHandler struct {
	store  *store.Store
	calls  *services.CallService
	hub    *services.WebSocketHub
	logger *logrus.Logger
}

// NewCallHandler 创建通话处理器
func NewCallHandler(st *store.Store, calls *services.CallService, hub *services.WebSocketHub, logger *logrus.Logger) *CallHandler {
	return &CallHandler{
		store:  st,
		calls:  calls,
		hub:    hub,
		logger: logger,
	}
}

// StartCall 发起通话
// @Summary 发起通话
// @Description 在工单或客户上下文中发起通话，进入 Live 状态并开始计时
// @Tags 通话
// @Accept json
// @Produce json
// @Param call body services.CallStartRequest true "通话上下文"
// @Success 201 {object} services.CallSession
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/calls [post]
func (h *CallHandler) StartCall(c *gin.Context) {
	var req services.CallStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	session, err := h.calls.StartCall(&req)
	if err != nil {
		h.logger.Errorf("Failed to start call: %v", err)
		respondError(c, err, "Failed to start call")
		return
	}

	c.JSON(http.StatusCreated, session)
}

// GetCall 查询通话会话
// @Summary 查询通话会话
// @Tags 通话
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} services.CallSession
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/calls/{id} [get]
func (h *CallHandler) GetCall(c *gin.Context) {
	session, err := h.calls.GetSession(c.Param("id"))
	if err != nil {
		respondError(c, err, "Call session not found")
		return
	}

	c.JSON(http.StatusOK, session)
}

// UpdateCallNotes 更新通话记录（目的/讨论/结果/下一步）
// @Summary 更新通话记录
// @Tags 通话
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param notes body services.CallNotes true "结构化记录"
// @Success 200 {object} services.CallSession
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/calls/{id}/notes [put]
func (h *CallHandler) UpdateCallNotes(c *gin.Context) {
	var notes services.CallNotes
	if err := c.ShouldBindJSON(&notes); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	session, err := h.calls.UpdateNotes(c.Param("id"), &notes)
	if err != nil {
		respondError(c, err, "Failed to update call notes")
		return
	}

	c.JSON(http.StatusOK, session)
}

// EndCall 结束通话并提交最终互动记录
// @Summary 结束通话
// @Tags 通话
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} models.Interaction
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/calls/{id}/end [post]
func (h *CallHandler) EndCall(c *gin.Context) {
	interaction, err := h.calls.EndCall(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Errorf("Failed to end call %s: %v", c.Param("id"), err)
		respondError(c, err, "Failed to end call")
		return
	}

	c.JSON(http.StatusOK, interaction)
}

// RecallCall 重呼已结束的通话
// @Summary 重呼
// @Tags 通话
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} services.CallSession
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/calls/{id}/recall [post]
func (h *CallHandler) RecallCall(c *gin.Context) {
	session, err := h.calls.Recall(c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to recall")
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetCallLog 历史通话记录，最新在前
// @Summary 通话记录
// @Tags 通话
// @Produce json
// @Success 200 {array} models.Interaction
// @Router /api/v1/calls/log [get]
func (h *CallHandler) GetCallLog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.store.CallLog(),
	})
}

// SimulateCallRequest 来电模拟请求
type SimulateCallRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// SimulateCall 模拟来电：按号码识别客户并广播弹屏事件。未识别的
// 号码落到占位客户档案上。
// @Summary 模拟来电
// @Tags 通话
// @Accept json
// @Produce json
// @Param call body SimulateCallRequest true "来电号码"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/simulate/call [post]
func (h *CallHandler) SimulateCall(c *gin.Context) {
	var req SimulateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	customer := h.store.FindCustomerByPhone(req.Phone)
	known := customer.ID != h.store.SentinelCustomerID()

	payload := gin.H{
		"phone":    req.Phone,
		"known":    known,
		"customer": customer,
	}
	if h.hub != nil {
		h.hub.Broadcast(services.EventScreenPop, "", payload)
	}
	h.logger.Infof("Simulated inbound call from %s (known=%v)", req.Phone, known)

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Screen pop dispatched",
		Data:    payload,
	})
}

// RegisterCallRoutes 注册通话相关路由
func RegisterCallRoutes(r *gin.RouterGroup, handler *CallHandler) {
	calls := r.Group("/calls")
	{
		calls.POST("", handler.StartCall)
		calls.GET("/log", handler.GetCallLog)
		calls.GET("/:id", handler.GetCall)
		calls.PUT("/:id/notes", handler.UpdateCallNotes)
		calls.POST("/:id/end", handler.EndCall)
		calls.POST("/:id/recall", handler.RecallCall)
	}
	r.POST("/simulate/call", handler.SimulateCall)
}
