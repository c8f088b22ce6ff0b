package handlers

import (
	"net/http"

	"csone/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CustomerHandler 客户管理处理器
type CustomerHandler struct {
	store  *store.Store
	logger *logrus.Logger
}

// NewCustomerHandler 创建客户处理器
func NewCustomerHandler(st *store.Store, logger *logrus.Logger) *CustomerHandler {
	return &CustomerHandler{
		store:  st,
		logger: logger,
	}
}

// CreateCustomer 创建客户
// @Summary 创建客户
// @Description 创建新的客户档案，默认打 "New Customer" 标签
// @Tags 客户管理
// @Accept json
// @Produce json
// @Param customer body store.CustomerCreateRequest true "客户信息"
// @Success 201 {object} models.Customer
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/customers [post]
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req store.CustomerCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	customer, err := h.store.CreateCustomer(&req)
	if err != nil {
		h.logger.Errorf("Failed to create customer: %v", err)
		respondError(c, err, "Failed to create customer")
		return
	}

	c.JSON(http.StatusCreated, customer)
}

// ListCustomers 客户列表
// @Summary 客户列表
// @Description 返回全部未归档客户
// @Tags 客户管理
// @Produce json
// @Success 200 {array} models.Customer
// @Router /api/v1/customers [get]
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.store.ListCustomers(),
	})
}

// GetCustomer 获取客户详情
// @Summary 获取客户详情
// @Tags 客户管理
// @Produce json
// @Param id path string true "客户ID"
// @Success 200 {object} models.Customer
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/customers/{id} [get]
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customer, err := h.store.GetCustomer(c.Param("id"))
	if err != nil {
		respondError(c, err, "Customer not found")
		return
	}

	c.JSON(http.StatusOK, customer)
}

// GetCustomerTickets 客户的工单列表，按更新时间倒序
// @Summary 客户工单
// @Tags 客户管理
// @Produce json
// @Param id path string true "客户ID"
// @Success 200 {array} models.Ticket
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/customers/{id}/tickets [get]
func (h *CustomerHandler) GetCustomerTickets(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.store.GetCustomer(id); err != nil {
		respondError(c, err, "Customer not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.store.TicketsForCustomer(id),
	})
}

// GetCustomerInteractions 客户的互动时间线，最新在前
// @Summary 客户互动时间线
// @Tags 客户管理
// @Produce json
// @Param id path string true "客户ID"
// @Success 200 {array} models.Interaction
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/customers/{id}/interactions [get]
func (h *CustomerHandler) GetCustomerInteractions(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.store.GetCustomer(id); err != nil {
		respondError(c, err, "Customer not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.store.InteractionsForCustomer(id),
	})
}

// AddCustomerInteraction 在客户档案上直接记录一条互动（不挂工单）
// @Summary 记录客户互动
// @Tags 客户管理
// @Accept json
// @Produce json
// @Param id path string true "客户ID"
// @Param interaction body store.InteractionCreateRequest true "互动内容"
// @Success 201 {object} models.Interaction
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/customers/{id}/interactions [post]
func (h *CustomerHandler) AddCustomerInteraction(c *gin.Context) {
	var req store.InteractionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}
	req.CustomerID = c.Param("id")

	interaction, err := h.store.AppendInteraction(&req)
	if err != nil {
		h.logger.Errorf("Failed to log interaction for customer %s: %v", req.CustomerID, err)
		respondError(c, err, "Failed to log interaction")
		return
	}

	c.JSON(http.StatusCreated, interaction)
}

// SearchMergeCandidates 客户合并搜索：名称/电话子串匹配，排除已选记录
// @Summary 合并候选搜索
// @Tags 客户管理
// @Produce json
// @Param q query string true "搜索词"
// @Param exclude query string false "排除的客户ID"
// @Success 200 {array} models.Customer
// @Router /api/v1/customers/merge/search [get]
func (h *CustomerHandler) SearchMergeCandidates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.store.SearchCustomers(c.Query("q"), c.Query("exclude")),
	})
}

// CustomerMergeRequest 客户合并请求；提交前必须显式确认，合并不可撤销
type CustomerMergeRequest struct {
	PrimaryID   string `json:"primaryId" binding:"required"`
	DuplicateID string `json:"duplicateId" binding:"required"`
	Confirm     bool   `json:"confirm"`
}

// MergeCustomers 客户合并：工单/互动/订单并入主档案，重复档案归档
// @Summary 合并客户档案
// @Tags 客户管理
// @Accept json
// @Produce json
// @Param merge body CustomerMergeRequest true "合并请求"
// @Success 200 {object} store.CustomerMergeResult
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/customers/merge [post]
func (h *CustomerHandler) MergeCustomers(c *gin.Context) {
	var req CustomerMergeRequest
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
			Message: "Merging profiles cannot be undone; set confirm to proceed",
		})
		return
	}

	result, err := h.store.MergeCustomers(req.PrimaryID, req.DuplicateID)
	if err != nil {
		h.logger.Errorf("Failed to merge customer %s into %s: %v", req.DuplicateID, req.PrimaryID, err)
		respondError(c, err, "Failed to merge profiles")
		return
	}

	c.JSON(http.StatusOK, result)
}

// RegisterCustomerRoutes 注册客户管理相关路由
func RegisterCustomerRoutes(r *gin.RouterGroup, handler *CustomerHandler) {
	customers := r.Group("/customers")
	{
		customers.POST("", handler.CreateCustomer)
		customers.GET("", handler.ListCustomers)
		customers.GET("/merge/search", handler.SearchMergeCandidates)
		customers.POST("/merge", handler.MergeCustomers)
		customers.GET("/:id", handler.GetCustomer)
		customers.GET("/:id/tickets", handler.GetCustomerTickets)
		customers.GET("/:id/interactions", handler.GetCustomerInteractions)
		customers.POST("/:id/interactions", handler.AddCustomerInteraction)
	}
}
