package handlers

import (
	"errors"
	"net/http"

	"csone/internal/services"
	"csone/internal/store"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// SuccessResponse 成功响应结构
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// statusForError 将存储/服务错误映射为 HTTP 状态码
func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrSameCustomerRequired),
		errors.Is(err, store.ErrSelfMerge),
		errors.Is(err, store.ErrSentinelCustomer):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrCallState):
		return http.StatusConflict
	case errors.Is(err, services.ErrAIUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error, title string) {
	c.JSON(statusForError(err), ErrorResponse{
		Error:   title,
		Message: err.Error(),
	})
}
