package util

import (
	"net/http"
	"olp_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.FromContext(c.Request.Context()).Error("Internal server error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	InternalServerError(c)
}

// StatusFor maps an error kind to the HTTP status reported to the caller.
func StatusFor(kind ErrorKind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindPolicyViolation:
		return http.StatusConflict
	case KindEmptyPool:
		return http.StatusUnprocessableEntity
	case KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// HandleError writes business errors with their message and hides everything else behind a 500.
func HandleError(c *gin.Context, err error) {
	kind := KindOf(err)
	if kind == KindInternal {
		LogInternalError(c, err)
		return
	}
	Error(c, StatusFor(kind), err.Error())
}
