package util

import (
	"errors"
	"net/http"

	"splitbill_backend/internal/model"
	"splitbill_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
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
	logger.Log.Error("Internal server error",
		zap.Error(err),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
	)
	InternalServerError(c)
}

var errorStatus = []struct {
	status int
	errs   []error
}{
	{http.StatusBadRequest, []error{
		ErrCannotFriendSelf, ErrSelfPaymentRequest, ErrInvalidAmount, ErrInvalidCurrency, ErrInvalidDirection,
		ErrUnknownAction, ErrInvalidRole, ErrBillEmpty, ErrUnassignedItem, ErrInvalidFile,
		model.ErrInvalidPaymentStatus,
	}},
	{http.StatusUnauthorized, []error{ErrInvalidCredentials}},
	{http.StatusForbidden, []error{
		ErrPermissionDenied, ErrNotGroupMember, ErrNotGroupAdmin, ErrNotFriends, ErrUserDisabled,
	}},
	{http.StatusNotFound, []error{
		ErrUserNotFound, ErrFriendRequestNotFound, ErrGroupNotFound, ErrInvitationNotFound,
		ErrPaymentRequestNotFound, ErrBillNotFound, ErrBillItemNotFound,
	}},
	{http.StatusConflict, []error{
		ErrEmailRegistered, ErrAlreadyFriends, ErrFriendRequestExists, ErrUserBlocked,
		ErrAlreadyMember, ErrLastAdmin, ErrInvitationUsed, ErrInvalidTransition,
		ErrBillAlreadyRequested,
	}},
	{http.StatusGone, []error{ErrInvitationExpired}},
}

// StatusFor 返回业务错误对应的 HTTP 状态码，未知错误返回 500
func StatusFor(err error) int {
	for _, group := range errorStatus {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}
	return http.StatusInternalServerError
}

// HandleServiceError 将 service 层错误写入响应
func HandleServiceError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		LogInternalError(c, err)
		return
	}
	Error(c, status, err.Error())
}
