package controller

import (
	"splitbill_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// currentUserID 读取已认证用户 ID，未认证时写入 401
func currentUserID(ctx *gin.Context) (uint, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return 0, false
	}
	return claims.UserID, true
}
