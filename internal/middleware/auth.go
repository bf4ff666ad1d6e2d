package middleware

import (
	"context"
	"strings"

	"splitbill_backend/internal/config"
	"splitbill_backend/internal/util"
	"splitbill_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// extractToken 依次从 Authorization 头、会话 Cookie、token 查询参数中读取
func extractToken(c *gin.Context, cookieName string) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		if token := strings.TrimPrefix(authHeader, "Bearer "); token != "" {
			return token
		}
	}
	if cookieName != "" {
		if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
			return cookie
		}
	}
	return c.Query("token")
}

func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c, cfg.JWT.CookieName)
		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("jwt parse failed", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

// TryAuthMiddleware 可选认证：有合法 token 时写入用户，否则以游客身份继续
func TryAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := extractToken(c, cfg.JWT.CookieName); tokenString != "" {
			if claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret); err == nil {
				c.Set("user", claims)
			}
		}
		c.Next()
	}
}

type UserActivityRepo interface {
	IsActive(ctx context.Context, userID uint) (bool, error)
	UpdateLastSeen(userID uint) error
}

// ActivityMiddleware 确认账号仍存在且未被禁用，并记录最近活跃时间
func ActivityMiddleware(repo UserActivityRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims == nil {
			c.Next()
			return
		}

		active, err := repo.IsActive(c.Request.Context(), claims.UserID)
		if err != nil {
			util.HandleServiceError(c, err)
			c.Abort()
			return
		}
		if !active {
			util.HandleServiceError(c, util.ErrUserDisabled)
			c.Abort()
			return
		}

		// 异步更新，不阻塞主流程
		go repo.UpdateLastSeen(claims.UserID)
		c.Next()
	}
}
