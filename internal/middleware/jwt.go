package middleware

import (
	"net/http"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/repository"
	"comfycloud/pkg/jwt"
	"comfycloud/pkg/log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StrictAuth rejects any request without a valid, unrevoked token.
// Invalid, expired and revoked tokens all read as a plain 401; the
// client cannot distinguish why.
func StrictAuth(j *jwt.JWT, tokens repository.TokenCacheRepository, logger *log.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !authenticate(ctx, j, tokens, logger) {
			return
		}
		ctx.Next()
	}
}

// AdminAuth is StrictAuth plus a role gate. A valid token without the
// admin role is a 403, not a 401.
func AdminAuth(j *jwt.JWT, tokens repository.TokenCacheRepository, logger *log.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !authenticate(ctx, j, tokens, logger) {
			return
		}
		claims, ok := ctx.MustGet("claims").(*jwt.MyCustomClaims)
		if !ok || claims.Role != "admin" {
			v1.HandleError(ctx, http.StatusForbidden, v1.ErrForbidden)
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func authenticate(ctx *gin.Context, j *jwt.JWT, tokens repository.TokenCacheRepository, logger *log.Logger) bool {
	tokenString := ctx.Request.Header.Get("Authorization")
	if tokenString == "" {
		logger.WithContext(ctx).Warn("no token", zap.Any("url", ctx.Request.URL))
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized)
		ctx.Abort()
		return false
	}

	claims, err := j.ParseToken(tokenString)
	if err != nil {
		logger.WithContext(ctx).Error("token error", zap.Any("url", ctx.Request.URL), zap.Error(err))
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized)
		ctx.Abort()
		return false
	}

	revoked, err := tokens.IsRevoked(ctx, tokenString)
	if err != nil || revoked {
		if err != nil {
			logger.WithContext(ctx).Error("revocation check failed", zap.Error(err))
		}
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized)
		ctx.Abort()
		return false
	}

	ctx.Set("claims", claims)
	ctx.Set("token", tokenString)
	logger.WithValue(ctx, zap.String("UserId", claims.UserId))
	return true
}
