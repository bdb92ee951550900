package handler

import (
	"strconv"

	"comfycloud/pkg/jwt"
	"comfycloud/pkg/log"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	logger *log.Logger
}

func NewHandler(logger *log.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

// GetUserIdFromCtx pulls the authenticated user id out of the claims
// the auth middleware stashed. Zero means unauthenticated.
func GetUserIdFromCtx(ctx *gin.Context) int64 {
	v, exists := ctx.Get("claims")
	if !exists {
		return 0
	}
	claims, ok := v.(*jwt.MyCustomClaims)
	if !ok {
		return 0
	}
	id, err := strconv.ParseInt(claims.UserId, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// GetTokenFromCtx returns the raw bearer token for the request.
func GetTokenFromCtx(ctx *gin.Context) string {
	return ctx.GetString("token")
}
