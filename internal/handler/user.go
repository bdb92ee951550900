package handler

import (
	"net/http"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	*Handler
	userService service.UserService
}

func NewUserHandler(handler *Handler, userService service.UserService) *UserHandler {
	return &UserHandler{
		Handler:     handler,
		userService: userService,
	}
}

// Register godoc
// @Summary 用户注册
// @Schemes
// @Description 注册新账号，返回 token 和用户信息
// @Tags 用户模块
// @Accept json
// @Produce json
// @Param request body v1.RegisterRequest true "params"
// @Success 200 {object} v1.AuthResponse
// @Router /api/auth/register [post]
func (h *UserHandler) Register(ctx *gin.Context) {
	req := new(v1.RegisterRequest)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	resp, err := h.userService.Register(ctx, req)
	if err != nil {
		h.logger.WithContext(ctx).Error("userService.Register error", zap.Error(err))
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}

// Login godoc
// @Summary 账号登录
// @Schemes
// @Description
// @Tags 用户模块
// @Accept json
// @Produce json
// @Param request body v1.LoginRequest true "params"
// @Success 200 {object} v1.AuthResponse
// @Router /api/auth/login [post]
func (h *UserHandler) Login(ctx *gin.Context) {
	var req v1.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	resp, err := h.userService.Login(ctx, &req)
	if err != nil {
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}

// Logout godoc
// @Summary 退出登录
// @Schemes
// @Description 吊销当前 token
// @Tags 用户模块
// @Security Bearer
// @Produce json
// @Success 200 {object} v1.MessageResponse
// @Router /api/auth/logout [post]
func (h *UserHandler) Logout(ctx *gin.Context) {
	if err := h.userService.Logout(ctx, GetTokenFromCtx(ctx)); err != nil {
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, v1.MessageResponse{Message: "logged out"})
}

// GetProfile godoc
// @Summary 获取当前用户
// @Schemes
// @Description
// @Tags 用户模块
// @Security Bearer
// @Produce json
// @Success 200 {object} v1.UserInfo
// @Router /api/auth/me [get]
func (h *UserHandler) GetProfile(ctx *gin.Context) {
	userId := GetUserIdFromCtx(ctx)
	if userId == 0 {
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized)
		return
	}

	info, err := h.userService.GetProfile(ctx, userId)
	if err != nil {
		h.logger.WithContext(ctx).Error("userService.GetProfile error", zap.Error(err))
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, info)
}

// GetBalance godoc
// @Summary 查询余额
// @Schemes
// @Description
// @Tags 计费模块
// @Security Bearer
// @Produce json
// @Success 200 {object} v1.BalanceResponse
// @Router /api/user/balance [get]
func (h *UserHandler) GetBalance(ctx *gin.Context) {
	userId := GetUserIdFromCtx(ctx)
	if userId == 0 {
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized)
		return
	}

	resp, err := h.userService.GetBalance(ctx, userId)
	if err != nil {
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}
