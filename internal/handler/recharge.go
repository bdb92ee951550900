package handler

import (
	"net/http"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RechargeHandler struct {
	*Handler
	rechargeService service.RechargeService
}

func NewRechargeHandler(handler *Handler, rechargeService service.RechargeService) *RechargeHandler {
	return &RechargeHandler{
		Handler:         handler,
		rechargeService: rechargeService,
	}
}

// Create godoc
// @Summary 创建充值订单
// @Schemes
// @Description 返回 pending 状态的订单，等待支付回调
// @Tags 计费模块
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body v1.CreateRechargeRequest true "params"
// @Success 200 {object} v1.RechargeRecordItem
// @Router /api/recharge [post]
func (h *RechargeHandler) Create(ctx *gin.Context) {
	userId := GetUserIdFromCtx(ctx)
	if userId == 0 {
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized)
		return
	}
	var req v1.CreateRechargeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	resp, err := h.rechargeService.Create(ctx, userId, &req)
	if err != nil {
		h.logger.WithContext(ctx).Error("rechargeService.Create error", zap.Error(err))
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}

// Notify godoc
// @Summary 支付回调
// @Schemes
// @Description 支付网关回调，幂等：重复通知不会重复入账
// @Tags 计费模块
// @Accept json
// @Produce json
// @Param request body v1.RechargeNotifyRequest true "params"
// @Success 200 {object} v1.MessageResponse
// @Router /api/recharge/notify [post]
func (h *RechargeHandler) Notify(ctx *gin.Context) {
	var req v1.RechargeNotifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	if err := h.rechargeService.Notify(ctx, &req); err != nil {
		h.logger.WithContext(ctx).Error("rechargeService.Notify error",
			zap.String("order_no", req.OrderNo), zap.Error(err))
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, v1.MessageResponse{Message: "ok"})
}
