package handler

import (
	"net/http"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TierHandler struct {
	*Handler
	tierService         service.TierService
	subscriptionService service.SubscriptionService
}

func NewTierHandler(handler *Handler, tierService service.TierService, subscriptionService service.SubscriptionService) *TierHandler {
	return &TierHandler{
		Handler:             handler,
		tierService:         tierService,
		subscriptionService: subscriptionService,
	}
}

// ListTiers godoc
// @Summary 套餐列表
// @Schemes
// @Description 所有可购买的会员等级
// @Tags 套餐模块
// @Produce json
// @Success 200 {array} v1.TierConfigItem
// @Router /api/tiers [get]
func (h *TierHandler) ListTiers(ctx *gin.Context) {
	items, err := h.tierService.ListTiers(ctx)
	if err != nil {
		h.logger.WithContext(ctx).Error("tierService.ListTiers error", zap.Error(err))
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, items)
}

// GetSubscription godoc
// @Summary 当前订阅
// @Schemes
// @Description
// @Tags 套餐模块
// @Security Bearer
// @Produce json
// @Success 200 {object} v1.SubscriptionResponse
// @Router /api/subscription [get]
func (h *TierHandler) GetSubscription(ctx *gin.Context) {
	userId := GetUserIdFromCtx(ctx)
	if userId == 0 {
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized)
		return
	}

	resp, err := h.subscriptionService.GetCurrent(ctx, userId)
	if err != nil {
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}

// Upgrade godoc
// @Summary 升级订阅
// @Schemes
// @Description 从余额扣除月费并立即生效
// @Tags 套餐模块
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body v1.UpgradeSubscriptionRequest true "params"
// @Success 200 {object} v1.SubscriptionResponse
// @Router /api/subscription/upgrade [post]
func (h *TierHandler) Upgrade(ctx *gin.Context) {
	userId := GetUserIdFromCtx(ctx)
	if userId == 0 {
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized)
		return
	}
	var req v1.UpgradeSubscriptionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	resp, err := h.subscriptionService.Upgrade(ctx, userId, req.TargetTier)
	if err != nil {
		h.logger.WithContext(ctx).Error("subscriptionService.Upgrade error", zap.Error(err))
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}
