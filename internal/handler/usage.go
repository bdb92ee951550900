package handler

import (
	"net/http"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UsageHandler struct {
	*Handler
	usageService service.UsageService
}

func NewUsageHandler(handler *Handler, usageService service.UsageService) *UsageHandler {
	return &UsageHandler{
		Handler:      handler,
		usageService: usageService,
	}
}

// ListRecords godoc
// @Summary 用量明细
// @Schemes
// @Description 按时间倒序返回当前用户的计费记录
// @Tags 计费模块
// @Security Bearer
// @Produce json
// @Param start_date query string false "RFC 3339"
// @Param end_date query string false "RFC 3339"
// @Param limit query int false "default 50"
// @Param offset query int false "default 0"
// @Success 200 {object} v1.ListUsageRecordsResponse
// @Router /api/usage/records [get]
func (h *UsageHandler) ListRecords(ctx *gin.Context) {
	userId := GetUserIdFromCtx(ctx)
	if userId == 0 {
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized)
		return
	}
	var req v1.ListUsageRecordsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	resp, err := h.usageService.ListRecords(ctx, userId, &req)
	if err != nil {
		h.logger.WithContext(ctx).Error("usageService.ListRecords error", zap.Error(err))
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}

// Stats godoc
// @Summary 用量统计
// @Schemes
// @Description 指定周期内的 GPU 秒数、存储 GB 小时与总费用
// @Tags 计费模块
// @Security Bearer
// @Produce json
// @Param period query string true "day / week / month / year"
// @Success 200 {object} v1.UsageStatsResponse
// @Router /api/usage/stats [get]
func (h *UsageHandler) Stats(ctx *gin.Context) {
	userId := GetUserIdFromCtx(ctx)
	if userId == 0 {
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized)
		return
	}
	var req v1.UsageStatsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	resp, err := h.usageService.Stats(ctx, userId, req.Period)
	if err != nil {
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}
