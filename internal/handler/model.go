package handler

import (
	"net/http"
	"strconv"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ModelHandler struct {
	*Handler
	modelService service.ModelService
}

func NewModelHandler(handler *Handler, modelService service.ModelService) *ModelHandler {
	return &ModelHandler{
		Handler:      handler,
		modelService: modelService,
	}
}

// ListPrivate godoc
// @Summary 私有模型列表
// @Schemes
// @Description
// @Tags 模型模块
// @Security Bearer
// @Produce json
// @Success 200 {object} v1.ListPrivateModelsResponse
// @Router /api/models/private [get]
func (h *ModelHandler) ListPrivate(ctx *gin.Context) {
	userId := GetUserIdFromCtx(ctx)
	if userId == 0 {
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized)
		return
	}

	resp, err := h.modelService.ListPrivate(ctx, userId)
	if err != nil {
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}

// Upload godoc
// @Summary 上传私有模型
// @Schemes
// @Description 校验类型与存储配额，入库后立即开始存储计费
// @Tags 模型模块
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body v1.UploadModelRequest true "params"
// @Success 200 {object} v1.PrivateModelItem
// @Router /api/models/private [post]
func (h *ModelHandler) Upload(ctx *gin.Context) {
	userId := GetUserIdFromCtx(ctx)
	if userId == 0 {
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized)
		return
	}
	var req v1.UploadModelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	resp, err := h.modelService.Upload(ctx, userId, &req)
	if err != nil {
		h.logger.WithContext(ctx).Error("modelService.Upload error", zap.Error(err))
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}

// Delete godoc
// @Summary 删除私有模型
// @Schemes
// @Description 释放存储空间并结算当期存储费用
// @Tags 模型模块
// @Security Bearer
// @Produce json
// @Param id path int true "model id"
// @Success 200 {object} v1.MessageResponse
// @Router /api/models/private/{id} [delete]
func (h *ModelHandler) Delete(ctx *gin.Context) {
	userId := GetUserIdFromCtx(ctx)
	if userId == 0 {
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized)
		return
	}
	modelId, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	if err := h.modelService.Delete(ctx, userId, modelId); err != nil {
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, v1.MessageResponse{Message: "deleted"})
}
