package handler

import (
	"net/http"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TaskHandler struct {
	*Handler
	taskService service.TaskService
}

func NewTaskHandler(handler *Handler, taskService service.TaskService) *TaskHandler {
	return &TaskHandler{
		Handler:     handler,
		taskService: taskService,
	}
}

// Submit godoc
// @Summary 提交渲染任务
// @Schemes
// @Description 调度到空闲实例并开始按秒计费；无可用实例时返回 503
// @Tags 任务模块
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body v1.SubmitTaskRequest true "params"
// @Success 200 {object} v1.SubmitTaskResponse
// @Router /api/tasks [post]
func (h *TaskHandler) Submit(ctx *gin.Context) {
	userId := GetUserIdFromCtx(ctx)
	if userId == 0 {
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized)
		return
	}
	var req v1.SubmitTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	resp, err := h.taskService.Submit(ctx, userId, &req)
	if err != nil {
		h.logger.WithContext(ctx).Error("taskService.Submit error", zap.Error(err))
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}
