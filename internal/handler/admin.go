package handler

import (
	"net/http"
	"strconv"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminHandler struct {
	*Handler
	adminService    service.AdminService
	instanceService service.InstanceService
	rechargeService service.RechargeService
	configService   service.SystemConfigService
	syslogService   service.SystemLogService
	modelService    service.ModelService
}

func NewAdminHandler(
	handler *Handler,
	adminService service.AdminService,
	instanceService service.InstanceService,
	rechargeService service.RechargeService,
	configService service.SystemConfigService,
	syslogService service.SystemLogService,
	modelService service.ModelService,
) *AdminHandler {
	return &AdminHandler{
		Handler:         handler,
		adminService:    adminService,
		instanceService: instanceService,
		rechargeService: rechargeService,
		configService:   configService,
		syslogService:   syslogService,
		modelService:    modelService,
	}
}

// Stats godoc
// @Summary 平台概览
// @Schemes
// @Description 用户数、营收、当日任务与实例池概况
// @Tags 管理模块
// @Security Bearer
// @Produce json
// @Success 200 {object} v1.AdminStatsResponse
// @Router /api/admin/stats [get]
func (h *AdminHandler) Stats(ctx *gin.Context) {
	resp, err := h.adminService.Stats(ctx)
	if err != nil {
		h.logger.WithContext(ctx).Error("adminService.Stats error", zap.Error(err))
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}

// ListUsers godoc
// @Summary 用户管理列表
// @Schemes
// @Description 支持用户名/邮箱模糊搜索
// @Tags 管理模块
// @Security Bearer
// @Produce json
// @Param search query string false "username or email"
// @Param limit query int false "default 50"
// @Param offset query int false "default 0"
// @Success 200 {object} v1.ListAdminUsersResponse
// @Router /api/admin/users [get]
func (h *AdminHandler) ListUsers(ctx *gin.Context) {
	var req v1.ListAdminUsersRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	resp, err := h.adminService.ListUsers(ctx, &req)
	if err != nil {
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}

// UpdateUser godoc
// @Summary 修改用户
// @Schemes
// @Description 调整等级、状态、角色或余额
// @Tags 管理模块
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path int true "user id"
// @Param request body v1.UpdateAdminUserRequest true "params"
// @Success 200 {object} v1.AdminUserItem
// @Router /api/admin/users/{id} [patch]
func (h *AdminHandler) UpdateUser(ctx *gin.Context) {
	userId, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}
	var req v1.UpdateAdminUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	resp, err := h.adminService.UpdateUser(ctx, userId, &req)
	if err != nil {
		h.logger.WithContext(ctx).Error("adminService.UpdateUser error",
			zap.Int64("user_id", userId), zap.Error(err))
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}

// ListInstances godoc
// @Summary 实例池列表
// @Schemes
// @Description 实时运行状态，来自注册表而非数据库
// @Tags 管理模块
// @Security Bearer
// @Produce json
// @Success 200 {array} v1.InstanceItem
// @Router /api/admin/instances [get]
func (h *AdminHandler) ListInstances(ctx *gin.Context) {
	items, err := h.instanceService.List(ctx)
	if err != nil {
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, items)
}

// RegisterInstance godoc
// @Summary 注册实例
// @Schemes
// @Description 新实例以 offline 注册，首次探活成功后进入调度
// @Tags 管理模块
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body v1.RegisterInstanceRequest true "params"
// @Success 200 {object} v1.InstanceItem
// @Router /api/admin/instances [post]
func (h *AdminHandler) RegisterInstance(ctx *gin.Context) {
	var req v1.RegisterInstanceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	resp, err := h.instanceService.Register(ctx, &req)
	if err != nil {
		h.logger.WithContext(ctx).Error("instanceService.Register error",
			zap.String("instance_id", req.Id), zap.Error(err))
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}

// DeregisterInstance godoc
// @Summary 移除实例
// @Schemes
// @Description 在途任务会尝试迁移到其他实例，失败则标记失败
// @Tags 管理模块
// @Security Bearer
// @Produce json
// @Param id path string true "instance id"
// @Success 200 {object} v1.MessageResponse
// @Router /api/admin/instances/{id} [delete]
func (h *AdminHandler) DeregisterInstance(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := h.instanceService.Deregister(ctx, id); err != nil {
		h.logger.WithContext(ctx).Error("instanceService.Deregister error",
			zap.String("instance_id", id), zap.Error(err))
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, v1.MessageResponse{Message: "deregistered"})
}

// FinanceStats godoc
// @Summary 财务统计
// @Schemes
// @Description
// @Tags 管理模块
// @Security Bearer
// @Produce json
// @Success 200 {object} v1.FinanceStatsResponse
// @Router /api/admin/finance/stats [get]
func (h *AdminHandler) FinanceStats(ctx *gin.Context) {
	resp, err := h.adminService.FinanceStats(ctx)
	if err != nil {
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}

// ListRecharges godoc
// @Summary 充值记录
// @Schemes
// @Description 全站充值订单，按创建时间倒序
// @Tags 管理模块
// @Security Bearer
// @Produce json
// @Param limit query int false "default 50"
// @Param offset query int false "default 0"
// @Success 200 {object} v1.ListRechargeRecordsResponse
// @Router /api/admin/finance/recharges [get]
func (h *AdminHandler) ListRecharges(ctx *gin.Context) {
	var req v1.ListRechargeRecordsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	resp, err := h.rechargeService.ListAll(ctx, &req)
	if err != nil {
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}

// GetConfig godoc
// @Summary 系统配置
// @Schemes
// @Description
// @Tags 管理模块
// @Security Bearer
// @Produce json
// @Success 200 {object} v1.SystemConfigBody
// @Router /api/admin/config [get]
func (h *AdminHandler) GetConfig(ctx *gin.Context) {
	body, err := h.configService.Get(ctx)
	if err != nil {
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, body)
}

// UpdateConfig godoc
// @Summary 修改系统配置
// @Schemes
// @Description 按节整体替换，调度与计费在一个周期内生效
// @Tags 管理模块
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body v1.UpdateSystemConfigRequest true "params"
// @Success 200 {object} v1.SystemConfigBody
// @Router /api/admin/config [patch]
func (h *AdminHandler) UpdateConfig(ctx *gin.Context) {
	var req v1.UpdateSystemConfigRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	body, err := h.configService.Update(ctx, &req)
	if err != nil {
		h.logger.WithContext(ctx).Error("configService.Update error", zap.Error(err))
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, body)
}

// ListLogs godoc
// @Summary 系统日志
// @Schemes
// @Description 可按级别和来源过滤
// @Tags 管理模块
// @Security Bearer
// @Produce json
// @Param level query string false "info / warn / error"
// @Param source query string false "billing / pool / auth / admin / storage"
// @Param limit query int false "default 50"
// @Param offset query int false "default 0"
// @Success 200 {object} v1.ListSystemLogsResponse
// @Router /api/admin/logs [get]
func (h *AdminHandler) ListLogs(ctx *gin.Context) {
	var req v1.ListSystemLogsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	resp, err := h.syslogService.List(ctx, &req)
	if err != nil {
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}

// ListModels godoc
// @Summary 模型管理列表
// @Schemes
// @Description 含系统模型与用户私有模型
// @Tags 管理模块
// @Security Bearer
// @Produce json
// @Param visibility query string false "base / vip / private"
// @Param limit query int false "default 50"
// @Param offset query int false "default 0"
// @Success 200 {object} v1.ListAdminModelsResponse
// @Router /api/admin/models [get]
func (h *AdminHandler) ListModels(ctx *gin.Context) {
	var req v1.ListAdminModelsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	resp, err := h.modelService.ListAdmin(ctx, &req)
	if err != nil {
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, resp)
}

// UpdateModel godoc
// @Summary 修改模型
// @Schemes
// @Description 调整可见级别或状态
// @Tags 管理模块
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path int true "model id"
// @Param request body v1.UpdateAdminModelRequest true "params"
// @Success 200 {object} v1.MessageResponse
// @Router /api/admin/models/{id} [patch]
func (h *AdminHandler) UpdateModel(ctx *gin.Context) {
	modelId, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}
	var req v1.UpdateAdminModelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	if err := h.modelService.UpdateAdmin(ctx, modelId, &req); err != nil {
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, v1.MessageResponse{Message: "updated"})
}

// DeleteModel godoc
// @Summary 删除模型
// @Schemes
// @Description
// @Tags 管理模块
// @Security Bearer
// @Produce json
// @Param id path int true "model id"
// @Success 200 {object} v1.MessageResponse
// @Router /api/admin/models/{id} [delete]
func (h *AdminHandler) DeleteModel(ctx *gin.Context) {
	modelId, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest)
		return
	}

	if err := h.modelService.DeleteAdmin(ctx, modelId); err != nil {
		v1.HandleAppError(ctx, err)
		return
	}
	v1.HandleSuccess(ctx, v1.MessageResponse{Message: "deleted"})
}
