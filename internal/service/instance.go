package service

import (
	"context"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/model"
	"comfycloud/internal/pool"

	"go.uber.org/zap"
)

type InstanceService interface {
	List(ctx context.Context) ([]v1.InstanceItem, error)
	Register(ctx context.Context, req *v1.RegisterInstanceRequest) (*v1.InstanceItem, error)
	Deregister(ctx context.Context, id string) error
}

func NewInstanceService(
	service *Service,
	registry *pool.Registry,
	monitor *pool.Monitor,
	taskService TaskService,
	syslog SystemLogService,
) InstanceService {
	return &instanceService{
		Service:     service,
		registry:    registry,
		monitor:     monitor,
		taskService: taskService,
		syslog:      syslog,
	}
}

type instanceService struct {
	*Service
	registry    *pool.Registry
	monitor     *pool.Monitor
	taskService TaskService
	syslog      SystemLogService
}

func (s *instanceService) List(ctx context.Context) ([]v1.InstanceItem, error) {
	states := s.registry.Snapshot()
	items := make([]v1.InstanceItem, 0, len(states))
	for _, st := range states {
		items = append(items, toInstanceItem(st))
	}
	return items, nil
}

func (s *instanceService) Register(ctx context.Context, req *v1.RegisterInstanceRequest) (*v1.InstanceItem, error) {
	inst := &model.Instance{
		Id:          req.Id,
		Endpoint:    req.Url,
		DisplayName: req.Name,
		GpuType:     req.GpuType,
		VramTotalGb: req.VramTotalGb,
	}
	if err := s.registry.Register(ctx, inst); err != nil {
		return nil, err
	}
	// Probe right away so a healthy instance is schedulable without
	// waiting for the next sweep.
	s.monitor.Sweep(ctx)

	s.syslog.Record(ctx, "info", "pool", "instance registered: "+req.Id, nil, "")
	st, ok := s.registry.Get(req.Id)
	if !ok {
		return nil, v1.ErrInternalServerError
	}
	item := toInstanceItem(st)
	return &item, nil
}

func (s *instanceService) Deregister(ctx context.Context, id string) error {
	if err := s.registry.Deregister(ctx, id); err != nil {
		return err
	}
	// The instance is already out of the scheduler's sight; now deal
	// with whatever was running on it.
	if err := s.taskService.HandleInstanceLoss(ctx, id); err != nil {
		s.logger.WithContext(ctx).Error("instance loss handling failed",
			zap.String("instance_id", id), zap.Error(err))
	}
	s.syslog.Record(ctx, "warn", "pool", "instance deregistered: "+id, nil, "")
	return nil
}

func toInstanceItem(st pool.InstanceState) v1.InstanceItem {
	return v1.InstanceItem{
		Id:             st.Id,
		Url:            st.Endpoint,
		Name:           st.DisplayName,
		Status:         string(st.Status),
		GpuType:        st.GpuType,
		QueueSize:      st.QueueSize,
		CurrentTask:    st.CurrentTask,
		UptimeSeconds:  st.UptimeSeconds(),
		GpuUtilization: st.GpuUtilization,
		VramUsedGb:     st.VramUsedGb,
		VramTotalGb:    st.VramTotalGb,
	}
}
