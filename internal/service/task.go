package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/ledger"
	"comfycloud/internal/metering"
	"comfycloud/internal/model"
	"comfycloud/internal/pool"
	"comfycloud/internal/repository"
	"comfycloud/pkg/comfy"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	taskIdPrefix    = "task_"
	maxTaskDuration = 2 * time.Hour
	submitTimeout   = 15 * time.Second
)

// ComfyClientFactory builds a client for one worker endpoint. Tests
// substitute a local httptest server endpoint.
type ComfyClientFactory func(endpoint string) (*comfy.Client, error)

func NewComfyClientFactory(conf *viper.Viper) ComfyClientFactory {
	clientId := conf.GetString("comfy.client_id")
	if clientId == "" {
		clientId = "comfycloud-gateway"
	}
	return func(endpoint string) (*comfy.Client, error) {
		return comfy.NewClient(endpoint, clientId, 0)
	}
}

type TaskService interface {
	Submit(ctx context.Context, userId int64, req *v1.SubmitTaskRequest) (*v1.SubmitTaskResponse, error)
	// Preempt halts a running task whose owner ran out of funds. The
	// metering engine has already closed the meter; this side stops
	// the worker and closes the task row.
	Preempt(ctx context.Context, taskId string, userId int64)
	// HandleInstanceLoss fails or redispatches every task that was
	// running on a removed instance.
	HandleInstanceLoss(ctx context.Context, instanceId string) error
}

func NewTaskService(
	service *Service,
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	registry *pool.Registry,
	scheduler *pool.Scheduler,
	engine *metering.Engine,
	ledger *ledger.Ledger,
	modelService ModelService,
	configService SystemConfigService,
	clients ComfyClientFactory,
	syslog SystemLogService,
) TaskService {
	s := &taskService{
		Service:       service,
		taskRepo:      taskRepo,
		userRepo:      userRepo,
		registry:      registry,
		scheduler:     scheduler,
		engine:        engine,
		ledger:        ledger,
		modelService:  modelService,
		configService: configService,
		clients:       clients,
		syslog:        syslog,
		watches:       make(map[string]context.CancelFunc),
	}
	engine.SetPreemptor(s.Preempt)
	return s
}

type taskService struct {
	*Service
	taskRepo      repository.TaskRepository
	userRepo      repository.UserRepository
	registry      *pool.Registry
	scheduler     *pool.Scheduler
	engine        *metering.Engine
	ledger        *ledger.Ledger
	modelService  ModelService
	configService SystemConfigService
	clients       ComfyClientFactory
	syslog        SystemLogService

	mu      sync.Mutex
	watches map[string]context.CancelFunc
}

func (s *taskService) Submit(ctx context.Context, userId int64, req *v1.SubmitTaskRequest) (*v1.SubmitTaskResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userId)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	if user == nil {
		return nil, v1.ErrNotFound
	}
	if user.Status != model.UserStatusActive {
		return nil, v1.ErrAccountSuspended
	}

	conf, err := s.configService.Get(ctx)
	if err != nil {
		return nil, err
	}
	if conf.System.MaintenanceMode && user.Role != model.UserRoleAdmin {
		return nil, v1.ErrForbidden
	}

	if err := s.modelService.Accessible(ctx, user, req.Model); err != nil {
		return nil, err
	}

	// A zero balance never reaches an instance; partial-funds tasks
	// start and get preempted when the money runs out.
	balance, _, err := s.ledger.Balance(ctx, userId)
	if err != nil {
		return nil, err
	}
	if balance <= 0 {
		return nil, v1.ErrInsufficientFunds
	}

	picked, err := s.scheduler.Select(ctx, pool.SelectRequest{GpuType: req.GpuType},
		pool.Limits{MaxQueuePerInstance: conf.InstancePool.MaxQueuePerInstance})
	if err != nil {
		return nil, err
	}

	suffix, err := s.sid.GenString()
	if err != nil {
		s.scheduler.Cancel(ctx, picked.Id)
		return nil, v1.ErrInternalServerError
	}
	taskId := taskIdPrefix + suffix

	task := &model.Task{
		TaskId:     taskId,
		UserId:     userId,
		InstanceId: picked.Id,
		ModelName:  req.Model,
		GpuType:    req.GpuType,
		Status:     model.TaskStatusRunning,
		StartedAt:  time.Now(),
		Workflow:   string(req.Workflow),
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		s.scheduler.Cancel(ctx, picked.Id)
		s.logger.WithContext(ctx).Error("task create failed", zap.Error(err))
		return nil, v1.ErrInternalServerError
	}

	promptId, err := s.dispatch(ctx, task, picked)
	if err != nil {
		s.scheduler.Cancel(ctx, picked.Id)
		_ = s.taskRepo.Finish(ctx, taskId, model.TaskStatusFailed, time.Now())
		return nil, err
	}
	task.PromptId = promptId

	if err := s.engine.StartGpu(ctx, userId, taskId, map[string]interface{}{
		"model":       req.Model,
		"instance_id": picked.Id,
	}); err != nil {
		s.logger.WithContext(ctx).Error("gpu meter start failed",
			zap.String("task_id", taskId), zap.Error(err))
	}

	s.startWatch(task, picked.Endpoint)
	return &v1.SubmitTaskResponse{
		TaskId:     taskId,
		InstanceId: picked.Id,
		Status:     string(model.TaskStatusRunning),
	}, nil
}

// dispatch pushes the workflow to the chosen worker and records the
// prompt id. An unreachable worker maps to ErrInstanceUnavailable.
func (s *taskService) dispatch(ctx context.Context, task *model.Task, inst pool.InstanceState) (string, error) {
	client, err := s.clients(inst.Endpoint)
	if err != nil {
		return "", v1.ErrInstanceUnavailable
	}
	submitCtx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	result, err := client.SubmitPrompt(submitCtx, json.RawMessage(task.Workflow))
	if err != nil {
		s.logger.WithContext(ctx).Error("prompt submit failed",
			zap.String("task_id", task.TaskId),
			zap.String("instance_id", inst.Id), zap.Error(err))
		return "", v1.ErrInstanceUnavailable
	}

	task.PromptId = result.PromptId
	task.InstanceId = inst.Id
	if err := s.taskRepo.Update(ctx, task); err != nil {
		s.logger.WithContext(ctx).Warn("task update failed",
			zap.String("task_id", task.TaskId), zap.Error(err))
	}
	s.registry.SetCurrentTask(ctx, inst.Id, task.TaskId)
	return result.PromptId, nil
}

// startWatch follows the task on the worker in the background. The
// watch outlives the submitting request on purpose.
func (s *taskService) startWatch(task *model.Task, endpoint string) {
	watchCtx, cancel := context.WithTimeout(context.Background(), maxTaskDuration)

	s.mu.Lock()
	s.watches[task.TaskId] = cancel
	s.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.watches, task.TaskId)
			s.mu.Unlock()
		}()
		s.watch(watchCtx, task, endpoint)
	}()
}

func (s *taskService) watch(ctx context.Context, task *model.Task, endpoint string) {
	client, err := s.clients(endpoint)
	var watchErr error
	if err != nil {
		watchErr = err
	} else {
		watchErr = client.WatchExecution(ctx, task.PromptId)
	}

	bg := context.Background()
	record, _ := s.engine.Stop(bg, task.TaskId, model.UsageTypeGpu)
	s.registry.Release(bg, task.InstanceId)
	s.registry.SetCurrentTask(bg, task.InstanceId, "")

	// Preemption and instance loss close the row first; the watch
	// must not overwrite their terminal status.
	current, err := s.taskRepo.GetByTaskID(bg, task.TaskId)
	if err != nil || current == nil || current.Status != model.TaskStatusRunning {
		return
	}

	status := model.TaskStatusCompleted
	if watchErr != nil {
		status = model.TaskStatusFailed
		s.logger.Error("task watch ended with error",
			zap.String("task_id", task.TaskId), zap.Error(watchErr))
	}
	if err := s.taskRepo.Finish(bg, task.TaskId, status, time.Now()); err != nil {
		s.logger.Error("task finish failed", zap.String("task_id", task.TaskId), zap.Error(err))
	}
	if record != nil {
		s.logger.Info("task settled",
			zap.String("task_id", task.TaskId),
			zap.Float64("gpu_seconds", record.DurationSeconds),
			zap.Float64("cost", record.Cost))
	}
}

func (s *taskService) Preempt(ctx context.Context, taskId string, userId int64) {
	task, err := s.taskRepo.GetByTaskID(ctx, taskId)
	if err != nil || task == nil || task.Status != model.TaskStatusRunning {
		return
	}

	if err := s.taskRepo.Finish(ctx, taskId, model.TaskStatusPreempted, time.Now()); err != nil {
		s.logger.WithContext(ctx).Error("preempt finish failed",
			zap.String("task_id", taskId), zap.Error(err))
	}

	if inst, ok := s.registry.Get(task.InstanceId); ok {
		if client, cerr := s.clients(inst.Endpoint); cerr == nil {
			if ierr := client.Interrupt(ctx); ierr != nil {
				s.logger.WithContext(ctx).Warn("worker interrupt failed",
					zap.String("instance_id", inst.Id), zap.Error(ierr))
			}
		}
	}

	s.mu.Lock()
	if cancel, ok := s.watches[taskId]; ok {
		cancel()
	}
	s.mu.Unlock()

	s.syslog.Record(ctx, "warn", "billing",
		"task preempted, balance exhausted: "+taskId, &userId, "")
}

func (s *taskService) HandleInstanceLoss(ctx context.Context, instanceId string) error {
	tasks, err := s.taskRepo.ListRunningByInstance(ctx, instanceId)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		task := task
		// Whatever ran so far is billed; a redispatch starts a fresh
		// meter on the new instance.
		if _, err := s.engine.Stop(ctx, task.TaskId, model.UsageTypeGpu); err != nil {
			s.logger.WithContext(ctx).Warn("meter stop on instance loss failed",
				zap.String("task_id", task.TaskId), zap.Error(err))
		}
		s.mu.Lock()
		if cancel, ok := s.watches[task.TaskId]; ok {
			cancel()
		}
		s.mu.Unlock()

		if s.redispatch(ctx, task) {
			continue
		}
		if err := s.taskRepo.Finish(ctx, task.TaskId, model.TaskStatusFailed, time.Now()); err != nil {
			s.logger.WithContext(ctx).Error("task fail on instance loss failed",
				zap.String("task_id", task.TaskId), zap.Error(err))
		}
		s.syslog.Record(ctx, "error", "pool",
			"task failed, instance unavailable: "+task.TaskId, &task.UserId, "")
	}
	return nil
}

// redispatch tries to move a displaced task onto another instance.
// Returns false when no instance has capacity or the submit fails.
func (s *taskService) redispatch(ctx context.Context, task *model.Task) bool {
	conf, err := s.configService.Get(ctx)
	if err != nil {
		return false
	}
	picked, err := s.scheduler.Select(ctx, pool.SelectRequest{GpuType: task.GpuType},
		pool.Limits{MaxQueuePerInstance: conf.InstancePool.MaxQueuePerInstance})
	if err != nil {
		return false
	}
	if _, err := s.dispatch(ctx, task, picked); err != nil {
		s.scheduler.Cancel(ctx, picked.Id)
		return false
	}
	if err := s.engine.StartGpu(ctx, task.UserId, task.TaskId, map[string]interface{}{
		"model":       task.ModelName,
		"instance_id": picked.Id,
		"redispatch":  true,
	}); err != nil {
		s.logger.WithContext(ctx).Warn("gpu meter restart failed",
			zap.String("task_id", task.TaskId), zap.Error(err))
	}
	s.startWatch(task, picked.Endpoint)
	s.syslog.Record(ctx, "warn", "pool",
		"task redispatched to "+picked.Id+": "+task.TaskId, &task.UserId, "")
	return true
}
