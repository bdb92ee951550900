package repository

import (
	"context"
	"errors"
	"time"

	"comfycloud/internal/model"

	"gorm.io/gorm"
)

type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	Update(ctx context.Context, task *model.Task) error
	GetByTaskID(ctx context.Context, taskId string) (*model.Task, error)
	ListRunningByInstance(ctx context.Context, instanceId string) ([]*model.Task, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	// Finish closes the task row with a terminal status.
	Finish(ctx context.Context, taskId string, status model.TaskStatus, endedAt time.Time) error
}

func NewTaskRepository(r *Repository) TaskRepository {
	return &taskRepository{Repository: r}
}

type taskRepository struct {
	*Repository
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.DB(ctx).Create(task).Error
}

func (r *taskRepository) Update(ctx context.Context, task *model.Task) error {
	return r.DB(ctx).Save(task).Error
}

func (r *taskRepository) GetByTaskID(ctx context.Context, taskId string) (*model.Task, error) {
	var task model.Task
	if err := r.DB(ctx).Where("task_id = ?", taskId).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) ListRunningByInstance(ctx context.Context, instanceId string) ([]*model.Task, error) {
	var tasks []*model.Task
	err := r.DB(ctx).
		Where("instance_id = ? AND status = ?", instanceId, model.TaskStatusRunning).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := r.DB(ctx).Model(&model.Task{}).
		Where("started_at >= ?", since).
		Count(&total).Error
	return total, err
}

func (r *taskRepository) Finish(ctx context.Context, taskId string, status model.TaskStatus, endedAt time.Time) error {
	return r.DB(ctx).Model(&model.Task{}).
		Where("task_id = ?", taskId).
		Updates(map[string]interface{}{
			"status":       status,
			"ended_at":     endedAt,
			"gmt_modified": time.Now(),
		}).Error
}
