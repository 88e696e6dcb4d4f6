package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Tomlord1122/task-manager/internal/domain"
)

// TaskRepository is the task store. Ownership checks live in the service
// layer; ListByUser and DeleteCompleted are already scoped to one owner.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	FindByID(ctx context.Context, id uint) (*domain.Task, error)
	ListByUser(ctx context.Context, userID uint) ([]domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id uint) error
	DeleteCompleted(ctx context.Context, userID uint) (int64, error)
}

type gormTaskRepository struct {
	db *gorm.DB
}

func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	return &gormTaskRepository{db: db}
}

func (r *gormTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	return translate(r.db.WithContext(ctx).Create(task).Error)
}

func (r *gormTaskRepository) FindByID(ctx context.Context, id uint) (*domain.Task, error) {
	var task domain.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

// ListByUser returns the user's tasks, newest first.
func (r *gormTaskRepository) ListByUser(ctx context.Context, userID uint) ([]domain.Task, error) {
	tasks := []domain.Task{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, translate(err)
	}
	return tasks, nil
}

func (r *gormTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	return translate(r.db.WithContext(ctx).Save(task).Error)
}

// Delete removes the row for good; tasks are not soft-deleted.
func (r *gormTaskRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Unscoped().Delete(&domain.Task{}, id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormTaskRepository) DeleteCompleted(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Unscoped().
		Where("user_id = ? AND completed = ?", userID, true).
		Delete(&domain.Task{})
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	return result.RowsAffected, nil
}
