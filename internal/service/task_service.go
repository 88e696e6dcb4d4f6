package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/Tomlord1122/task-manager/internal/domain"
	"github.com/Tomlord1122/task-manager/internal/repository"
)

const maxTitleLength = 500

// CreateTaskRequest holds the data needed to create a new task. UserID is
// optional; when present it must name the session user.
type CreateTaskRequest struct {
	Title  string `json:"title"`
	UserID *uint  `json:"userId,omitempty"`
}

// UpdateTaskRequest holds the data for updating an existing task.
// Using pointers allows distinguishing between a field being omitted
// vs. being set to its zero value (e.g., setting Completed to false).
// A request with neither field set toggles Completed.
type UpdateTaskRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// TaskStats backs the dashboard overview.
type TaskStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// StatsOf counts tasks by state.
func StatsOf(tasks []TaskResponse) TaskStats {
	stats := TaskStats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	return stats
}

// Percent is the share of completed tasks, rounded down; zero for an empty
// list.
func (s TaskStats) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return s.Completed * 100 / s.Total
}

// TaskService defines the operations on a user's task list. Every method is
// scoped to the calling user.
type TaskService interface {
	// ListTasks returns the user's tasks, newest first.
	ListTasks(ctx context.Context, userID uint) ([]TaskResponse, error)

	// AddTask creates a pending task.
	AddTask(ctx context.Context, userID uint, req CreateTaskRequest) (*TaskResponse, error)

	// ToggleTask flips the completed flag.
	ToggleTask(ctx context.Context, taskID, userID uint) (*TaskResponse, error)

	// UpdateTask sets the supplied fields, or toggles when none are supplied.
	UpdateTask(ctx context.Context, taskID, userID uint, req UpdateTaskRequest) (*TaskResponse, error)

	// DeleteTask removes a task.
	DeleteTask(ctx context.Context, taskID, userID uint) error

	// ClearCompleted removes every completed task and returns how many went.
	ClearCompleted(ctx context.Context, userID uint) (int64, error)
}

type taskService struct {
	repo repository.TaskRepository
	log  *logrus.Entry
}

func NewTaskService(repo repository.TaskRepository, log *logrus.Entry) TaskService {
	return &taskService{
		repo: repo,
		log:  log.WithField("component", "task_service"),
	}
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", validationError("Task cannot be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", validationError(fmt.Sprintf("Task title must be at most %d characters", maxTitleLength))
	}
	return title, nil
}

func (s *taskService) ListTasks(ctx context.Context, userID uint) ([]TaskResponse, error) {
	tasks, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("list tasks")
		return nil, serverError("Failed to retrieve tasks", err)
	}

	responses := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		responses = append(responses, *toTaskResponse(&tasks[i]))
	}
	return responses, nil
}

func (s *taskService) AddTask(ctx context.Context, userID uint, req CreateTaskRequest) (*TaskResponse, error) {
	if req.UserID != nil && *req.UserID != userID {
		return nil, forbiddenError("You cannot add tasks for another user")
	}
	title, err := validateTitle(req.Title)
	if err != nil {
		return nil, err
	}

	task := &domain.Task{Title: title, Completed: false, UserID: userID}
	if err := s.repo.Create(ctx, task); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("create task")
		return nil, serverError("Failed to add task", err)
	}
	return toTaskResponse(task), nil
}

// owned loads taskID and checks that userID owns it.
func (s *taskService) owned(ctx context.Context, taskID, userID uint) (*domain.Task, error) {
	task, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError(fmt.Sprintf("Task with ID %d not found", taskID))
		}
		s.log.WithError(err).WithField("task_id", taskID).Error("fetch task")
		return nil, serverError("Failed to retrieve task", err)
	}
	if !task.OwnedBy(userID) {
		s.log.WithFields(logrus.Fields{"task_id": taskID, "user_id": userID}).Warn("access to foreign task denied")
		return nil, forbiddenError("You do not have access to this task")
	}
	return task, nil
}

func (s *taskService) ToggleTask(ctx context.Context, taskID, userID uint) (*TaskResponse, error) {
	return s.UpdateTask(ctx, taskID, userID, UpdateTaskRequest{})
}

func (s *taskService) UpdateTask(ctx context.Context, taskID, userID uint, req UpdateTaskRequest) (*TaskResponse, error) {
	var title string
	if req.Title != nil {
		t, err := validateTitle(*req.Title)
		if err != nil {
			return nil, err
		}
		title = t
	}

	task, err := s.owned(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}

	switch {
	case req.Title == nil && req.Completed == nil:
		task.Completed = !task.Completed
	default:
		if req.Title != nil {
			task.Title = title
		}
		if req.Completed != nil {
			task.Completed = *req.Completed
		}
	}

	if err := s.repo.Update(ctx, task); err != nil {
		s.log.WithError(err).WithField("task_id", taskID).Error("update task")
		return nil, serverError("Failed to update task", err)
	}
	return toTaskResponse(task), nil
}

func (s *taskService) DeleteTask(ctx context.Context, taskID, userID uint) error {
	if _, err := s.owned(ctx, taskID, userID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, taskID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundError(fmt.Sprintf("Task with ID %d not found", taskID))
		}
		s.log.WithError(err).WithField("task_id", taskID).Error("delete task")
		return serverError("Failed to delete task", err)
	}
	return nil
}

func (s *taskService) ClearCompleted(ctx context.Context, userID uint) (int64, error) {
	removed, err := s.repo.DeleteCompleted(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("clear completed tasks")
		return 0, serverError("Failed to clear completed tasks", err)
	}
	return removed, nil
}
