package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrUnknownTask is returned for an id the board does not hold.
var ErrUnknownTask = errors.New("task is not on the board")

// TaskAPI is the part of Client a TaskBoard drives.
type TaskAPI interface {
	ListTasks(ctx context.Context) ([]Task, error)
	AddTask(ctx context.Context, title string) (*Task, error)
	SetCompleted(ctx context.Context, id uint, completed bool) (*Task, error)
	DeleteTask(ctx context.Context, id uint) error
	ClearCompleted(ctx context.Context) (int64, error)
}

type Stats struct {
	Total     int
	Completed int
	Pending   int
}

// TaskBoard is a local copy of the user's task list. Every mutation is
// applied locally first, then confirmed with the server record or reverted
// if the request fails. The list is kept newest first.
//
// The lock is never held across a network call.
type TaskBoard struct {
	api TaskAPI
	log *logrus.Entry

	mu      sync.Mutex
	tasks   []Task
	nextLID uint64
	now     func() time.Time
}

func NewTaskBoard(api TaskAPI, log *logrus.Entry) *TaskBoard {
	return &TaskBoard{
		api: api,
		log: log.WithField("component", "task_board"),
		now: time.Now,
	}
}

// Refresh replaces the local list with the server's.
func (b *TaskBoard) Refresh(ctx context.Context) error {
	tasks, err := b.api.ListTasks(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = tasks
	b.sortLocked()
	return nil
}

// Tasks returns a snapshot of the list.
func (b *TaskBoard) Tasks() []Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Task, len(b.tasks))
	copy(out, b.tasks)
	return out
}

func (b *TaskBoard) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Stats{Total: len(b.tasks)}
	for _, t := range b.tasks {
		if t.Completed {
			s.Completed++
		}
	}
	s.Pending = s.Total - s.Completed
	return s
}

// Add shows a pending entry immediately and swaps it for the created task.
func (b *TaskBoard) Add(ctx context.Context, title string) (*Task, error) {
	b.mu.Lock()
	b.nextLID++
	lid := b.nextLID
	b.tasks = append(b.tasks, Task{Title: title, Pending: true, CreatedAt: b.now(), localID: lid})
	b.sortLocked()
	b.mu.Unlock()

	created, err := b.api.AddTask(ctx, title)

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexLocked(func(t *Task) bool { return t.localID == lid })
	if err != nil {
		if i >= 0 {
			b.removeLocked(i)
		}
		b.log.WithError(err).Warn("add task reverted")
		return nil, err
	}
	if i >= 0 {
		b.tasks[i] = *created
	} else {
		b.tasks = append(b.tasks, *created)
	}
	b.sortLocked()
	return created, nil
}

// Toggle flips a task locally and sends the new value explicitly, so two
// quick toggles cannot drift from what the user sees.
func (b *TaskBoard) Toggle(ctx context.Context, id uint) (*Task, error) {
	b.mu.Lock()
	i := b.indexLocked(byID(id))
	if i < 0 {
		b.mu.Unlock()
		return nil, errUnknownTask(id)
	}
	previous := b.tasks[i].Completed
	want := !previous
	b.tasks[i].Completed = want
	b.mu.Unlock()

	updated, err := b.api.SetCompleted(ctx, id, want)

	b.mu.Lock()
	defer b.mu.Unlock()
	i = b.indexLocked(byID(id))
	if err != nil {
		if i >= 0 && b.tasks[i].Completed == want {
			b.tasks[i].Completed = previous
		}
		b.log.WithError(err).WithField("task_id", id).Warn("toggle task reverted")
		return nil, err
	}
	if i >= 0 {
		b.tasks[i] = *updated
	}
	return updated, nil
}

// Remove drops a task locally and puts it back if the delete fails.
func (b *TaskBoard) Remove(ctx context.Context, id uint) error {
	b.mu.Lock()
	i := b.indexLocked(byID(id))
	if i < 0 {
		b.mu.Unlock()
		return errUnknownTask(id)
	}
	removed := b.tasks[i]
	b.removeLocked(i)
	b.mu.Unlock()

	if err := b.api.DeleteTask(ctx, id); err != nil {
		b.mu.Lock()
		b.restoreLocked([]Task{removed})
		b.mu.Unlock()
		b.log.WithError(err).WithField("task_id", id).Warn("remove task reverted")
		return err
	}
	return nil
}

// ClearCompleted drops every completed task locally and restores them if the
// request fails.
func (b *TaskBoard) ClearCompleted(ctx context.Context) (int64, error) {
	b.mu.Lock()
	var kept, removed []Task
	for _, t := range b.tasks {
		if t.Completed && !t.Pending {
			removed = append(removed, t)
		} else {
			kept = append(kept, t)
		}
	}
	b.tasks = kept
	b.mu.Unlock()

	n, err := b.api.ClearCompleted(ctx)
	if err != nil {
		b.mu.Lock()
		b.restoreLocked(removed)
		b.mu.Unlock()
		b.log.WithError(err).Warn("clear completed reverted")
		return 0, err
	}
	return n, nil
}

func byID(id uint) func(*Task) bool {
	return func(t *Task) bool { return !t.Pending && t.ID == id }
}

func (b *TaskBoard) indexLocked(match func(*Task) bool) int {
	for i := range b.tasks {
		if match(&b.tasks[i]) {
			return i
		}
	}
	return -1
}

func (b *TaskBoard) removeLocked(i int) {
	b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
}

// restoreLocked puts tasks back unless a later Refresh already has them.
func (b *TaskBoard) restoreLocked(tasks []Task) {
	for _, t := range tasks {
		if b.indexLocked(byID(t.ID)) < 0 {
			b.tasks = append(b.tasks, t)
		}
	}
	b.sortLocked()
}

func (b *TaskBoard) sortLocked() {
	sort.SliceStable(b.tasks, func(i, j int) bool {
		ti, tj := b.tasks[i], b.tasks[j]
		if !ti.CreatedAt.Equal(tj.CreatedAt) {
			return ti.CreatedAt.After(tj.CreatedAt)
		}
		return ti.ID > tj.ID
	})
}

func errUnknownTask(id uint) error {
	return fmt.Errorf("%w: %d", ErrUnknownTask, id)
}
