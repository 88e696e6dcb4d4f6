// Package repotest provides in-memory repositories for handler and client
// tests that do not need a real database.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Tomlord1122/task-manager/internal/domain"
	"github.com/Tomlord1122/task-manager/internal/repository"
)

type Users struct {
	mu       sync.Mutex
	nextID   uint
	byID     map[uint]domain.User
	writeErr error
}

func NewUsers() *Users {
	return &Users{byID: map[uint]domain.User{}}
}

// FailWrites makes Create and Update return err until called with nil.
func (m *Users) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *Users) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = *u
	return nil
}

func (m *Users) FindByID(_ context.Context, id uint) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *Users) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *Users) Update(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	if _, ok := m.byID[u.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range m.byID {
		if id != u.ID && existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.UpdatedAt = time.Now()
	m.byID[u.ID] = *u
	return nil
}

// Tasks stamps CreatedAt from a clock that advances one second per insert so
// newest-first ordering is deterministic.
type Tasks struct {
	mu       sync.Mutex
	nextID   uint
	clock    time.Time
	byID     map[uint]domain.Task
	writeErr error
}

func NewTasks() *Tasks {
	return &Tasks{
		byID:  map[uint]domain.Task{},
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// FailWrites makes every mutating call return err until called with nil.
func (m *Tasks) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *Tasks) Create(_ context.Context, t *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.nextID++
	m.clock = m.clock.Add(time.Second)
	t.ID = m.nextID
	t.CreatedAt = m.clock
	t.UpdatedAt = m.clock
	m.byID[t.ID] = *t
	return nil
}

func (m *Tasks) FindByID(_ context.Context, id uint) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (m *Tasks) ListByUser(_ context.Context, userID uint) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Task{}
	for _, t := range m.byID {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Tasks) Update(_ context.Context, t *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	if _, ok := m.byID[t.ID]; !ok {
		return repository.ErrNotFound
	}
	m.clock = m.clock.Add(time.Second)
	t.UpdatedAt = m.clock
	m.byID[t.ID] = *t
	return nil
}

func (m *Tasks) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *Tasks) DeleteCompleted(_ context.Context, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	var n int64
	for id, t := range m.byID {
		if t.UserID == userID && t.Completed {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

// Len reports how many tasks are stored across all users.
func (m *Tasks) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}
