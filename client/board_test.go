package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Tomlord1122/task-manager/internal/logger"
)

var errOffline = &APIError{Status: http.StatusServiceUnavailable, Message: "offline"}

// scriptedAPI answers from memory and can fail or block on demand.
type scriptedAPI struct {
	mu     sync.Mutex
	tasks  []Task
	nextID uint
	fail   bool
	gate   chan struct{}
}

func (s *scriptedAPI) wait(ctx context.Context) error {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errOffline
	}
	return nil
}

func (s *scriptedAPI) ListTasks(ctx context.Context) ([]Task, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Task(nil), s.tasks...), nil
}

func (s *scriptedAPI) AddTask(ctx context.Context, title string) (*Task, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t := Task{ID: s.nextID, Title: title, CreatedAt: time.Date(2026, 1, 1, 0, 0, int(s.nextID), 0, time.UTC)}
	s.tasks = append(s.tasks, t)
	return &t, nil
}

func (s *scriptedAPI) SetCompleted(ctx context.Context, id uint, completed bool) (*Task, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i].Completed = completed
			t := s.tasks[i]
			return &t, nil
		}
	}
	return nil, &APIError{Status: http.StatusNotFound, Message: "not found"}
}

func (s *scriptedAPI) DeleteTask(ctx context.Context, id uint) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return nil
		}
	}
	return &APIError{Status: http.StatusNotFound, Message: "not found"}
}

func (s *scriptedAPI) ClearCompleted(ctx context.Context) (int64, error) {
	if err := s.wait(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []Task
	var n int64
	for _, t := range s.tasks {
		if t.Completed {
			n++
			continue
		}
		kept = append(kept, t)
	}
	s.tasks = kept
	return n, nil
}

func (s *scriptedAPI) setFail(v bool) {
	s.mu.Lock()
	s.fail = v
	s.mu.Unlock()
}

func seededBoard(t *testing.T, titles ...string) (*TaskBoard, *scriptedAPI) {
	t.Helper()
	api := &scriptedAPI{}
	board := NewTaskBoard(api, logger.Discard())
	for _, title := range titles {
		if _, err := board.Add(context.Background(), title); err != nil {
			t.Fatal(err)
		}
	}
	return board, api
}

func titles(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBoardAddIsNewestFirst(t *testing.T) {
	board, _ := seededBoard(t, "a", "b", "c")
	if got := titles(board.Tasks()); !equalStrings(got, []string{"c", "b", "a"}) {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestBoardAddShowsPendingEntryUntilConfirmed(t *testing.T) {
	api := &scriptedAPI{gate: make(chan struct{})}
	board := NewTaskBoard(api, logger.Discard())

	done := make(chan error, 1)
	go func() {
		_, err := board.Add(context.Background(), "draft")
		done <- err
	}()

	deadline := time.After(2 * time.Second)
	for {
		tasks := board.Tasks()
		if len(tasks) == 1 {
			if !tasks[0].Pending || tasks[0].Title != "draft" {
				t.Fatalf("expected a pending draft, got %+v", tasks[0])
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("pending entry never appeared")
		case <-time.After(time.Millisecond):
		}
	}

	close(api.gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	tasks := board.Tasks()
	if len(tasks) != 1 || tasks[0].Pending || tasks[0].ID == 0 {
		t.Fatalf("expected the confirmed task, got %+v", tasks)
	}
}

func TestBoardAddRevertsOnFailure(t *testing.T) {
	board, api := seededBoard(t, "kept")
	api.setFail(true)

	if _, err := board.Add(context.Background(), "lost"); !errors.Is(err, errOffline) {
		t.Fatalf("expected offline error, got %v", err)
	}
	if got := titles(board.Tasks()); !equalStrings(got, []string{"kept"}) {
		t.Fatalf("failed add should leave the board unchanged, got %v", got)
	}
}

func TestBoardToggle(t *testing.T) {
	board, api := seededBoard(t, "a")
	id := board.Tasks()[0].ID

	if _, err := board.Toggle(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	if !board.Tasks()[0].Completed {
		t.Fatal("expected completed after toggle")
	}

	api.setFail(true)
	if _, err := board.Toggle(context.Background(), id); err == nil {
		t.Fatal("expected an error")
	}
	if !board.Tasks()[0].Completed {
		t.Fatal("failed toggle should revert to completed")
	}

	if _, err := board.Toggle(context.Background(), 999); !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}
}

func TestBoardRemoveRestoresPositionOnFailure(t *testing.T) {
	board, api := seededBoard(t, "a", "b", "c")
	middle := board.Tasks()[1]

	api.setFail(true)
	if err := board.Remove(context.Background(), middle.ID); err == nil {
		t.Fatal("expected an error")
	}
	if got := titles(board.Tasks()); !equalStrings(got, []string{"c", "b", "a"}) {
		t.Fatalf("failed remove should restore order, got %v", got)
	}

	api.setFail(false)
	if err := board.Remove(context.Background(), middle.ID); err != nil {
		t.Fatal(err)
	}
	if got := titles(board.Tasks()); !equalStrings(got, []string{"c", "a"}) {
		t.Fatalf("unexpected board %v", got)
	}
}

func TestBoardClearCompleted(t *testing.T) {
	board, api := seededBoard(t, "a", "b", "c")
	for _, task := range board.Tasks() {
		if task.Title != "b" {
			if _, err := board.Toggle(context.Background(), task.ID); err != nil {
				t.Fatal(err)
			}
		}
	}

	api.setFail(true)
	if _, err := board.ClearCompleted(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if got := board.Stats(); got != (Stats{Total: 3, Completed: 2, Pending: 1}) {
		t.Fatalf("failed clear should restore tasks, got %+v", got)
	}

	api.setFail(false)
	n, err := board.ClearCompleted(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("ClearCompleted: %d, %v", n, err)
	}
	if got := titles(board.Tasks()); !equalStrings(got, []string{"b"}) {
		t.Fatalf("unexpected board %v", got)
	}
}

func TestBoardRefreshReplacesLocalState(t *testing.T) {
	board, api := seededBoard(t, "a")
	api.mu.Lock()
	api.tasks = append(api.tasks, Task{ID: 42, Title: "from elsewhere", CreatedAt: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)})
	api.mu.Unlock()

	if err := board.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := titles(board.Tasks()); !equalStrings(got, []string{"from elsewhere", "a"}) {
		t.Fatalf("unexpected board %v", got)
	}

	api.setFail(true)
	if err := board.Refresh(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if len(board.Tasks()) != 2 {
		t.Fatal("failed refresh should keep the local list")
	}
}
