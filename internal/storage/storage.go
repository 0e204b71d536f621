package storage

import (
	"fmt"
	"sync"

	"github.com/olgkv/linkchecker/internal/domain"
	"github.com/olgkv/linkchecker/internal/ports"
)

var ErrTaskNotFound = ports.ErrTaskNotFound

// MemoryStorage keeps tasks for the lifetime of the process.
type MemoryStorage struct {
	mu     sync.RWMutex
	nextID int
	tasks  map[int]*domain.Task
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		nextID: 1,
		tasks:  make(map[int]*domain.Task),
	}
}

func (s *MemoryStorage) CreateTask(links []string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	t := &domain.Task{ID: id, Links: append([]string(nil), links...)}
	s.tasks[id] = t
	return copyTask(t), nil
}

func (s *MemoryStorage) UpdateTaskResult(id int, result domain.LinkReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("update task %d: %w", id, ErrTaskNotFound)
	}
	t.Result = domain.CopyReport(result)
	return nil
}

// GetTasks returns the known tasks among ids, in the order requested. Unknown ids are skipped.
func (s *MemoryStorage) GetTasks(ids []int) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]*domain.Task, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.tasks[id]; ok {
			res = append(res, copyTask(t))
		}
	}
	return res, nil
}

// Stats возвращает количество всех задач и количество задач, у которых заполнен результат.
func (s *MemoryStorage) Stats() (total int, completed int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tasks {
		total++
		if t.Result != nil {
			completed++
		}
	}
	return total, completed
}

func copyTask(t *domain.Task) *domain.Task {
	return &domain.Task{
		ID:     t.ID,
		Links:  append([]string(nil), t.Links...),
		Result: domain.CopyReport(t.Result),
	}
}
