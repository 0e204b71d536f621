package ports

import (
	"errors"

	"github.com/olgkv/linkchecker/internal/domain"
)

// ErrTaskNotFound is returned by TaskStorage implementations for unknown task ids.
var ErrTaskNotFound = errors.New("task not found")

// TaskStorage describes the task bookkeeping used by the HTTP service.
type TaskStorage interface {
	CreateTask(links []string) (*domain.Task, error)
	UpdateTaskResult(id int, result domain.LinkReport) error
	GetTasks(ids []int) ([]*domain.Task, error)
	Stats() (total int, completed int)
}
