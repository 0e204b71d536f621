package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/olgkv/linkchecker/internal/archive"
	"github.com/olgkv/linkchecker/internal/domain"
	"github.com/olgkv/linkchecker/internal/metrics"
	pdfgen "github.com/olgkv/linkchecker/internal/pdf"
	"github.com/olgkv/linkchecker/internal/policy"
	"github.com/olgkv/linkchecker/internal/ports"
)

var (
	// ErrResultPersistDeferred means the links were checked but the task result could not be stored.
	ErrResultPersistDeferred = errors.New("task result persistence deferred")
	ErrArchiveDisabled       = errors.New("archiving is disabled")
	ErrTaskNotFound          = ports.ErrTaskNotFound
	ErrTaskPending           = errors.New("task has no result yet")
)

const resultRetryAttempts = 3

var sleep = time.Sleep

// Service runs link checks on behalf of the HTTP API and the command line.
type Service struct {
	storage  ports.TaskStorage
	checker  *Checker
	archiver archive.Submitter
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	inflight sync.WaitGroup
}

// New wires a Service. archiver may be nil, in which case archive requests fail with ErrArchiveDisabled.
func New(storage ports.TaskStorage, checker *Checker, archiver archive.Submitter, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		storage:  storage,
		checker:  checker,
		archiver: archiver,
		metrics:  m,
		logger:   logger.With().Str("component", "service").Logger(),
	}
}

// CheckLinks records a task, checks its links and stores the report.
// On ErrResultPersistDeferred the returned id and report are still valid.
func (s *Service) CheckLinks(ctx context.Context, links []string) (int, domain.LinkReport, error) {
	s.inflight.Add(1)
	defer s.inflight.Done()

	task, err := s.storage.CreateTask(links)
	if err != nil {
		return 0, nil, fmt.Errorf("create task: %w", err)
	}

	report := s.checker.CheckAll(ctx, links)
	if err := s.retryUpdateTaskResult(task.ID, report); err != nil {
		s.logger.Error().Err(err).Int("task_id", task.ID).Msg("failed to persist task result")
		return task.ID, report, ErrResultPersistDeferred
	}
	return task.ID, report, nil
}

func (s *Service) retryUpdateTaskResult(id int, report domain.LinkReport) error {
	backoff := time.Second
	var err error
	for attempt := 1; attempt <= resultRetryAttempts; attempt++ {
		if err = s.storage.UpdateTaskResult(id, report); err == nil {
			return nil
		}
		s.logger.Warn().Err(err).Int("task_id", id).Int("attempt", attempt).Msg("update task result")
		if attempt < resultRetryAttempts {
			sleep(backoff)
			backoff *= 2
		}
	}
	return err
}

func (s *Service) GenerateReport(ctx context.Context, ids []int) ([]byte, error) {
	tasks, err := s.storage.GetTasks(ids)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pdfgen.BuildLinksReport(tasks)
}

// Archive submits the links of a finished task under rules.
func (s *Service) Archive(ctx context.Context, id int, rules policy.Rules) (archive.Summary, error) {
	if s.archiver == nil || !rules.Enabled() {
		return archive.Summary{}, ErrArchiveDisabled
	}
	tasks, err := s.storage.GetTasks([]int{id})
	if err != nil {
		return archive.Summary{}, err
	}
	if len(tasks) == 0 {
		return archive.Summary{}, fmt.Errorf("task %d: %w", id, ErrTaskNotFound)
	}
	if tasks[0].Result == nil {
		return archive.Summary{}, fmt.Errorf("task %d: %w", id, ErrTaskPending)
	}

	s.inflight.Add(1)
	defer s.inflight.Done()
	return archive.SubmitAll(ctx, s.archiver, tasks[0].Result, rules, s.metrics, s.logger), nil
}

// Audit checks a batch of URLs and, when rules enable it, archives the accepted ones.
// The returned summary is nil when archiving was not requested.
func (s *Service) Audit(ctx context.Context, urls []string, rules policy.Rules) (domain.LinkReport, *archive.Summary, error) {
	s.inflight.Add(1)
	defer s.inflight.Done()

	report := s.checker.CheckAll(ctx, urls)
	if !rules.Enabled() {
		return report, nil, nil
	}
	if s.archiver == nil {
		return report, nil, ErrArchiveDisabled
	}
	s.logger.Info().Str("mode", rules.Mode.String()).Msg("archiving links")
	sum := archive.SubmitAll(ctx, s.archiver, report, rules, s.metrics, s.logger)
	return report, &sum, nil
}

// Wait blocks until in-flight checks and archive runs have finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}
