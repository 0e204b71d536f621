package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olgkv/linkchecker/internal/archive"
	"github.com/olgkv/linkchecker/internal/domain"
	"github.com/olgkv/linkchecker/internal/policy"
	"github.com/olgkv/linkchecker/internal/storage"
)

type integrationStorageMock struct {
	taskID      int
	createCalls int
	updateCalls int
	updateErr   error
	lastResult  domain.LinkReport
	tasks       []*domain.Task
}

func (m *integrationStorageMock) CreateTask(links []string) (*domain.Task, error) {
	m.createCalls++
	return &domain.Task{ID: m.taskID, Links: append([]string(nil), links...)}, nil
}

func (m *integrationStorageMock) UpdateTaskResult(id int, result domain.LinkReport) error {
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	m.lastResult = domain.CopyReport(result)
	return nil
}

func (m *integrationStorageMock) GetTasks(ids []int) ([]*domain.Task, error) { return m.tasks, nil }

func (m *integrationStorageMock) Stats() (int, int) { return len(m.tasks), 0 }

func statusResolver(codes map[string]int) Resolver {
	return resolverFunc(func(ctx context.Context, target *url.URL) []domain.LinkVerdict {
		u := target.String()
		code, ok := codes[u]
		if !ok {
			return []domain.LinkVerdict{domain.TransportFailure(u)}
		}
		return []domain.LinkVerdict{{RequestedURL: u, ResolvedURL: u, OK: code < 300, StatusCode: domain.StatusPtr(code)}}
	})
}

func newTestService(st *integrationStorageMock, codes map[string]int, sub archive.Submitter) *Service {
	c := NewChecker(statusResolver(codes), CheckerOptions{MaxWorkers: 4}, nil, zerolog.Nop())
	return New(st, c, sub, nil, zerolog.Nop())
}

func TestService_CheckLinks_Success(t *testing.T) {
	storage := &integrationStorageMock{taskID: 101}
	svc := newTestService(storage, map[string]int{
		"https://example.com/": 200,
		"https://go.dev/":      404,
	}, nil)

	links := []string{"https://example.com", "https://go.dev"}
	id, result, err := svc.CheckLinks(context.Background(), links)
	require.NoError(t, err)

	assert.Equal(t, 101, id)
	assert.Len(t, result, 2)
	assert.True(t, result["https://example.com"][0].OK)
	assert.False(t, result["https://go.dev"][0].OK)
	assert.Equal(t, 1, storage.createCalls)
	assert.Equal(t, 1, storage.updateCalls)
	assert.Equal(t, result, storage.lastResult)
}

func TestService_CheckLinks_PersistDeferred(t *testing.T) {
	originalSleep := sleep
	defer func() { sleep = originalSleep }()
	sleep = func(time.Duration) {}

	storage := &integrationStorageMock{taskID: 5, updateErr: errors.New("disk full")}
	svc := newTestService(storage, map[string]int{"https://example.com/": 200}, nil)

	id, result, err := svc.CheckLinks(context.Background(), []string{"https://example.com"})
	assert.ErrorIs(t, err, ErrResultPersistDeferred)
	assert.Equal(t, 5, id)
	assert.Len(t, result, 1)
	assert.Equal(t, resultRetryAttempts, storage.updateCalls)
}

func TestService_Archive(t *testing.T) {
	report := domain.LinkReport{
		"https://ok.example":   {{RequestedURL: "https://ok.example/", ResolvedURL: "https://ok.example/", OK: true, StatusCode: domain.StatusPtr(200)}},
		"https://gone.example": {{RequestedURL: "https://gone.example/", ResolvedURL: "https://gone.example/", StatusCode: domain.StatusPtr(404)}},
	}
	storage := &integrationStorageMock{tasks: []*domain.Task{{ID: 1, Result: report}}}

	var submitted []string
	sub := archive.SubmitterFunc(func(ctx context.Context, target string) domain.ArchiveOutcome {
		submitted = append(submitted, target)
		return domain.Archived(target)
	})
	svc := newTestService(storage, nil, sub)

	sum, err := svc.Archive(context.Background(), 1, policy.Rules{Mode: policy.ModeStandard})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://ok.example/"}, submitted)
	assert.Len(t, sum.Archived, 1)
	assert.Equal(t, []string{"https://gone.example"}, sum.Excluded)

	_, err = svc.Archive(context.Background(), 1, policy.Rules{})
	assert.ErrorIs(t, err, ErrArchiveDisabled)

	storage.tasks = nil
	_, err = svc.Archive(context.Background(), 9, policy.Rules{Mode: policy.ModeStrong})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	storage.tasks = []*domain.Task{{ID: 2}}
	_, err = svc.Archive(context.Background(), 2, policy.Rules{Mode: policy.ModeStrong})
	assert.ErrorIs(t, err, ErrTaskPending)

	_, err = newTestService(storage, nil, nil).Archive(context.Background(), 2, policy.Rules{Mode: policy.ModeStrong})
	assert.ErrorIs(t, err, ErrArchiveDisabled)
}

// Scenario D: archive in STRONG mode with default exclusion skips only the 404.
func TestService_AuditStrongMode(t *testing.T) {
	var submitted []string
	sub := archive.SubmitterFunc(func(ctx context.Context, target string) domain.ArchiveOutcome {
		submitted = append(submitted, target)
		return domain.Archived(target)
	})
	svc := newTestService(&integrationStorageMock{}, map[string]int{
		"https://a.example/": 200,
		"https://b.example/": 404,
		"https://c.example/": 500,
	}, sub)

	report, sum, err := svc.Audit(context.Background(),
		[]string{"https://a.example/", "https://b.example/", "https://c.example/", "http://down.example/"},
		policy.Rules{Mode: policy.ModeStrong, Exclude: policy.NewStatusSet(404)})
	require.NoError(t, err)
	require.NotNil(t, sum)

	assert.Len(t, report, 4)
	assert.Equal(t, []string{"https://a.example/", "https://c.example/"}, submitted)
	assert.Equal(t, []string{"https://b.example/"}, sum.Excluded)
	assert.Equal(t, []string{"http://down.example/"}, sum.Invalid)
}

func TestService_AuditWithoutArchiving(t *testing.T) {
	svc := newTestService(&integrationStorageMock{}, map[string]int{"https://a.example/": 200}, nil)

	report, sum, err := svc.Audit(context.Background(), []string{"https://a.example/"}, policy.Rules{})
	require.NoError(t, err)
	assert.Nil(t, sum)
	assert.Len(t, report, 1)
}

func TestService_TaskNotFoundMatchesStorage(t *testing.T) {
	st := storage.NewMemoryStorage()
	sub := archive.SubmitterFunc(func(ctx context.Context, target string) domain.ArchiveOutcome {
		return domain.Archived(target)
	})
	svc := New(st, nil, sub, nil, zerolog.Nop())

	_, err := svc.Archive(context.Background(), 42, policy.Rules{Mode: policy.ModeStrong})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	err = st.UpdateTaskResult(42, domain.LinkReport{})
	assert.ErrorIs(t, err, ErrTaskNotFound, "storage and service must share one sentinel")
}
