// Package archive submits pages to a public web archive.
package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/olgkv/linkchecker/internal/domain"
	"github.com/olgkv/linkchecker/internal/ports"
	"github.com/olgkv/linkchecker/internal/ratelimit"
)

const (
	DefaultEndpoint = "https://web.archive.org"
	DefaultTimeout  = 60 * time.Second

	ReasonUnavailable = "archive service unavailable"
)

// Submitter asks an archive to capture a single URL.
type Submitter interface {
	Submit(ctx context.Context, target string) domain.ArchiveOutcome
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, target string) domain.ArchiveOutcome

func (f SubmitterFunc) Submit(ctx context.Context, target string) domain.ArchiveOutcome {
	return f(ctx, target)
}

type WaybackOptions struct {
	Endpoint string
	Timeout  time.Duration
	// RPS and Burst throttle submissions. Zero RPS disables throttling.
	RPS   float64
	Burst int
	// FailureThreshold consecutive failures open the breaker for Cooldown.
	FailureThreshold uint32
	Cooldown         time.Duration
}

// Wayback submits URLs to the Wayback Machine save endpoint.
type Wayback struct {
	client   ports.HTTPClient
	endpoint string
	host     string
	timeout  time.Duration
	limiter  *ratelimit.Keyed
	breaker  *breaker
	logger   zerolog.Logger
}

func NewWayback(client ports.HTTPClient, opts WaybackOptions, logger zerolog.Logger) (*Wayback, error) {
	endpoint := strings.TrimRight(opts.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid archive endpoint %q", opts.Endpoint)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Wayback{
		client:   client,
		endpoint: endpoint,
		host:     u.Host,
		timeout:  opts.Timeout,
		limiter:  ratelimit.NewKeyed(opts.RPS, burst, time.Hour),
		breaker:  newBreaker(opts.FailureThreshold, opts.Cooldown),
		logger:   logger.With().Str("component", "archive").Logger(),
	}, nil
}

// SaveURL returns the capture request URL for target.
func (w *Wayback) SaveURL(target string) string {
	return w.endpoint + "/save/" + quote(target)
}

func (w *Wayback) Submit(ctx context.Context, target string) domain.ArchiveOutcome {
	if !w.breaker.allow() {
		return domain.ArchiveFailed(target, ReasonUnavailable)
	}
	if err := w.limiter.Wait(ctx, w.host); err != nil {
		return domain.ArchiveFailed(target, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.SaveURL(target), nil)
	if err != nil {
		return domain.ArchiveFailed(target, err.Error())
	}
	resp, err := w.client.Do(req)
	if err != nil {
		w.breaker.failure()
		w.logger.Warn().Err(err).Str("url", target).Msg("archive request failed")
		return domain.ArchiveFailed(target, err.Error())
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		w.breaker.success()
		return domain.Archived(target)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		w.breaker.failure()
	}
	reason := http.StatusText(resp.StatusCode)
	if reason == "" {
		reason = fmt.Sprintf("Status %d", resp.StatusCode)
	}
	w.logger.Debug().Int("status", resp.StatusCode).Str("url", target).Msg("archive rejected")
	return domain.ArchiveFailed(target, reason)
}

// quote percent-encodes everything except unreserved characters and '/'.
func quote(s string) string {
	q := url.QueryEscape(s)
	q = strings.ReplaceAll(q, "+", "%20")
	return strings.ReplaceAll(q, "%2F", "/")
}
