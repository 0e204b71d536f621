package app

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/olgkv/linkchecker/internal/archive"
	"github.com/olgkv/linkchecker/internal/config"
	"github.com/olgkv/linkchecker/internal/httpapi"
	"github.com/olgkv/linkchecker/internal/httpclient"
	"github.com/olgkv/linkchecker/internal/metrics"
	"github.com/olgkv/linkchecker/internal/ratelimit"
	"github.com/olgkv/linkchecker/internal/resolver"
	"github.com/olgkv/linkchecker/internal/service"
	"github.com/olgkv/linkchecker/internal/storage"
)

// NewService wires the checker, the archive submitter and an in-memory task store.
func NewService(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) (*service.Service, *storage.MemoryStorage, error) {
	checkClient := httpclient.New(httpclient.Config{
		Timeout:   cfg.HTTPTimeout,
		UserAgent: cfg.UserAgent,
	})
	res := resolver.New(checkClient, resolver.Options{
		Timeout:      cfg.HTTPTimeout,
		MaxRedirects: cfg.MaxRedirects,
		Hosts:        newHostLimiter(cfg.CheckRPS, cfg.CheckBurst),
	}, logger)
	checker := service.NewChecker(res, service.CheckerOptions{
		MaxWorkers: cfg.MaxWorkers,
	}, m, logger)

	archiveClient := httpclient.New(httpclient.Config{
		Timeout:         cfg.Archive.Timeout,
		UserAgent:       cfg.UserAgent,
		FollowRedirects: true,
	})
	wayback, err := archive.NewWayback(archiveClient, archive.WaybackOptions{
		Endpoint:         cfg.Archive.Endpoint,
		Timeout:          cfg.Archive.Timeout,
		RPS:              cfg.Archive.RPS,
		Burst:            cfg.Archive.Burst,
		FailureThreshold: cfg.Archive.FailureThreshold,
		Cooldown:         cfg.Archive.Cooldown,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("archive submitter: %w", err)
	}
	submitter := archive.WithRetry(wayback, cfg.Archive.Retries+1, cfg.Archive.Backoff)

	st := storage.NewMemoryStorage()
	return service.New(st, checker, submitter, m, logger), st, nil
}

// NewServer wires application dependencies and returns configured HTTP server,
// service instance, and a stats function for graceful shutdown logging.
func NewServer(cfg *config.Config, reg *prometheus.Registry, logger zerolog.Logger) (*http.Server, *service.Service, func() (int, int), error) {
	m := metrics.New(reg)
	svc, st, err := NewService(cfg, m, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	rules, err := cfg.ArchiveRules()
	if err != nil {
		return nil, nil, nil, err
	}
	h := httpapi.NewHandler(svc, cfg.MaxLinks, rules)

	limiter := newIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	reqLog := logger.With().Str("component", "http").Logger()
	wrap := func(fn http.HandlerFunc) http.Handler {
		return rateLimitMiddleware(limiter, loggingMiddleware(reqLog, fn))
	}

	mux := http.NewServeMux()
	mux.Handle("/links", wrap(h.Links))
	mux.Handle("/report", wrap(h.Report))
	mux.Handle("/archive", wrap(h.Archive))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv, svc, st.Stats, nil
}

func loggingMiddleware(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lw, r)
		if v := r.Context().Value(httpapi.LinksNumContextKey); v != nil {
			if id, ok := v.(int); ok {
				lw.linksNum = id
			}
		}

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("links_num", lw.linksNum).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Int("status", lw.statusCode).
			Msg("request completed")
	})
}

// newHostLimiter paces link checks per target host; nil when check_rps is zero.
func newHostLimiter(rps float64, burst int) resolver.Limiter {
	if burst <= 0 {
		burst = 1
	}
	if k := ratelimit.NewKeyed(rps, burst, 5*time.Minute); k != nil {
		return k
	}
	return nil
}

func newIPRateLimiter(rps float64, burst int, ttl time.Duration) *ratelimit.Keyed {
	return ratelimit.NewKeyed(rps, burst, ttl)
}

func rateLimitMiddleware(limiter *ratelimit.Keyed, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(clientIP(r)) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For entry, then X-Real-IP, then the peer address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	linksNum   int
}

func (lw *loggingResponseWriter) WriteHeader(code int) {
	lw.statusCode = code
	lw.ResponseWriter.WriteHeader(code)
}
