package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/olgkv/linkchecker/internal/domain"
	"github.com/olgkv/linkchecker/internal/ports"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxRedirects = 10

	// drainLimit bounds how much of a GET body is read before the connection is reused.
	drainLimit = 64 << 10
)

// Limiter paces outgoing requests per host.
type Limiter interface {
	Wait(ctx context.Context, host string) error
}

// Options configures a Resolver.
type Options struct {
	Timeout      time.Duration
	MaxRedirects int
	Method       string
	// Hosts, when set, is waited on before every hop, redirect targets included.
	Hosts Limiter
}

// Resolver follows the redirect chain of a single URL and records one verdict per hop.
type Resolver struct {
	client ports.HTTPClient
	opts   Options
	logger zerolog.Logger
}

// New returns a Resolver. The client must return redirect responses instead of following them.
func New(client ports.HTTPClient, opts Options, logger zerolog.Logger) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRedirects < 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.Method == "" {
		opts.Method = http.MethodHead
	}
	return &Resolver{
		client: client,
		opts:   opts,
		logger: logger.With().Str("component", "resolver").Logger(),
	}
}

type hopResponse struct {
	status   int
	location string
}

// Resolve requests target and follows redirects. It never fails: every outcome,
// including a transport error, is reported as the last verdict of the chain.
func (r *Resolver) Resolve(ctx context.Context, target *url.URL) (chain []domain.LinkVerdict) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().Interface("panic", p).Str("url", target.String()).Msg("resolver panicked")
			chain = append(chain, domain.TransportFailure(target.String()))
		}
	}()

	chain = make([]domain.LinkVerdict, 0, 1)
	current := target
	// A redirect hop is held back until the outcome of the hop it leads to is known.
	var pending *domain.LinkVerdict

	flush := func(targetOK bool) {
		if pending == nil {
			return
		}
		v := *pending
		v.OK = targetOK
		chain = append(chain, v)
		pending = nil
	}

	for hop := 0; ; hop++ {
		requested := current.String()
		resp, err := r.hop(ctx, current)
		if err != nil {
			r.logger.Debug().Err(err).Str("url", requested).Int("hop", hop).Msg("transport failure")
			flush(false)
			chain = append(chain, domain.TransportFailure(requested))
			return chain
		}

		code := resp.status
		r.logger.Debug().Str("url", requested).Int("hop", hop).Int("status", code).Msg("hop resolved")

		if code >= 300 && code <= 399 && resp.location != "" {
			next, err := current.Parse(resp.location)
			if err != nil || (next.Scheme != "http" && next.Scheme != "https") || next.Host == "" {
				flush(false)
				chain = append(chain, domain.LinkVerdict{
					RequestedURL: requested,
					ResolvedURL:  requested,
					StatusCode:   domain.StatusPtr(code),
					Reason:       domain.ReasonBadLocation,
					Kind:         domain.KindHTTPError,
				})
				return chain
			}
			if hop >= r.opts.MaxRedirects {
				flush(false)
				chain = append(chain, domain.LinkVerdict{
					RequestedURL: requested,
					ResolvedURL:  requested,
					StatusCode:   domain.StatusPtr(code),
					Reason:       domain.ReasonTooManyRedirects,
					Kind:         domain.KindTooManyRedirects,
				})
				return chain
			}

			next.Fragment = ""
			next.RawFragment = ""
			flush(false)
			pending = &domain.LinkVerdict{
				RequestedURL: requested,
				ResolvedURL:  next.String(),
				StatusCode:   domain.StatusPtr(code),
				Reason:       statusText(code),
				Kind:         domain.KindRedirect,
			}
			current = next
			continue
		}

		ok := code >= 200 && code <= 299
		kind := domain.KindHTTPError
		if ok {
			kind = domain.KindOK
		}
		flush(ok)
		chain = append(chain, domain.LinkVerdict{
			RequestedURL: requested,
			OK:           ok,
			ResolvedURL:  requested,
			StatusCode:   domain.StatusPtr(code),
			Reason:       statusText(code),
			Kind:         kind,
		})
		return chain
	}
}

func (r *Resolver) hop(ctx context.Context, u *url.URL) (hopResponse, error) {
	if r.opts.Hosts != nil {
		if err := r.opts.Hosts.Wait(ctx, u.Hostname()); err != nil {
			return hopResponse{}, fmt.Errorf("host limiter: %w", err)
		}
	}
	return r.exchange(ctx, u)
}

// exchange performs one hop, retrying with GET when a server refuses HEAD.
func (r *Resolver) exchange(ctx context.Context, u *url.URL) (hopResponse, error) {
	resp, err := r.send(ctx, r.opts.Method, u)
	if err != nil {
		return hopResponse{}, err
	}
	if r.opts.Method == http.MethodHead &&
		(resp.status == http.StatusMethodNotAllowed || resp.status == http.StatusNotImplemented) {
		if retry, err := r.send(ctx, http.MethodGet, u); err == nil {
			return retry, nil
		}
	}
	return resp, nil
}

func (r *Resolver) send(ctx context.Context, method string, u *url.URL) (hopResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return hopResponse{}, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return hopResponse{}, err
	}
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
		_ = resp.Body.Close()
	}
	return hopResponse{status: resp.StatusCode, location: resp.Header.Get("Location")}, nil
}

func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return fmt.Sprintf("Status %d", code)
}
