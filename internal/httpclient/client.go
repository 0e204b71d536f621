package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

const DefaultUserAgent = "Mozilla/5.0 (compatible; linkchecker/1.0; +https://github.com/olgkv/linkchecker)"

// Config holds settings for the HTTP client.
type Config struct {
	Timeout         time.Duration
	UserAgent       string
	Insecure        bool
	FollowRedirects bool
	MaxIdleConns    int
}

// headerRoundTripper injects default headers into every outgoing request.
type headerRoundTripper struct {
	base      http.RoundTripper
	userAgent string
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" || h.userAgent == "" {
		return h.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", h.userAgent)
	return h.base.RoundTrip(r)
}

// New returns a client suitable for sharing across workers. Unless FollowRedirects
// is set, redirect responses are returned to the caller untouched.
func New(cfg Config) *http.Client {
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.Insecure},
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   cfg.Timeout,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}

	client := &http.Client{
		Transport: &headerRoundTripper{base: transport, userAgent: cfg.UserAgent},
		Timeout:   cfg.Timeout,
	}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}
