package domain

import (
	"fmt"
	"strings"
)

// Kind classifies a single hop of a redirect chain.
type Kind int

const (
	KindOK Kind = iota
	KindRedirect
	KindHTTPError
	KindTooManyRedirects
	KindTransportFailure
	KindMalformedURL
)

const (
	ReasonTransportFailure = "Error resolving URL"
	ReasonMalformedURL     = "Malformed URL"
	ReasonTooManyRedirects = "Too many redirects"
	ReasonBadLocation      = "Invalid redirect location"
)

var kindNames = map[Kind]string{
	KindOK:               "ok",
	KindRedirect:         "redirect",
	KindHTTPError:        "http_error",
	KindTooManyRedirects: "too_many_redirects",
	KindTransportFailure: "transport_failure",
	KindMalformedURL:     "malformed_url",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for kind, name := range kindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown verdict kind %q", s)
}

// LinkVerdict is the outcome of one HTTP hop while resolving a URL.
// StatusCode is nil exactly when no HTTP response reached the client.
type LinkVerdict struct {
	RequestedURL string `json:"requested_url"`
	OK           bool   `json:"ok"`
	ResolvedURL  string `json:"resolved_url"`
	StatusCode   *int   `json:"status_code"`
	Reason       string `json:"reason"`
	Kind         Kind   `json:"kind"`
}

// Status returns the HTTP status of the hop and whether one was received.
func (v LinkVerdict) Status() (int, bool) {
	if v.StatusCode == nil {
		return 0, false
	}
	return *v.StatusCode, true
}

// StatusPtr returns a pointer to a copy of code, for building verdicts.
func StatusPtr(code int) *int {
	return &code
}

// TransportFailure builds the single verdict recorded when no response was obtained.
func TransportFailure(requested string) LinkVerdict {
	return LinkVerdict{
		RequestedURL: requested,
		Reason:       ReasonTransportFailure,
		Kind:         KindTransportFailure,
	}
}

// MalformedURL builds the verdict recorded for input that could not be normalized.
func MalformedURL(raw string) LinkVerdict {
	return LinkVerdict{
		RequestedURL: raw,
		Reason:       ReasonMalformedURL,
		Kind:         KindMalformedURL,
	}
}

// LinkReport maps an input URL to its redirect chain, oldest hop first.
type LinkReport map[string][]LinkVerdict

// Final returns the terminal verdict for url.
func (r LinkReport) Final(url string) (LinkVerdict, bool) {
	chain, ok := r[url]
	if !ok || len(chain) == 0 {
		return LinkVerdict{}, false
	}
	return chain[len(chain)-1], true
}

// Broken returns the subset of the report whose final verdict is not ok.
func (r LinkReport) Broken() LinkReport {
	out := make(LinkReport)
	for url, chain := range r {
		if len(chain) == 0 || !chain[len(chain)-1].OK {
			out[url] = chain
		}
	}
	return out
}

// ArchiveOutcome reports what happened to a single archive submission.
type ArchiveOutcome struct {
	URL      string `json:"url"`
	Archived bool   `json:"archived"`
	Reason   string `json:"reason,omitempty"`
}

func Archived(url string) ArchiveOutcome {
	return ArchiveOutcome{URL: url, Archived: true}
}

func ArchiveFailed(url, reason string) ArchiveOutcome {
	return ArchiveOutcome{URL: url, Reason: reason}
}

type Task struct {
	ID     int        `json:"id"`
	Links  []string   `json:"links"`
	Result LinkReport `json:"result"`
}

// CopyReport returns a shallow copy of the map; chains are shared because they are never mutated.
func CopyReport(src LinkReport) LinkReport {
	if src == nil {
		return nil
	}
	dst := make(LinkReport, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
