package policy

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/olgkv/linkchecker/internal/domain"
)

// Mode selects the default archive rule used when no inclusion set is configured.
type Mode int

const (
	ModeNone Mode = iota
	// ModeStandard archives clean successes only.
	ModeStandard
	// ModeStrong archives everything that is not a 404.
	ModeStrong
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeStandard:
		return "standard"
	case ModeStrong:
		return "strong"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ModeNone, nil
	case "standard":
		return ModeStandard, nil
	case "strong":
		return ModeStrong, nil
	default:
		return ModeNone, fmt.Errorf("unknown archive mode %q (want none, standard or strong)", s)
	}
}

// StatusSet is a set of HTTP status codes.
type StatusSet map[int]struct{}

func NewStatusSet(codes ...int) StatusSet {
	s := make(StatusSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

func (s StatusSet) Has(code int) bool {
	_, ok := s[code]
	return ok
}

// Codes returns the members in ascending order.
func (s StatusSet) Codes() []int {
	out := make([]int, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// ShouldArchive decides whether the page behind a final verdict gets submitted.
// Exclusion wins over inclusion; a non-empty inclusion set replaces the mode's default rule.
func ShouldArchive(final domain.LinkVerdict, mode Mode, include, exclude StatusSet) bool {
	code, ok := final.Status()
	if !ok {
		return false
	}
	if exclude.Has(code) {
		return false
	}
	if len(include) > 0 {
		return include.Has(code)
	}
	switch mode {
	case ModeStandard:
		return code >= 200 && code <= 299
	case ModeStrong:
		return code != http.StatusNotFound
	default:
		return false
	}
}

// Rules bundles the policy configuration produced by the command surface.
type Rules struct {
	Mode    Mode
	Include StatusSet
	Exclude StatusSet
}

func (r Rules) Enabled() bool {
	return r.Mode != ModeNone
}

func (r Rules) Accepts(final domain.LinkVerdict) bool {
	return ShouldArchive(final, r.Mode, r.Include, r.Exclude)
}

// Selection splits a report the way the archiver reports on it.
type Selection struct {
	// Accepted holds the input URLs whose final verdict passed the rules.
	Accepted []string
	// Excluded holds URLs with a status that the rules rejected.
	Excluded []string
	// Invalid holds URLs that never produced an HTTP status.
	Invalid []string
}

// Partition applies the rules to every entry of a report. Lists are sorted.
func Partition(report domain.LinkReport, rules Rules) Selection {
	var sel Selection
	for url := range report {
		final, ok := report.Final(url)
		if !ok {
			sel.Invalid = append(sel.Invalid, url)
			continue
		}
		if _, has := final.Status(); !has {
			sel.Invalid = append(sel.Invalid, url)
			continue
		}
		if rules.Accepts(final) {
			sel.Accepted = append(sel.Accepted, url)
		} else {
			sel.Excluded = append(sel.Excluded, url)
		}
	}
	sort.Strings(sel.Accepted)
	sort.Strings(sel.Excluded)
	sort.Strings(sel.Invalid)
	return sel
}
