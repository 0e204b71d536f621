package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/olgkv/linkchecker/internal/archive"
	"github.com/olgkv/linkchecker/internal/domain"
	"github.com/olgkv/linkchecker/internal/policy"
	"github.com/olgkv/linkchecker/internal/service"
)

type contextKey struct{ name string }

var LinksNumContextKey = &contextKey{name: "links_num"}

const (
	reportGenerationTimeout = 30 * time.Second
	maxBodyBytes            = 10 << 20
)

type LinksRequest struct {
	Links []string `json:"links"`
}

type LinksResponse struct {
	Links     domain.LinkReport `json:"links"`
	LinksNum  int               `json:"links_num"`
	Persisted bool              `json:"persisted"`
}

type ReportRequest struct {
	LinksList []int `json:"links_list"`
}

// ArchiveRequest archives the links of a checked task. Empty fields fall back to the server defaults.
type ArchiveRequest struct {
	LinksNum int    `json:"links_num"`
	Mode     string `json:"mode,omitempty"`
	Include  []int  `json:"include,omitempty"`
	Exclude  []int  `json:"exclude,omitempty"`
}

type Handler struct {
	svc      *service.Service
	maxLinks int
	rules    policy.Rules
}

func NewHandler(svc *service.Service, maxLinks int, rules policy.Rules) *Handler {
	if maxLinks <= 0 {
		maxLinks = 50
	}
	return &Handler{svc: svc, maxLinks: maxLinks, rules: rules}
}

func (h *Handler) Links(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req LinksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if len(req.Links) == 0 || len(req.Links) > h.maxLinks {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	id, result, err := h.svc.CheckLinks(r.Context(), req.Links)
	if err != nil && !errors.Is(err, service.ErrResultPersistDeferred) {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	ctxWithNum := context.WithValue(r.Context(), LinksNumContextKey, id)
	*r = *r.WithContext(ctxWithNum)

	resp := LinksResponse{Links: result, LinksNum: id, Persisted: err == nil}
	status := http.StatusOK
	if err != nil {
		status = http.StatusAccepted
	}
	writeJSON(w, status, resp)
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if len(req.LinksList) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	for _, id := range req.LinksList {
		if id <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), reportGenerationTimeout)
	defer cancel()

	data, err := h.svc.GenerateReport(ctx, req.LinksList)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			http.Error(w, "report generation timeout", http.StatusGatewayTimeout)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=report.pdf")
	_, _ = w.Write(data)
}

func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LinksNum <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	rules, err := h.requestRules(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	*r = *r.WithContext(context.WithValue(r.Context(), LinksNumContextKey, req.LinksNum))

	sum, err := h.svc.Archive(r.Context(), req.LinksNum, rules)
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		w.WriteHeader(http.StatusNotFound)
		return
	case errors.Is(err, service.ErrTaskPending):
		w.WriteHeader(http.StatusConflict)
		return
	case errors.Is(err, service.ErrArchiveDisabled):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, archiveResponse(sum))
}

func (h *Handler) requestRules(req ArchiveRequest) (policy.Rules, error) {
	rules := h.rules
	if req.Mode != "" {
		mode, err := policy.ParseMode(req.Mode)
		if err != nil {
			return policy.Rules{}, err
		}
		rules.Mode = mode
	}
	if req.Include != nil {
		rules.Include = policy.NewStatusSet(req.Include...)
	}
	if req.Exclude != nil {
		rules.Exclude = policy.NewStatusSet(req.Exclude...)
	}
	return rules, nil
}

// archiveResponse replaces nil lists so clients always see arrays.
func archiveResponse(sum archive.Summary) archive.Summary {
	if sum.Archived == nil {
		sum.Archived = []domain.ArchiveOutcome{}
	}
	if sum.Failed == nil {
		sum.Failed = []domain.ArchiveOutcome{}
	}
	if sum.Excluded == nil {
		sum.Excluded = []string{}
	}
	if sum.Invalid == nil {
		sum.Invalid = []string{}
	}
	return sum
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
