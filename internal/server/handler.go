package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/siterank/siterank/internal/analytics"
	apperrors "github.com/siterank/siterank/pkg/errors"
	"github.com/siterank/siterank/pkg/logger"
	"github.com/siterank/siterank/pkg/metrics"
	"github.com/siterank/siterank/pkg/middleware"
	"github.com/siterank/siterank/pkg/rank"
)

const (
	defaultTopCount = 10
	maxTopCount     = 100
)

type Handler struct {
	table     *rank.Table
	collector *analytics.Collector
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(table *rank.Table, collector *analytics.Collector, m *metrics.Metrics) *Handler {
	return &Handler{
		table:     table,
		collector: collector,
		metrics:   m,
		logger:    slog.Default().With("component", "rank-handler"),
	}
}

type rankResponse struct {
	Input  string `json:"input"`
	Domain string `json:"domain"`
	Rank   int    `json:"rank"`
}

type domainResponse struct {
	Rank   int    `json:"rank"`
	Domain string `json:"domain"`
}

type statusResponse struct {
	Loaded       bool `json:"loaded"`
	Entries      int  `json:"entries"`
	SkippedLines int  `json:"skipped_lines"`
}

// Rank answers GET /api/v1/rank?domain=<domain or URL>.
func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	input := r.URL.Query().Get("domain")
	if input == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'domain' is required"))
		return
	}

	domain := rank.Normalize(input)
	position, found := h.table.RankOf(input)
	latencyUs := time.Since(start).Microseconds()

	h.observe("rank", found)
	h.track(analytics.LookupEvent{
		Op:        "rank",
		Input:     input,
		Domain:    domain,
		Rank:      position,
		Found:     found,
		LatencyUs: latencyUs,
		RequestID: middleware.GetRequestID(ctx),
	})

	log.Info("rank lookup",
		"input", input,
		"domain", domain,
		"found", found,
		"latency_us", latencyUs,
	)

	if !found {
		h.writeError(w, apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound, "domain %q is not ranked", domain))
		return
	}
	h.writeJSON(w, http.StatusOK, rankResponse{Input: input, Domain: domain, Rank: position})
}

// Domain answers GET /api/v1/domain?rank=<n>.
func (h *Handler) Domain(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	rankStr := r.URL.Query().Get("rank")
	if rankStr == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'rank' is required"))
		return
	}
	position, err := strconv.Atoi(rankStr)
	if err != nil {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "rank must be an integer"))
		return
	}

	domain, found := h.table.DomainOf(position)
	latencyUs := time.Since(start).Microseconds()

	h.observe("domain", found)
	h.track(analytics.LookupEvent{
		Op:        "domain",
		Input:     rankStr,
		Domain:    domain,
		Rank:      position,
		Found:     found,
		LatencyUs: latencyUs,
		RequestID: middleware.GetRequestID(ctx),
	})

	log.Info("domain lookup",
		"rank", position,
		"found", found,
		"latency_us", latencyUs,
	)

	if !found {
		h.writeError(w, apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound, "no domain at rank %d", position))
		return
	}
	h.writeJSON(w, http.StatusOK, domainResponse{Rank: position, Domain: domain})
}

// Top answers GET /api/v1/top?n=<count> with the highest-ranked entries in
// source file order.
func (h *Handler) Top(w http.ResponseWriter, r *http.Request) {
	n := defaultTopCount
	if nStr := r.URL.Query().Get("n"); nStr != "" {
		parsed, err := strconv.Atoi(nStr)
		if err != nil || parsed < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "n must be a positive integer"))
			return
		}
		if parsed > maxTopCount {
			parsed = maxTopCount
		}
		n = parsed
	}

	entries := h.table.Top(n)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

// Status answers GET /api/v1/status with load state and build counters.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, statusResponse{
		Loaded:       h.table.Loaded(),
		Entries:      h.table.Len(),
		SkippedLines: h.table.Skipped(),
	})
}

func (h *Handler) observe(op string, found bool) {
	if h.metrics == nil {
		return
	}
	result := "miss"
	if found {
		result = "hit"
	}
	h.metrics.LookupsTotal.WithLabelValues(op, result).Inc()
}

func (h *Handler) track(ev analytics.LookupEvent) {
	if h.collector == nil {
		return
	}
	ev.Type = analytics.EventLookupMiss
	if ev.Found {
		ev.Type = analytics.EventLookupHit
	}
	ev.Timestamp = time.Now().UTC()
	h.collector.Track(ev)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": message})
}
