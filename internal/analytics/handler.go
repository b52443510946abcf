package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

const (
	defaultTopCount = 10
	maxTopCount     = 100
)

// Handler serves the aggregated lookup statistics over HTTP.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "stats-handler"),
	}
}

// Stats answers GET /api/v1/stats?top=<n>. The top parameter sizes the
// top-domains and top-misses lists and defaults to 10.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top := defaultTopCount
	if v := r.URL.Query().Get("top"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"top must be a positive integer"}`))
			return
		}
		top = min(parsed, maxTopCount)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(h.aggregator.Stats(top)); err != nil {
		h.logger.Error("failed to write stats response", "error", err)
	}
}
