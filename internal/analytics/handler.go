package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/internal/searcher/ranker"
)

const (
	defaultTopRanked = 10
	maxTopRanked     = 100
)

// Corpus is the searchable corpus the report describes.
type Corpus interface {
	Stats() (nodes, edges, terms int)
	TopRanked(n int) []ranker.ScoredDoc
}

// CorpusStats summarizes the link graph and index as they are now.
type CorpusStats struct {
	Nodes     int                `json:"nodes"`
	Edges     int                `json:"edges"`
	Terms     int                `json:"terms"`
	TopRanked []ranker.ScoredDoc `json:"top_ranked"`
}

// Report combines query traffic with the state of the corpus it ran against.
type Report struct {
	Search AggregatedStats `json:"search"`
	Corpus *CorpusStats    `json:"corpus,omitempty"`
}

type Handler struct {
	aggregator *Aggregator
	corpus     Corpus
	logger     *slog.Logger
}

// NewHandler creates a Handler. corpus may be nil, in which case the report
// only covers traffic.
func NewHandler(aggregator *Aggregator, corpus Corpus) *Handler {
	return &Handler{
		aggregator: aggregator,
		corpus:     corpus,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Stats serves GET /api/v1/analytics/stats?top=N. N bounds the list of
// highest-ranked documents and defaults to 10.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top := defaultTopRanked
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxTopRanked {
			h.write(w, http.StatusBadRequest, map[string]string{"error": "top must be between 1 and 100"})
			return
		}
		top = n
	}

	report := Report{Search: h.aggregator.Stats()}
	if h.corpus != nil {
		nodes, edges, terms := h.corpus.Stats()
		report.Corpus = &CorpusStats{
			Nodes:     nodes,
			Edges:     edges,
			Terms:     terms,
			TopRanked: h.corpus.TopRanked(top),
		}
	}
	h.write(w, http.StatusOK, report)
}

func (h *Handler) write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
