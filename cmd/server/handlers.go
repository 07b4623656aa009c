package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"hn-post-classifier/internal/cache"
	"hn-post-classifier/internal/classifier"
	"hn-post-classifier/internal/metrics"
	"hn-post-classifier/internal/models"
	"hn-post-classifier/internal/pipeline"
	"hn-post-classifier/internal/textprep"
	"hn-post-classifier/pkg/logger"
)

const maxBody = 1 << 20

type normalizeReq struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type normalizeResp struct {
	Text   string             `json:"text"`
	Domain models.DomainParts `json:"domain"`
}

type bucketReq struct {
	Score *int `json:"score"`
}

type bucketResp struct {
	Score int         `json:"score"`
	Band  models.Band `json:"band"`
}

type handler struct {
	store   *cache.Store
	norm    *textprep.Normalizer
	log     *logger.Logger
	metrics *metrics.Metrics
}

func newHandler(store *cache.Store, l *logger.Logger, m *metrics.Metrics) *handler {
	return &handler{store: store, norm: textprep.NewNormalizer(l), log: l, metrics: m}
}

func (h *handler) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /normalize", h.normalize)
	mux.HandleFunc("POST /bucket", h.bucket)
	mux.HandleFunc("GET /splits/{name}", h.split)
	mux.Handle("GET /metrics", h.metrics.Handler())
	return mux
}

// POST /normalize  { "title": "...", "url": "https://..." }
func (h *handler) normalize(w http.ResponseWriter, r *http.Request) {
	var req normalizeReq
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	url := req.URL
	if url == "" || url == "None" {
		url = models.EmptyURL
	}
	writeJSON(w, http.StatusOK, normalizeResp{
		Text:   h.norm.Normalize(req.Title, url),
		Domain: h.norm.ExtractDomain(url),
	})
}

// POST /bucket  { "score": 42 }
func (h *handler) bucket(w http.ResponseWriter, r *http.Request) {
	var req bucketReq
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil || req.Score == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	writeJSON(w, http.StatusOK, bucketResp{Score: *req.Score, Band: classifier.Bucket(*req.Score)})
}

// GET /splits/{name}
func (h *handler) split(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	switch name {
	case models.SplitTrain, models.SplitVal, models.SplitTest:
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown split " + strconv.Quote(name)})
		return
	}
	st, err := pipeline.Stats(h.store, name)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "split not prepared yet"})
	case err != nil:
		h.log.Errorf("stats %s: %v", name, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not read split"})
	default:
		writeJSON(w, http.StatusOK, st)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequest(l *logger.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		// the route pattern keeps label cardinality bounded
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		l.Infof("%s %s %d %s", r.Method, r.URL.Path, rec.code, time.Since(start))
	})
}
