package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kestrel-run/modelmesh/pkg/adapter"
	"github.com/kestrel-run/modelmesh/pkg/artifact"
	"github.com/kestrel-run/modelmesh/pkg/cache"
	"github.com/kestrel-run/modelmesh/pkg/ratelimit"
	"github.com/kestrel-run/modelmesh/pkg/router"
	"github.com/kestrel-run/modelmesh/pkg/schema"
	"github.com/kestrel-run/modelmesh/pkg/telemetry"
)

const cacheKeyPrefix = "moderation:"

// Server hosts the Moderation Service's HTTP endpoints.
type Server struct {
	backends map[string]adapter.Adapter
	router   *router.Router
	store    *telemetry.Store
	limiter  *ratelimit.Limiter
	limits   ratelimit.Limits
	cache    cache.Adapter
	cacheTTL time.Duration
	alerts   AlertSink
	metrics  *metricsState
	model    func(backend string) string
}

// Option configures a Server.
type Option func(*Server)

// WithAlertSink overrides the default stderr alert sink.
func WithAlertSink(sink AlertSink) Option {
	return func(s *Server) { s.alerts = sink }
}

// WithCacheTTL overrides the default cache TTL for non-critical results.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Server) { s.cacheTTL = d }
}

// WithModelSelector overrides which model is requested for a given
// backend; defaults to the adapter's first advertised model.
func WithModelSelector(fn func(backend string) string) Option {
	return func(s *Server) { s.model = fn }
}

// NewServer wires the full moderation pipeline: rate limiting, caching,
// routing, invocation, telemetry, and alerting.
func NewServer(backends map[string]adapter.Adapter, r *router.Router, store *telemetry.Store, limiter *ratelimit.Limiter, limits ratelimit.Limits, cacheAdapter cache.Adapter, opts ...Option) *Server {
	s := &Server{
		backends: backends,
		router:   r,
		store:    store,
		limiter:  limiter,
		limits:   limits,
		cache:    cacheAdapter,
		cacheTTL: 10 * time.Minute,
		alerts:   StderrAlertSink{},
		metrics:  newMetricsState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the full mux and wraps it in withTracing(withLogging(...)).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/stats", s.handleStats)

	moderate := http.HandlerFunc(s.handleModerate)
	mux.Handle("/v1/moderate", ratelimit.Middleware(s.limiter, s.limits)(moderate))

	return withTracing(withLogging(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics, cacheStats := s.metrics.snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics": metrics,
		"cache":   cacheStats,
	})
}

func (s *Server) handleModerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := s.Moderate(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics, _ := s.metrics.snapshot()
	writeJSON(w, http.StatusOK, moderateResponse{Result: result, Metrics: metrics})
}

// moderateResponse is the body of POST /v1/moderate: the verdict embedded
// alongside a rolling metrics snapshot, so a caller can see how the call
// shifted the aggregate without a second request to /v1/stats.
type moderateResponse struct {
	Result
	Metrics RollingMetrics `json:"metrics"`
}

// Moderate runs the full pipeline for one request: cache lookup (unless
// streaming), routing, invocation, telemetry, rolling metrics, and
// alerting. It is exported so callers can drive it outside HTTP.
func (s *Server) Moderate(ctx context.Context, req Request) (Result, error) {
	cacheKey := s.cacheKey(req)

	if !req.Stream {
		if raw, err := s.cache.Get(ctx, cacheKey); err == nil {
			var cached Result
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				cached.Cached = true
				s.metrics.recordCacheHit()
				return cached, nil
			}
		}
		s.metrics.recordCacheMiss()
	}

	requiredCaps := map[string]bool{"structured_output": true}
	if req.Stream {
		requiredCaps["streaming"] = true
	}
	selection := s.router.Select(telemetry.RouterConfig{
		Task:                 telemetry.TaskClassification,
		Priority:             telemetry.PrioritySpeed,
		Complexity:           telemetry.ComplexityLow,
		MaxLatencyMS:         2000,
		RequiredCapabilities: requiredCaps,
	})

	backend, ok := s.backends[selection.Selected]
	if !ok {
		result := failSafeResult(fmt.Sprintf("backend %q unavailable", selection.Selected))
		s.metrics.recordRequest(result, 0)
		return result, nil
	}

	start := time.Now()
	resp, err := backend.Generate(ctx, adapter.Request{
		Model:  s.modelFor(backend),
		Prompt: moderationPrompt(req),
		Schema: schema.ModerationResultSchema,
	})
	latency := time.Since(start).Milliseconds()

	if err != nil {
		s.store.Update(selection.Selected, latency, false)
		result := failSafeResult(err.Error())
		s.metrics.recordRequest(result, latency)
		return result, nil
	}

	s.store.Update(selection.Selected, latency, true)

	result := resultFromStructured(resp.Structured)
	s.metrics.recordRequest(result, latency)

	if shouldAlert(result) {
		s.alerts.Emit(newAlert(req.Message, result))
	}

	if !req.Stream && result.Severity != severityCritical {
		if raw, marshalErr := json.Marshal(result); marshalErr == nil {
			_ = s.cache.Set(ctx, cacheKey, raw, s.cacheTTL)
		}
	}

	return result, nil
}

func (s *Server) modelFor(a adapter.Adapter) string {
	if s.model != nil {
		if m := s.model(a.Name()); m != "" {
			return m
		}
	}
	models := a.Models()
	if len(models) > 0 {
		return models[0]
	}
	return ""
}

func (s *Server) cacheKey(req Request) string {
	normalized := strings.ToLower(strings.TrimSpace(req.Message)) + "|" + strings.ToLower(strings.TrimSpace(req.Locale))
	return cacheKeyPrefix + artifact.ContentHash([]byte(normalized))
}

func moderationPrompt(req Request) string {
	locale := req.Locale
	if locale == "" {
		locale = "auto-detect"
	}
	return fmt.Sprintf(
		"Classify the following message for moderation. Locale hint: %s.\n\nMessage:\n%s",
		locale, req.Message,
	)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withTracing stamps each response with a request ID and logs its final
// status. No tracing SDK is part of this stack, so this keeps a
// dependency-free request ID in place of a real span.
func withTracing(next http.Handler) http.Handler {
	var counter int64
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seq := atomic.AddInt64(&counter, 1)
		requestID := fmt.Sprintf("req-%d-%d", time.Now().UnixNano(), seq)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		sw.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(sw, r)
		log.Printf("%s %s -> %d (%s)", r.Method, r.URL.Path, sw.status, requestID)
	})
}
