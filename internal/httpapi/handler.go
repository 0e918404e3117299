package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nguyentantai21042004/audio-reader/internal/export"
	"github.com/nguyentantai21042004/audio-reader/internal/logger"
	"github.com/nguyentantai21042004/audio-reader/internal/metrics"
	"github.com/nguyentantai21042004/audio-reader/internal/pipeline"
	"github.com/nguyentantai21042004/audio-reader/internal/publish"
)

// Options bound what the API accepts.
type Options struct {
	MaxUploadBytes    int64
	AllowedContainers []string
}

// Handler exposes the pipeline operations over HTTP.
type Handler struct {
	registry  *pipeline.Registry
	exporter  export.Exporter
	publisher publish.Publisher
	metrics   *metrics.Metrics
	logger    logger.Logger

	maxUpload int64
	allowed   map[string]bool
}

// New creates a Handler. publisher may be nil when publishing is disabled.
func New(registry *pipeline.Registry, exporter export.Exporter, publisher publish.Publisher, m *metrics.Metrics, log logger.Logger, opts Options) *Handler {
	allowed := make(map[string]bool, len(opts.AllowedContainers))
	for _, c := range opts.AllowedContainers {
		allowed[strings.ToLower(strings.TrimPrefix(c, "."))] = true
	}
	return &Handler{
		registry:  registry,
		exporter:  exporter,
		publisher: publisher,
		metrics:   m,
		logger:    log,
		maxUpload: opts.MaxUploadBytes,
		allowed:   allowed,
	}
}

// Routes builds the router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Delete("/", h.deleteSession)

			r.Post("/summary", h.summarize)
			r.Post("/topics", h.extractTopics)
			r.Post("/youtube-description", h.aggregate)
			r.Post("/process", h.processAll)
			r.Get("/report.docx", h.report)
			r.Post("/publish", h.publish)

			r.Route("/slots/{slot}", func(r chi.Router) {
				r.Put("/", h.bind)
				r.Post("/convert", h.convert)
				r.Get("/audio", h.downloadAudio)
				r.Post("/transcripts/{view}", h.transcribe)
				r.Get("/transcripts/{view}", h.downloadTranscript)
				r.Post("/description", h.describeClip)
			})
		})
	})

	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug(r.Context(), "%s %s -> %d (%s)", r.Method, r.URL.Path, ww.Status(), time.Since(started))
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.registry.Len(),
	})
}
