package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/atlasvoyages/cruisesync/internal/adapters/metrics"
	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/application/importer"
	"github.com/atlasvoyages/cruisesync/internal/application/maintenance"
)

// Server is the HTTP control surface of the sync daemon. All state
// mutation goes through the application services; handlers only decode,
// dispatch and encode.
type Server struct {
	router *mux.Router

	sync     *importer.SyncService
	history  common.SyncHistoryRepository
	feed     common.FeedClient
	cache    common.ReferenceCache
	purge    *maintenance.PurgeService
	cleanup  *maintenance.CleanupService
	stubs    *maintenance.StubReportService
	importer common.SailingImporter
	db       *gorm.DB
	logger   common.Logger
}

// Deps carries everything the server needs
type Deps struct {
	Sync     *importer.SyncService
	History  common.SyncHistoryRepository
	Feed     common.FeedClient
	Cache    common.ReferenceCache
	Purge    *maintenance.PurgeService
	Cleanup  *maintenance.CleanupService
	Stubs    *maintenance.StubReportService
	Importer common.SailingImporter
	DB       *gorm.DB
	Logger   common.Logger
}

// NewServer builds the router and wires all endpoints
func NewServer(deps Deps) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		sync:     deps.Sync,
		history:  deps.History,
		feed:     deps.Feed,
		cache:    deps.Cache,
		purge:    deps.Purge,
		cleanup:  deps.Cleanup,
		stubs:    deps.Stubs,
		importer: deps.Importer,
		db:       deps.DB,
		logger:   deps.Logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.loggingMiddleware)

	api := s.router.PathPrefix("/cruise-import").Subrouter()

	api.HandleFunc("/sync", s.handleStartSync).Methods(http.MethodPost)
	api.HandleFunc("/sync/dry-run", s.handleDryRun).Methods(http.MethodPost)
	api.HandleFunc("/sync/status", s.handleSyncStatus).Methods(http.MethodGet)
	api.HandleFunc("/sync/cancel", s.handleCancelSync).Methods(http.MethodPost)
	api.HandleFunc("/sync/history", s.handleSyncHistory).Methods(http.MethodGet)
	api.HandleFunc("/sync/history/{id}", s.handleSyncHistoryByID).Methods(http.MethodGet)
	api.HandleFunc("/test-connection", s.handleTestConnection).Methods(http.MethodGet)
	api.HandleFunc("/available-years", s.handleAvailableYears).Methods(http.MethodGet)

	api.HandleFunc("/purge", s.handlePurge).Methods(http.MethodPost)
	api.HandleFunc("/storage-stats", s.handleStorageStats).Methods(http.MethodGet)
	api.HandleFunc("/cleanup/preview", s.handleCleanupPreview).Methods(http.MethodGet)
	api.HandleFunc("/cleanup", s.handleCleanup).Methods(http.MethodPost)
	api.HandleFunc("/backfill-alternates", s.handleBackfillAlternates).Methods(http.MethodPost)

	api.HandleFunc("/cache-stats", s.handleCacheStats).Methods(http.MethodGet)
	api.HandleFunc("/cache/clear", s.handleCacheClear).Methods(http.MethodPost)

	api.HandleFunc("/stubs-report", s.handleStubReport).Methods(http.MethodGet)
	api.HandleFunc("/coverage-stats", s.handleCoverageStats).Methods(http.MethodGet)

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	if metrics.IsEnabled() {
		s.router.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}
}

// Handler returns the root http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// loggingMiddleware attaches the logger to the request context and logs
// one line per request.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := common.WithLogger(r.Context(), s.logger)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))
		s.logger.Log("debug", "http request", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"durationMs": time.Since(start).Milliseconds(),
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
