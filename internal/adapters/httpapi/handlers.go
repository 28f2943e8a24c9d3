package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/atlasvoyages/cruisesync/internal/domain/ingestion"
	"github.com/atlasvoyages/cruisesync/internal/domain/shared"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeOptions reads sync options from the request body; an empty body
// means default options.
func decodeOptions(r *http.Request) (ingestion.SyncOptions, error) {
	var opts ingestion.SyncOptions
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return opts, err
	}
	if len(body) == 0 {
		return opts, nil
	}
	if err := json.Unmarshal(body, &opts); err != nil {
		return opts, err
	}
	return opts, nil
}

func (s *Server) handleStartSync(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sync options: "+err.Error())
		return
	}

	metrics, _, err := s.sync.Run(r.Context(), opts)
	if err != nil {
		var busy *shared.SyncInProgressError
		var guard *shared.EnvironmentGuardError
		switch {
		case errors.As(err, &busy):
			writeError(w, http.StatusConflict, err.Error())
		case errors.As(err, &guard):
			writeError(w, http.StatusForbidden, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleDryRun(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sync options: "+err.Error())
		return
	}
	opts.DryRun = true

	metrics, _, err := s.sync.Run(r.Context(), opts)
	if err != nil {
		var busy *shared.SyncInProgressError
		if errors.As(err, &busy) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sync.Status())
}

func (s *Server) handleCancelSync(w http.ResponseWriter, r *http.Request) {
	if !s.sync.Cancel() {
		writeError(w, http.StatusConflict, "no sync in progress")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "cancellation requested"})
}

func (s *Server) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	records, err := s.history.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleSyncHistoryByID(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	record, err := s.history.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "sync run not found")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	if s.sync.Running() {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"skipped": true,
			"info":    "sync in progress, connection test skipped",
		})
		return
	}
	info, err := s.feed.TestConnection(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{"success": false, "info": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "info": info})
}

func (s *Server) handleAvailableYears(w http.ResponseWriter, r *http.Request) {
	if s.sync.Running() {
		writeError(w, http.StatusConflict, "sync in progress")
		return
	}
	years, err := s.feed.AvailableYears(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"years": years})
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	result, err := s.purge.PurgeExpired(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStorageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.purge.StorageStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCleanupPreview(w http.ResponseWriter, r *http.Request) {
	var daysBuffer *int
	if raw := r.URL.Query().Get("daysBuffer"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "daysBuffer must be a non-negative integer")
			return
		}
		daysBuffer = &parsed
	}
	preview, err := s.cleanup.Preview(r.Context(), daysBuffer)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DaysBuffer *int `json:"daysBuffer"`
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid cleanup options: "+err.Error())
			return
		}
		if body.DaysBuffer != nil && *body.DaysBuffer < 0 {
			writeError(w, http.StatusBadRequest, "daysBuffer must be a non-negative integer")
			return
		}
	}
	result, err := s.cleanup.Run(r.Context(), body.DaysBuffer)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBackfillAlternates(w http.ResponseWriter, r *http.Request) {
	linked, err := s.importer.BackfillAlternates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"linked": linked})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.cache.Clear()
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (s *Server) handleStubReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.stubs.Report(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCoverageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stubs.Coverage(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
