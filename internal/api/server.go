// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	_ "net/http/pprof"

	stderrors "application-intake/internal/common/errors"
	"application-intake/internal/common/logger"
	"application-intake/internal/intake/audit"
	"application-intake/internal/intake/batch"
	"application-intake/internal/intake/executor"
	"application-intake/internal/intake/reviewqueue"
	"application-intake/internal/intake/state"
	"application-intake/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EventSource is the poller port consumed by the on-demand process trigger.
type EventSource interface {
	FetchBatch(ctx context.Context) ([]models.ApplicationEvent, error)
	FetchFollowup(ctx context.Context, kind string) ([]models.ApplicationEvent, error)
}

// Server hosts the orchestrator's request/response surface: status queries,
// the review queue, an on-demand processing trigger, health and metrics.
type Server struct {
	coordinator *batch.Coordinator
	store       state.Store
	queue       reviewqueue.Queue
	source      EventSource
	audit       *audit.Indexer // nil when audit indexing is disabled
	logger      logger.Logger
}

func NewServer(coordinator *batch.Coordinator, store state.Store, queue reviewqueue.Queue, source EventSource, auditIndexer *audit.Indexer, log logger.Logger) *Server {
	return &Server{
		coordinator: coordinator,
		store:       store,
		queue:       queue,
		source:      source,
		audit:       auditIndexer,
		logger:      log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// Routes builds the HTTP mux, including prometheus and pprof endpoints.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /status/{applicationId}", s.handleStatus)
	mux.HandleFunc("GET /review-queue", s.handleReviewQueue)
	mux.HandleFunc("POST /process", s.handleProcess)
	mux.HandleFunc("POST /process/one", s.handleProcessOne)

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus implements get_status: the workflow record for one
// application id.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	applicationID := r.PathValue("applicationId")

	rec, err := s.store.Get(r.Context(), applicationID)
	if err != nil {
		if stderrors.CodeOf(err) == stderrors.ErrCodeRecordNotFound {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	if studentID := r.URL.Query().Get("student_id"); studentID != "" {
		entry, err := s.queue.Find(r.Context(), studentID)
		if err != nil {
			if stderrors.CodeOf(err) == stderrors.ErrCodeRecordNotFound {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
		return
	}

	entries, err := s.queue.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []models.ReviewEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

// handleProcess pulls the current batch (plus information-required
// follow-ups) from the poller and runs it.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	events, err := s.source.FetchBatch(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	followups, err := s.source.FetchFollowup(r.Context(), "information-required")
	if err != nil {
		s.logger.Warn("follow-up fetch failed", map[string]interface{}{"error": err.Error()})
	} else {
		events = append(events, followups...)
	}

	report := s.coordinator.ProcessBatch(r.Context(), events, executor.Options{})
	if s.audit != nil {
		s.audit.IndexBatch(r.Context(), report)
	}

	writeJSON(w, http.StatusOK, report)
}

// handleProcessOne implements process_one for a caller-supplied event.
// ?reprocess=true restarts from RECEIVED.
func (s *Server) handleProcessOne(w http.ResponseWriter, r *http.Request) {
	var ev models.ApplicationEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	opts := executor.Options{Reprocess: r.URL.Query().Get("reprocess") == "true"}
	report := s.coordinator.ProcessOne(r.Context(), &ev, opts)
	if s.audit != nil {
		s.audit.IndexItem(r.Context(), "", report)
	}

	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	payload := map[string]interface{}{"error": err.Error()}
	if code := stderrors.CodeOf(err); code != "" {
		payload["code"] = code
	}
	writeJSON(w, status, payload)
}
