package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/openwave/clipper/clip"
	"github.com/openwave/clipper/db"
)

// Handlers holds shared dependencies for HTTP handlers.
type Handlers struct {
	db *sql.DB
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(dbc *sql.DB) *Handlers {
	return &Handlers{db: dbc}
}

// HandleHealthz responds to liveness probe requests by checking database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests. Ready means the database
// is reachable and the job loop has reported a heartbeat at least once.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	notReady := func(check string, err error) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "not_ready",
			"check":  check,
			"error":  err.Error(),
		})
	}
	if err := h.db.PingContext(r.Context()); err != nil {
		notReady("database", err)
		return
	}
	heartbeat, err := db.GetKV(r.Context(), h.db, "job_clip_process_last")
	if err != nil {
		notReady("job_queue", err)
		return
	}
	if heartbeat == "" {
		notReady("job_queue", errors.New("clip job loop has not run yet"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// HandleStatus reports queue and concurrency state for operators.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var pending, running, failed, done int
	_ = h.db.QueryRowContext(ctx, `SELECT
		COUNT(1) FILTER (WHERE status='pending'),
		COUNT(1) FILTER (WHERE status='running'),
		COUNT(1) FILTER (WHERE status='failed'),
		COUNT(1) FILTER (WHERE status='done')
		FROM clip_jobs`).Scan(&pending, &running, &failed, &done)
	lastRun, _ := db.GetKV(ctx, h.db, "job_clip_process_last")

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jobs": map[string]int{
			"pending": pending,
			"running": running,
			"failed":  failed,
			"done":    done,
		},
		"active_concats": clip.ActiveClips(),
		"max_concats":    clip.MaxConcurrentClips(),
		"last_queue_run": lastRun,
	})
}

// clipRequest is the POST /clips payload.
type clipRequest struct {
	Segments   []string       `json:"segments"`
	OutputPath string         `json:"output_path"`
	Trim       *clip.TrimSpec `json:"trim,omitempty"`
}

// HandleClips enqueues a new clip job (POST /clips).
func (h *Handlers) HandleClips(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req clipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	id, err := clip.EnqueueJob(r.Context(), h.db, req.Segments, req.OutputPath, req.Trim)
	if err != nil {
		if errors.Is(err, clip.ErrNoSegments) || errors.Is(err, clip.ErrInvalidTrim) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "enqueue failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"id": id, "status": clip.JobPending})
}

// HandleClipByID reports one job's state (GET /clips/{id}).
func (h *Handlers) HandleClipByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/clips/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	job, err := clip.GetJob(r.Context(), h.db, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(job)
}
