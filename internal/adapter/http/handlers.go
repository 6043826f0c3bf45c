package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/DeskForge/internal/adapter/otel"
	"github.com/Strob0t/DeskForge/internal/domain/audit"
	"github.com/Strob0t/DeskForge/internal/service"
)

const maxRequestBody = 64 * 1024

// RequestProcessor runs one operator request through the pipeline.
type RequestProcessor interface {
	Process(ctx context.Context, text, userID string) (string, error)
}

// AuditReader reads the audit ledger.
type AuditReader interface {
	List(ctx context.Context, f audit.Filter) ([]audit.Record, error)
}

// RollbackRunner restores a record from a checkpoint.
type RollbackRunner interface {
	Rollback(ctx context.Context, id string) error
}

// HealthFunc reports one dependency's health.
type HealthFunc func(ctx context.Context) error

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	pipeline RequestProcessor
	audit    AuditReader
	rollback RollbackRunner
	health   map[string]HealthFunc
	metrics  *otel.Metrics
	logger   *slog.Logger
}

func NewHandlers(pipeline RequestProcessor, auditSvc AuditReader, rollbackSvc RollbackRunner, health map[string]HealthFunc, metrics *otel.Metrics, logger *slog.Logger) *Handlers {
	return &Handlers{
		pipeline: pipeline,
		audit:    auditSvc,
		rollback: rollbackSvc,
		health:   health,
		metrics:  metrics,
		logger:   logger,
	}
}

type processRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id,omitempty"`
}

type processResponse struct {
	Response string `json:"response"`
}

// ProcessRequest handles POST /api/v1/requests.
func (h *Handlers) ProcessRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[processRequest](w, r, maxRequestBody)
	if !ok {
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	out, err := h.pipeline.Process(r.Context(), req.Text, req.UserID)
	if err != nil {
		h.logger.Error("request processing failed", "user_id", req.UserID, "error", err)
		writeDomainError(w, err, service.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, processResponse{Response: out})
}

// ListAudit handles GET /api/v1/audit.
func (h *Handlers) ListAudit(w http.ResponseWriter, r *http.Request) {
	f := audit.Filter{
		Domain:    r.URL.Query().Get("domain"),
		Operation: r.URL.Query().Get("operation"),
		RecordID:  r.URL.Query().Get("record_id"),
		Limit:     100,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		f.Limit = n
	}
	for _, bound := range []struct {
		name string
		dst  *time.Time
	}{
		{"since", &f.Since},
		{"until", &f.Until},
	} {
		if v := r.URL.Query().Get(bound.name); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, bound.name+" must be RFC 3339")
				return
			}
			*bound.dst = ts
		}
	}

	recs, err := h.audit.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, err, "audit records not found")
		return
	}
	if recs == nil {
		recs = []audit.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

// RollbackCheckpoint handles POST /api/v1/rollback/{id}.
func (h *Handlers) RollbackCheckpoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "checkpoint id is required")
		return
	}

	if err := h.rollback.Rollback(r.Context(), id); err != nil {
		writeDomainError(w, err, "checkpoint not found")
		return
	}
	if h.metrics != nil {
		h.metrics.Rollbacks.Add(r.Context(), 1)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rolled_back", "checkpoint_id": id})
}

// Health handles GET /health. Reports each dependency and degrades to 503
// when any check fails.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.health))
	for name, check := range h.health {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := map[string]any{"status": "ok", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	writeJSON(w, status, body)
}
