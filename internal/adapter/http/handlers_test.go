package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/audit"
)

type stubPipeline struct {
	out string
	err error
}

func (s *stubPipeline) Process(_ context.Context, text, userID string) (string, error) {
	return s.out, s.err
}

type stubAudit struct {
	recs []audit.Record
	got  audit.Filter
	err  error
}

func (s *stubAudit) List(_ context.Context, f audit.Filter) ([]audit.Record, error) {
	s.got = f
	return s.recs, s.err
}

type stubRollback struct {
	got string
	err error
}

func (s *stubRollback) Rollback(_ context.Context, id string) error {
	s.got = id
	return s.err
}

func newTestRouter(p *stubPipeline, a *stubAudit, rb *stubRollback, health map[string]HealthFunc) http.Handler {
	r := chi.NewRouter()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	MountRoutes(r, NewHandlers(p, a, rb, health, nil, log))
	return r
}

func TestProcessRequestSuccess(t *testing.T) {
	p := &stubPipeline{out: "Created ticket TK-1: Printer jam (priority high)"}
	router := newTestRouter(p, &stubAudit{}, &stubRollback{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests",
		strings.NewReader(`{"text": "printer is jammed", "user_id": "u-1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(body["response"], "TK-1") {
		t.Errorf("response = %q", body["response"])
	}
}

func TestProcessRequestEmptyText(t *testing.T) {
	router := newTestRouter(&stubPipeline{}, &stubAudit{}, &stubRollback{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(`{"user_id": "u-1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProcessRequestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: confidence 0.40 below threshold 0.70", domain.ErrLowConfidence), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: ticket.reassign requires assignee", domain.ErrMissingParameters), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: open to closed", domain.ErrInvalidTransition), http.StatusConflict},
		{fmt.Errorf("%w: ticket x", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: unknown action", domain.ErrValidation), http.StatusBadRequest},
		{errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		router := newTestRouter(&stubPipeline{err: tc.err}, &stubAudit{}, &stubRollback{}, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(`{"text": "x"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("err %v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestListAuditParsesFilter(t *testing.T) {
	a := &stubAudit{recs: []audit.Record{{ID: "a-1", Domain: "ticket"}}}
	router := newTestRouter(&stubPipeline{}, a, &stubRollback{}, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/audit?domain=ticket&operation=update_status&limit=10&since=2026-03-01T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if a.got.Domain != "ticket" || a.got.Operation != "update_status" || a.got.Limit != 10 {
		t.Errorf("filter = %+v", a.got)
	}
	if a.got.Since.IsZero() {
		t.Error("since not parsed")
	}
}

func TestListAuditRejectsBadTimestamp(t *testing.T) {
	router := newTestRouter(&stubPipeline{}, &stubAudit{}, &stubRollback{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit?since=yesterday", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRollbackCheckpoint(t *testing.T) {
	rb := &stubRollback{}
	router := newTestRouter(&stubPipeline{}, &stubAudit{}, rb, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rollback/cp-7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if rb.got != "cp-7" {
		t.Errorf("rollback id = %q", rb.got)
	}
}

func TestRollbackCheckpointNotFound(t *testing.T) {
	rb := &stubRollback{err: fmt.Errorf("%w: checkpoint cp-9", domain.ErrNotFound)}
	router := newTestRouter(&stubPipeline{}, &stubAudit{}, rb, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rollback/cp-9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHealthDegraded(t *testing.T) {
	health := map[string]HealthFunc{
		"postgres": func(context.Context) error { return nil },
		"nats":     func(context.Context) error { return errors.New("disconnected") },
	}
	router := newTestRouter(&stubPipeline{}, &stubAudit{}, &stubRollback{}, health)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "degraded") {
		t.Errorf("body = %s", rec.Body)
	}
}
