package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/DeskForge/internal/domain/audit"
	"github.com/Strob0t/DeskForge/internal/port/database"
)

// AuditService appends immutable records of every execution attempt. Append
// failures are raised, never swallowed; an operation without its audit trail
// is treated as a failed operation.
type AuditService struct {
	store  database.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewAudit(store database.Store, logger *slog.Logger) *AuditService {
	return &AuditService{store: store, logger: logger, now: time.Now}
}

// Record appends one audit entry and returns it with its assigned ID.
// RecordID is extracted from the new state when present, else the old.
func (s *AuditService) Record(ctx context.Context, domainName, operation, table, userID string, oldData, newData map[string]any) (*audit.Record, error) {
	rec := &audit.Record{
		Domain:    domainName,
		Operation: operation,
		TableName: table,
		UserID:    userID,
		OldData:   oldData,
		NewData:   newData,
		Timestamp: s.now().UTC(),
	}
	rec.RecordID = extractRecordID(newData, oldData)

	if err := s.store.AppendAudit(ctx, rec); err != nil {
		return nil, fmt.Errorf("append audit record: %w", err)
	}
	s.logger.Info("audit recorded",
		"audit_id", rec.ID,
		"domain", rec.Domain,
		"operation", rec.Operation,
		"record_id", rec.RecordID,
	)
	return rec, nil
}

// List returns audit entries matching the filter, newest first.
func (s *AuditService) List(ctx context.Context, f audit.Filter) ([]audit.Record, error) {
	recs, err := s.store.ListAudit(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	return recs, nil
}

func extractRecordID(states ...map[string]any) string {
	for _, st := range states {
		if st == nil {
			continue
		}
		if id, ok := st["id"].(string); ok && id != "" {
			return id
		}
	}
	return ""
}
