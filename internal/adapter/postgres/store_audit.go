package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Strob0t/DeskForge/internal/domain/audit"
)

// AppendAudit writes one immutable audit record. There is no update or
// delete path for audit_log; the ledger is append-only.
func (s *Store) AppendAudit(ctx context.Context, rec *audit.Record) error {
	const q = `
		INSERT INTO audit_log (domain, operation, table_name, record_id, user_id, old_data, new_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	oldData, err := json.Marshal(rec.OldData)
	if err != nil {
		return fmt.Errorf("marshal old_data: %w", err)
	}
	newData, err := json.Marshal(rec.NewData)
	if err != nil {
		return fmt.Errorf("marshal new_data: %w", err)
	}

	err = s.pool.QueryRow(ctx, q,
		rec.Domain, rec.Operation, rec.TableName,
		nullIfEmpty(rec.RecordID), nullIfEmpty(rec.UserID),
		oldData, newData, rec.Timestamp,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAudit reads audit records matching the filter, newest first.
func (s *Store) ListAudit(ctx context.Context, f audit.Filter) ([]audit.Record, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if f.Domain != "" {
		add("domain = $%d", f.Domain)
	}
	if f.Operation != "" {
		add("operation = $%d", f.Operation)
	}
	if f.RecordID != "" {
		add("record_id = $%d", f.RecordID)
	}
	if !f.Since.IsZero() {
		add("created_at >= $%d", f.Since)
	}
	if !f.Until.IsZero() {
		add("created_at < $%d", f.Until)
	}

	q := `SELECT id, domain, operation, table_name, record_id, user_id, old_data, new_data, created_at FROM audit_log`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var result []audit.Record
	for rows.Next() {
		var rec audit.Record
		var recordID, userID *string
		var oldData, newData []byte
		if err := rows.Scan(
			&rec.ID, &rec.Domain, &rec.Operation, &rec.TableName,
			&recordID, &userID, &oldData, &newData, &rec.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if recordID != nil {
			rec.RecordID = *recordID
		}
		if userID != nil {
			rec.UserID = *userID
		}
		if len(oldData) > 0 {
			if err := json.Unmarshal(oldData, &rec.OldData); err != nil {
				return nil, fmt.Errorf("unmarshal old_data: %w", err)
			}
		}
		if len(newData) > 0 {
			if err := json.Unmarshal(newData, &rec.NewData); err != nil {
				return nil, fmt.Errorf("unmarshal new_data: %w", err)
			}
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
