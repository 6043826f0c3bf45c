// Package audit provides the append-only audit record written after every
// execution attempt. Records are never mutated or deleted.
package audit

import "time"

// Record is one immutable audit entry. OldData and NewData are populated for
// update-type changes; RecordID is a best-effort extraction from the change
// payload and may be empty for failed operations.
type Record struct {
	ID        string         `json:"id"`
	Domain    string         `json:"domain"`
	Operation string         `json:"operation"`
	TableName string         `json:"table_name"`
	RecordID  string         `json:"record_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	OldData   map[string]any `json:"old_data,omitempty"`
	NewData   map[string]any `json:"new_data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Filter restricts audit read queries. Zero-value fields are ignored.
type Filter struct {
	Domain    string
	Operation string
	RecordID  string
	Since     time.Time
	Until     time.Time
	Limit     int
}
