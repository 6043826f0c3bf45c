// Package rollback provides the checkpoint record captured before every
// mutating execution. Checkpoints persist indefinitely as a historical ledger.
package rollback

import "time"

// Status is the lifecycle state of a checkpoint.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Checkpoint captures the pre-mutation state of a single record. Created with
// status pending before the write; updated to completed with the new state on
// success, or failed with the error on failure. A rollback re-reads the
// checkpoint, reverts the record, and re-marks the same row.
type Checkpoint struct {
	ID            string         `json:"id"`
	Domain        string         `json:"domain"`
	Operation     string         `json:"operation"`
	EntityID      string         `json:"entity_id"`
	PreviousState map[string]any `json:"previous_state"`
	CurrentState  map[string]any `json:"current_state,omitempty"`
	Status        Status         `json:"status"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
