package domain

import (
	"time"

	"github.com/google/uuid"
)

// TriggerType tags what started a run.
type TriggerType string

const (
	TriggerManual    TriggerType = "manual"
	TriggerScheduled TriggerType = "scheduled"
)

// RunSummary describes one aggregation run. It is constructed fresh each run
// and owned exclusively by the orchestrator. Success means at least one
// wallet was fully processed; a run with wallet-level errors can therefore
// still be successful — partial availability is preferred over
// all-or-nothing semantics.
type RunSummary struct {
	ID               uuid.UUID   `json:"id"`
	Trigger          TriggerType `json:"trigger"`
	StartedAt        time.Time   `json:"startedAt"`
	FinishedAt       time.Time   `json:"finishedAt"`
	RecordsWritten   int         `json:"recordsWritten"`
	WalletsProcessed int         `json:"walletsProcessed"`
	Errors           []string    `json:"errors"`
	Success          bool        `json:"success"`
}
