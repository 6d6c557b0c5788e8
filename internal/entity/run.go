package entity

import (
	"time"

	"github.com/google/uuid"
)

// RunSummary represents a processing run for data transfer between layers.
type RunSummary struct {
	ID         uuid.UUID  `json:"id"`
	Source     string     `json:"source"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Entries    int        `json:"entries"`
	Found      int        `json:"found"`
	Missing    int        `json:"missing"`
	OutputName *string    `json:"output_name,omitempty"`
	Error      *string    `json:"error,omitempty"`
}
