// Package models holds the wire and in-memory shapes shared across the
// recipe engine: the recipe document itself, step specs, and the records
// the optional run log keeps for the HTTP control surface.
package models

import "time"

// ── Recipe ───────────────────────────────────────────────────

// Recipe is a validated, ordered list of steps. Once returned from the
// loader it is treated as immutable by the executor.
type Recipe struct {
	Steps []StepSpec `json:"steps"`
}

// StepSpec is one entry in a recipe's step list: a registry type name plus
// whatever configuration that step type expects.
type StepSpec struct {
	Type   string                 `json:"type"`
	Config map[string]interface{} `json:"config,omitempty"`
}

// ── Run records (optional HTTP control surface, internal/runlog) ───────

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCanceled  RunStatus = "canceled"
)

// RunRecord is an in-memory summary of one recipe execution, kept only for
// the optional `serve` control surface. It is not a persistence mechanism:
// runlog holds these in memory and evicts them on a retention timer.
type RunRecord struct {
	ID          string                 `json:"id"`
	Status      RunStatus              `json:"status"`
	RecipePath  string                 `json:"recipe_path,omitempty"`
	Artifacts   map[string]interface{} `json:"artifacts,omitempty"`
	Error       string                 `json:"error,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}
