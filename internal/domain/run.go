package domain

import "time"

// RunStatus is the outcome of a conversion run.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusError   RunStatus = "error"
)

// RunTrigger records what started a run.
type RunTrigger string

const (
	TriggerManual   RunTrigger = "manual"
	TriggerWatch    RunTrigger = "watch"
	TriggerSchedule RunTrigger = "schedule"
	TriggerMCP      RunTrigger = "mcp"
)

// ConversionRun is one recorded conversion of an input into three tables.
type ConversionRun struct {
	ID          string     `json:"id"`
	Input       string     `json:"input"`
	SourceType  string     `json:"sourceType"`
	Output      string     `json:"output"` // directory or export target
	Dialect     string     `json:"dialect"`
	Trigger     RunTrigger `json:"trigger"`
	Status      RunStatus  `json:"status"`
	NodesRead   int        `json:"nodesRead"`
	Individuals int        `json:"individuals"`
	Families    int        `json:"families"`
	Other       int        `json:"other"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  time.Time  `json:"finishedAt"`
}

// Duration is the wall time of the run.
func (r *ConversionRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunStore persists conversion runs.
type RunStore interface {
	CreateRun(r *ConversionRun) error
	ListRuns(limit int) ([]ConversionRun, error)
}
