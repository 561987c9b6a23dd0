// Package batch fans a set of candidate documents out to a fixed pool
// of agents. Each agent owns one partition and works through it
// sequentially; failures are folded into per-item results so a bad
// document never aborts the run.
package batch

import (
	"github.com/vtikhonov/cv-screener/internal/ai"
	"github.com/vtikhonov/cv-screener/internal/candidate"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	// StatusError is part of the item lifecycle but never produced by
	// the pipeline: failures end as completed items with an error result.
	StatusError = "error"
)

const (
	AgentIdle      = "idle"
	AgentWorking   = "working"
	AgentCompleted = "completed"
)

// Item is one document plus its mutable processing state within a run.
// Within one run the status only moves pending -> processing -> completed.
type Item struct {
	Doc    *candidate.Document `json:"document"`
	Status string              `json:"status"`
	Result *ai.Assessment      `json:"result,omitempty"`
}

// AgentState is the observable snapshot of one agent slot. Progress is
// always recomputed from Processed and TotalAssigned, never stored
// independently.
type AgentState struct {
	Index         int     `json:"index"`
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	TotalAssigned int     `json:"total_assigned"`
	Processed     int     `json:"processed"`
	Progress      float64 `json:"progress"`
	CurrentItem   string  `json:"current_item,omitempty"`
	Matched       int     `json:"matched"`
}
