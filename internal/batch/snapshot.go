package batch

import "github.com/vtikhonov/cv-screener/internal/ai"

// Snapshot is a point-in-time copy of the run state, safe to read while
// agents are still working.
type Snapshot struct {
	Agents []AgentState `json:"agents"`
	Items  []ItemView   `json:"items"`

	Total     int `json:"total"`
	Processed int `json:"processed"`
	Matched   int `json:"matched"`
	Failed    int `json:"failed"`
}

// ItemView is the observable slice of one work item.
type ItemView struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Status string         `json:"status"`
	Result *ai.Assessment `json:"result,omitempty"`
}

// Snapshot returns a deep copy of all agent states and item statuses.
// Observers may call it at any cadence during or after Execute.
func (r *Run) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := &Snapshot{
		Agents: make([]AgentState, len(r.agents)),
		Items:  make([]ItemView, len(r.items)),
		Total:  len(r.items),
	}

	for i, a := range r.agents {
		snap.Agents[i] = *a
		snap.Processed += a.Processed
		snap.Matched += a.Matched
	}

	for i, item := range r.items {
		view := ItemView{
			ID:     item.Doc.ID,
			Name:   item.Doc.Name,
			Status: item.Status,
		}

		if item.Result != nil {
			result := *item.Result
			view.Result = &result

			if result.Failed() {
				snap.Failed++
			}
		}

		snap.Items[i] = view
	}

	return snap
}

// Completed reports whether every agent has finished.
func (s *Snapshot) Completed() bool {
	for _, a := range s.Agents {
		if a.Status != AgentCompleted {
			return false
		}
	}
	return true
}

// Percent is the overall progress across all agents.
func (s *Snapshot) Percent() float64 {
	if s.Total == 0 {
		return 100
	}
	return float64(s.Processed) / float64(s.Total) * 100
}
