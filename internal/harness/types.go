package harness

import "github.com/roach88/scribe/internal/model"

// TraceEvent records one executed flow step.
type TraceEvent struct {
	Step    int    `json:"step"`
	Op      string `json:"op"`
	Target  string `json:"target,omitempty"`
	Outcome string `json:"outcome"`
	// Error is the store error code for failed steps, "" otherwise.
	Error string `json:"error,omitempty"`
	// Result is the value a read step returned, if any.
	Result any `json:"result,omitempty"`
	// Generation is the store commit count after the step.
	Generation int64 `json:"generation"`
}

// State is the final content of both record tables.
type State struct {
	Presets []model.WritingPreset `json:"presets"`
	Texts   []model.GeneratedText `json:"texts"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success.
	// True if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains every flow step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final table content: presets in list order, texts newest first.
	State State `json:"state"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
