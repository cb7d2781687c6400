package harness

// TraceEvent records one executed query.
type TraceEvent struct {
	Step     string   `json:"step"`
	Query    string   `json:"query"`
	Warnings []string `json:"warnings,omitempty"`
	Keys     []string `json:"keys,omitempty"` // nil for scalar results
	Value    string   `json:"value,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation and assertion holds.
	Pass bool `json:"pass"`

	// Trace contains one event per query, in scenario order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Seeded is the number of fixture records written before the queries.
	Seeded int `json:"seeded"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a query event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
