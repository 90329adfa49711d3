package harness

// TraceEvent records one executed flow step.
type TraceEvent struct {
	Step    int      `json:"step"`
	Invoke  string   `json:"invoke"`
	Outcome string   `json:"outcome"`
	Missing []string `json:"missing,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass   bool         `json:"pass"`
	Trace  []TraceEvent `json:"trace"`
	Events []string     `json:"events"`
	Errors []string     `json:"errors,omitempty"`
}

func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Events: []string{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) AddStep(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
