package tinylisp

import "time"

// Trace records one top-level evaluation: the source, its result or error,
// and when it ran.
type Trace struct {
	Entry     string // source text that was evaluated
	Result    *Node  // nil on error
	Error     string // non-empty on error
	Timestamp string // RFC 3339, UTC
	Elapsed   time.Duration
}

// NewTrace starts a trace for entry stamped with now.
func NewTrace(entry string, now time.Time) *Trace {
	return &Trace{Entry: entry, Timestamp: now.UTC().Format(time.RFC3339)}
}

// Finish stores the outcome of the evaluation.
func (t *Trace) Finish(result *Node, err error, elapsed time.Duration) {
	t.Elapsed = elapsed
	if err != nil {
		t.Error = err.Error()
		return
	}
	t.Result = result
}

// ToGo converts a Trace to a JSON-friendly map for the traces op.
func (t *Trace) ToGo() map[string]any {
	m := map[string]any{
		"entry":      t.Entry,
		"timestamp":  t.Timestamp,
		"elapsed_us": t.Elapsed.Microseconds(),
	}
	if t.Result != nil {
		m["result"] = t.Result.String()
	} else {
		m["result"] = nil
	}
	if t.Error != "" {
		m["error"] = t.Error
	} else {
		m["error"] = nil
	}
	return m
}

// traceRing keeps the most recent traces up to a fixed cap.
type traceRing struct {
	traces []Trace
	max    int
}

func (r *traceRing) add(t *Trace) {
	r.traces = append(r.traces, *t)
	if len(r.traces) > r.max {
		excess := len(r.traces) - r.max
		r.traces = r.traces[excess:]
	}
}

// last returns up to n of the newest traces, oldest first.
func (r *traceRing) last(n int) []Trace {
	if n < 0 || n > len(r.traces) {
		n = len(r.traces)
	}
	return r.traces[len(r.traces)-n:]
}

func (r *traceRing) clear() {
	r.traces = nil
}
