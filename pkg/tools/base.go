// Package tools implements the analyzer adapters the workflow engine
// calls against each incident: classification, prioritization, playbook
// selection, response generation, safety guardrails, and compliance
// checking. Every adapter enforces a timeout, returns a structured
// incident.TriageError rather than a bare error, and emits a
// performance sample - the uniform contract spec.md §4.2 requires.
package tools

import (
	"context"
	"time"
)

// PerformanceSample is one adapter invocation's outcome, forwarded to
// the metrics package.
type PerformanceSample struct {
	Tool       string
	Duration   time.Duration
	Success    bool
	Confidence float64
}

// Recorder receives a PerformanceSample after every adapter invocation.
type Recorder interface {
	RecordToolInvocation(sample PerformanceSample)
}

// base is embedded by every adapter to share timeout enforcement and
// performance-sample emission.
type base struct {
	name     string
	timeout  time.Duration
	recorder Recorder
}

func newBase(name string, timeout time.Duration, recorder Recorder) base {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return base{name: name, timeout: timeout, recorder: recorder}
}

// invoke runs fn under the adapter's timeout and records a performance
// sample with the confidence fn reports (0 on error).
func (b base) invoke(ctx context.Context, fn func(ctx context.Context) (confidence float64, err error)) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	confidence, err := fn(ctx)
	if b.recorder != nil {
		b.recorder.RecordToolInvocation(PerformanceSample{
			Tool:       b.name,
			Duration:   time.Since(start),
			Success:    err == nil,
			Confidence: confidence,
		})
	}
	return confidence, err
}
