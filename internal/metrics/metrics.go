// Package metrics is the telemetry seam of the pipeline. Core code depends
// only on Backend; concrete exporters live in sub-packages.
package metrics

import (
	"sync"
	"time"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives counters and histogram samples.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Metric names emitted by the pipeline.
const (
	PagesTotal    = "page_transform_pages_total"
	StageTotal    = "page_transform_stage_total"
	StageDuration = "page_transform_stage_duration_seconds"
	WarningsTotal = "page_transform_warnings_total"
	ControlsTotal = "page_transform_controls_total"
)

// Control outcomes counted under ControlsTotal.
const (
	ControlMapped      = "mapped"
	ControlPassThrough = "pass_through"
	ControlSkipped     = "skipped"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the process backend. nil restores the no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush flushes the process backend.
func Flush() error { return current().Flush() }

// RecordStage records one stage outcome.
func RecordStage(stage, status string, d time.Duration) {
	b := current()
	l := Labels{"stage": stage, "status": status}
	b.IncCounter(StageTotal, 1, l)
	b.ObserveHistogram(StageDuration, d.Seconds(), l)
}

// RecordPage records one finished page transformation.
func RecordPage(status string) {
	current().IncCounter(PagesTotal, 1, Labels{"status": status})
}

// RecordWarning records one non-fatal problem raised by stage.
func RecordWarning(stage string) {
	current().IncCounter(WarningsTotal, 1, Labels{"stage": stage})
}

// RecordControls records the controls produced for one page: mapped by a
// mapping rule, passed through unmapped, or dropped by a skip rule.
func RecordControls(mapped, passThrough, skipped int) {
	b := current()
	for _, c := range []struct {
		outcome string
		n       int
	}{
		{ControlMapped, mapped},
		{ControlPassThrough, passThrough},
		{ControlSkipped, skipped},
	} {
		if c.n > 0 {
			b.IncCounter(ControlsTotal, float64(c.n), Labels{"outcome": c.outcome})
		}
	}
}
