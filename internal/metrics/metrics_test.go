package metrics

import (
	"sync"
	"testing"
	"time"
)

type recBackend struct {
	mu       sync.Mutex
	counters map[string]float64
	samples  map[string][]float64
}

func newRec() *recBackend {
	return &recBackend{counters: map[string]float64{}, samples: map[string][]float64{}}
}

func (r *recBackend) IncCounter(name string, delta float64, l Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name+"|"+l["stage"]+"|"+l["status"]+l["outcome"]] += delta
}

func (r *recBackend) ObserveHistogram(name string, v float64, l Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[name] = append(r.samples[name], v)
}

func (r *recBackend) Flush() error { return nil }

// Not parallel: mutates the process backend.
func TestRecordStageAndPage(t *testing.T) {
	rb := newRec()
	SetBackend(rb)
	t.Cleanup(func() { SetBackend(nil) })

	RecordStage("analyze", "finish", 1500*time.Millisecond)
	RecordPage("success")

	if rb.counters[StageTotal+"|analyze|finish"] != 1 {
		t.Fatalf("stage counter: %#v", rb.counters)
	}
	if rb.counters[PagesTotal+"||success"] != 1 {
		t.Fatalf("page counter: %#v", rb.counters)
	}
	if s := rb.samples[StageDuration]; len(s) != 1 || s[0] != 1.5 {
		t.Fatalf("duration samples: %#v", s)
	}
	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

// Not parallel: mutates the process backend.
func TestRecordWarningAndControls(t *testing.T) {
	rb := newRec()
	SetBackend(rb)
	t.Cleanup(func() { SetBackend(nil) })

	RecordWarning("finalize")
	RecordWarning("finalize")
	RecordControls(3, 1, 0)

	if rb.counters[WarningsTotal+"|finalize|"] != 2 {
		t.Fatalf("warning counter: %#v", rb.counters)
	}
	if rb.counters[ControlsTotal+"||"+ControlMapped] != 3 || rb.counters[ControlsTotal+"||"+ControlPassThrough] != 1 {
		t.Fatalf("control counters: %#v", rb.counters)
	}
	if _, ok := rb.counters[ControlsTotal+"||"+ControlSkipped]; ok {
		t.Fatalf("zero outcome recorded: %#v", rb.counters)
	}
}
