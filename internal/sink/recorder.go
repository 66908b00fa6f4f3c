package sink

import (
	"context"
	"sync"

	"pagetransform/internal/modern"
)

// Sink operation names used by Recorder.
const (
	OpOpen          = "open"
	OpCreatePage    = "create_page"
	OpWriteSections = "write_sections"
	OpSetProperty   = "set_property"
	OpSave          = "save"
	OpPublish       = "publish"
	OpRelease       = "release"
)

// Recorder wraps a Sink, counting calls per operation. Fail injects an
// error for an operation instead of calling the wrapped sink.
type Recorder struct {
	Sink Sink
	Fail map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func NewRecorder(s Sink) *Recorder {
	return &Recorder{Sink: s, calls: map[string]int{}}
}

// Calls returns the number of calls made for op.
func (r *Recorder) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

// Writes counts every mutating call.
func (r *Recorder) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[OpCreatePage] + r.calls[OpWriteSections] + r.calls[OpSetProperty] + r.calls[OpSave] + r.calls[OpPublish]
}

func (r *Recorder) record(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	r.calls[op]++
	return r.Fail[op]
}

func (r *Recorder) Open(ctx context.Context, path string) (Handle, error) {
	if err := r.record(OpOpen); err != nil {
		return Handle{}, err
	}
	return r.Sink.Open(ctx, path)
}

func (r *Recorder) CreatePage(ctx context.Context, path string) (Handle, error) {
	if err := r.record(OpCreatePage); err != nil {
		return Handle{}, err
	}
	return r.Sink.CreatePage(ctx, path)
}

func (r *Recorder) WriteSections(ctx context.Context, h Handle, page *modern.Page) error {
	if err := r.record(OpWriteSections); err != nil {
		return err
	}
	return r.Sink.WriteSections(ctx, h, page)
}

func (r *Recorder) SetProperty(ctx context.Context, h Handle, key, value string) error {
	if err := r.record(OpSetProperty); err != nil {
		return err
	}
	return r.Sink.SetProperty(ctx, h, key, value)
}

func (r *Recorder) Save(ctx context.Context, h Handle, path string) error {
	if err := r.record(OpSave); err != nil {
		return err
	}
	return r.Sink.Save(ctx, h, path)
}

func (r *Recorder) Publish(ctx context.Context, h Handle) error {
	if err := r.record(OpPublish); err != nil {
		return err
	}
	return r.Sink.Publish(ctx, h)
}

func (r *Recorder) Release(ctx context.Context, h Handle) error {
	if err := r.record(OpRelease); err != nil {
		return err
	}
	return r.Sink.Release(ctx, h)
}

var _ Sink = (*Recorder)(nil)
