// Package diag carries the structured per-stage event stream of a page
// transformation and its logrus rendering.
package diag

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type Status string

const (
	StatusStart   Status = "start"
	StatusFinish  Status = "finish"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Event is one observation emitted by the pipeline.
type Event struct {
	Time     time.Time
	Page     string
	Stage    string
	Status   Status
	Duration time.Duration
	Code     Code
	Message  string
	Fields   map[string]string
}

// Observer receives events. Implementations must be safe for concurrent use
// when pages are transformed concurrently.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// LogObserver renders events as logrus entries.
type LogObserver struct {
	Logger *log.Logger
}

// NewLogObserver returns an observer writing to logger (or the standard
// logrus logger when nil).
func NewLogObserver(logger *log.Logger) *LogObserver {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &LogObserver{Logger: logger}
}

func (o *LogObserver) Observe(e Event) {
	fields := log.Fields{
		"page":   e.Page,
		"stage":  e.Stage,
		"status": string(e.Status),
	}
	if e.Duration > 0 {
		fields["dur_ms"] = e.Duration.Milliseconds()
	}
	if e.Code != "" {
		fields["code"] = string(e.Code)
	}
	for k, v := range e.Fields {
		fields[k] = v
	}
	entry := o.Logger.WithFields(fields)
	if !e.Time.IsZero() {
		entry = entry.WithTime(e.Time)
	}

	switch e.Status {
	case StatusError:
		entry.Error(e.Message)
	case StatusWarning:
		entry.Warn(e.Message)
	case StatusStart:
		entry.Debug(e.Message)
	default:
		entry.Info(e.Message)
	}
}

// Recorder keeps every event in memory. Used by tests and the analyze command.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Multi fans an event out to several observers, skipping nils.
func Multi(obs ...Observer) Observer {
	var out []Observer
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return ObserverFunc(func(e Event) {
		for _, o := range out {
			o.Observe(e)
		}
	})
}
