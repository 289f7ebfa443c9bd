package sink

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/ayusman/mudra/internal/collect"
)

// Result reports the outcome of delivering one bundle to one sink.
type Result struct {
	Sink     string `json:"sink"`
	Success  bool   `json:"success"`
	Location string `json:"location,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Dispatcher fans an export bundle out to discovered sinks.
type Dispatcher struct {
	manager  *Manager
	executor *Executor

	mu      sync.RWMutex
	configs map[string]json.RawMessage
}

// NewDispatcher creates a Dispatcher over manager's sinks.
func NewDispatcher(manager *Manager, executor *Executor) *Dispatcher {
	return &Dispatcher{
		manager:  manager,
		executor: executor,
		configs:  make(map[string]json.RawMessage),
	}
}

// Configure sets the config object passed to the named sink.
func (d *Dispatcher) Configure(name string, config json.RawMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configs[name] = config
}

// Deliver sends b to the named sinks, or to every discovered sink when no
// names are given. Sinks run one after another; a failing sink does not stop
// the rest.
func (d *Dispatcher) Deliver(ctx context.Context, b *collect.Bundle, names ...string) []Result {
	var targets []*Sink
	var results []Result

	if len(names) == 0 {
		targets = d.manager.List()
	}
	for _, name := range names {
		s, err := d.manager.Get(name)
		if err != nil {
			results = append(results, Result{Sink: name, Error: err.Error()})
			continue
		}
		targets = append(targets, s)
	}

	payload := NewPayload(b)
	for _, s := range targets {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Sink: s.Manifest.Name, Error: err.Error()})
			continue
		}

		d.mu.RLock()
		cfg := d.configs[s.Manifest.Name]
		d.mu.RUnlock()

		res := Result{Sink: s.Manifest.Name}
		resp, err := d.executor.Deliver(ctx, s, &Request{Action: ActionExport, Config: cfg, Bundle: payload})
		switch {
		case err != nil:
			res.Error = err.Error()
		case !resp.Success:
			res.Error = resp.Error
			if res.Error == "" {
				res.Error = "sink reported failure"
			}
		default:
			res.Success = true
			res.Location = resp.Location
		}

		if res.Success {
			slog.Info("export delivered", slog.String("sink", res.Sink), slog.String("export_id", b.ExportID), slog.String("location", res.Location))
		} else {
			slog.Warn("export delivery failed", slog.String("sink", res.Sink), slog.String("export_id", b.ExportID), slog.String("error", res.Error))
		}
		results = append(results, res)
	}

	return results
}

// Failed returns an error summarizing failed results, or nil.
func Failed(results []Result) error {
	var errs []error
	for _, r := range results {
		if !r.Success {
			errs = append(errs, errors.New(r.Sink+": "+r.Error))
		}
	}
	return errors.Join(errs...)
}
