// Package app wires the camera, detector and recorder into the capture
// pipeline and handles exports.
package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/collect"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/sink"
	"github.com/ayusman/mudra/internal/store"
)

// Config holds configuration options for the application.
type Config struct {
	Store             *store.Store
	Session           collect.Config
	Camera            capture.Options
	Detector          detector.Config
	PoorLightingBelow float64
	DefaultGesture    string
	SinkDir           string
	SinkTimeout       time.Duration
}

// TakePublisher receives every finalized take.
type TakePublisher interface {
	PublishTake(take collect.Take) error
}

// App owns the recording session and the sampling pipeline feeding it.
type App struct {
	config     Config
	session    *collect.Session
	camera     capture.Camera
	lighting   *capture.LightingMeter
	detector   detector.Detector
	sinkMgr    *sink.Manager
	dispatcher *sink.Dispatcher
	publisher  TakePublisher

	enabled   bool
	stopCh    chan struct{}
	done      chan struct{}
	latest    detector.Result
	latestAt  time.Time
	listeners []func(collect.Take)
	mu        sync.RWMutex
}

// New creates an App. The camera is not opened until Start.
func New(config Config) *App {
	if config.DefaultGesture == "" {
		config.DefaultGesture = "unlabeled"
	}
	if config.Session.FPS <= 0 {
		config.Session.FPS = capture.DefaultFPS
	}
	if config.Camera.FPS <= 0 {
		config.Camera.FPS = config.Session.FPS
	}

	if config.Detector.MaxHands == 0 {
		config.Detector = detector.DefaultConfig()
	}

	mgr := sink.NewManager(config.SinkDir)

	a := &App{
		config:     config,
		session:    collect.NewSession(config.Session),
		camera:     capture.NewCamera(config.Camera),
		lighting:   capture.NewLightingMeter(config.PoorLightingBelow),
		sinkMgr:    mgr,
		dispatcher: sink.NewDispatcher(mgr, sink.NewExecutor(config.SinkTimeout)),
	}

	if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
		a.detector = mp
		slog.Info("using MediaPipe hand detection")
	} else {
		slog.Warn("MediaPipe not available, using mock detector", slog.Any("error", err))
		a.detector = detector.NewMockDetector()
	}

	a.session.OnTake(a.handleTake)
	return a
}

// Session returns the recording session.
func (a *App) Session() *collect.Session {
	return a.session
}

// SetCamera replaces the frame source. Call before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// Camera returns the frame source.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Lighting returns the lighting meter.
func (a *App) Lighting() *capture.LightingMeter {
	return a.lighting
}

// SetPublisher installs a take publisher, or removes it when p is nil.
func (a *App) SetPublisher(p TakePublisher) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.publisher = p
}

// OnTake registers fn to run for every finalized take.
func (a *App) OnTake(fn func(collect.Take)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

func (a *App) handleTake(take collect.Take) {
	a.mu.RLock()
	pub := a.publisher
	listeners := append([]func(collect.Take){}, a.listeners...)
	a.mu.RUnlock()

	if pub != nil {
		if err := pub.PublishTake(take); err != nil {
			slog.Warn("take publish failed", slog.Int("take_id", take.TakeID), slog.Any("error", err))
		}
	}
	for _, fn := range listeners {
		fn(take)
	}
}

// SetEnabled enables or disables frame sampling.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether frame sampling is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Latest returns the most recent detection and when it was made. The time
// is zero before the first detection.
func (a *App) Latest() (detector.Result, time.Time) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest, a.latestAt
}

// StartTake opens a take for gesture, or for the default gesture when empty.
func (a *App) StartTake(gesture string) int {
	if gesture == "" {
		gesture = a.config.DefaultGesture
	}
	return a.session.StartCollecting(gesture)
}

// ToggleTake stops the open take, or starts one for the current gesture.
// It reports whether a take is open afterwards.
func (a *App) ToggleTake() bool {
	if _, closed := a.session.StopCollecting(); closed {
		return false
	}
	a.StartTake(a.session.Gesture())
	return true
}

// DiscoverSinks rescans the sink directory.
func (a *App) DiscoverSinks() error {
	return a.sinkMgr.Discover()
}

// Sinks returns the sink manager.
func (a *App) Sinks() *sink.Manager {
	return a.sinkMgr
}

// Dispatcher returns the sink dispatcher.
func (a *App) Dispatcher() *sink.Dispatcher {
	return a.dispatcher
}

// ExportResult is the outcome of one export action.
type ExportResult struct {
	Bundle   *collect.Bundle
	Record   *store.Export
	Delivery []sink.Result
}

// Export snapshots the session, stores it when a store is configured and
// delivers it to the named sinks, or to all discovered sinks when none are
// named. Sink failures are reported in Delivery, not as an error.
func (a *App) Export(ctx context.Context, sinks ...string) (*ExportResult, error) {
	res := &ExportResult{Bundle: a.session.Export()}

	if a.config.Store != nil {
		rec, err := a.config.Store.Exports().Create(res.Bundle)
		if err != nil {
			return nil, err
		}
		res.Record = rec
	}

	res.Delivery = a.dispatcher.Deliver(ctx, res.Bundle, sinks...)

	slog.Info("session exported",
		slog.String("export_id", res.Bundle.ExportID),
		slog.Int("frames", res.Bundle.Metadata.TotalFrames),
		slog.Int("takes", res.Bundle.TakeMetadata.TakeCount),
		slog.Int("sinks", len(res.Delivery)),
	)
	return res, nil
}

// Start opens the camera and begins sampling at the session frame rate.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.config.Session.FPS)

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	slog.Info("capture pipeline started", slog.Int("fps", a.config.Session.FPS))
	return nil
}

// Stop halts the pipeline and releases the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-done
	}

	if err := a.Camera().Close(); err != nil {
		slog.Warn("error closing camera", slog.Any("error", err))
	}
	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			slog.Warn("error closing detector", slog.Any("error", err))
		}
	}

	slog.Info("capture pipeline stopped")
}
