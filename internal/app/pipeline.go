package app

import (
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/collect"
)

// runPipeline samples one frame per tick of the session frame rate while
// sampling is enabled. Frames the camera delivers between ticks are never
// read, so the recorded rate never exceeds the configured fps.
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.Session.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.Camera().ReadFrame()
			if err != nil {
				slog.Debug("error reading frame", slog.Any("error", err))
				continue
			}

			if _, err := a.ProcessFrame(frame); err != nil {
				slog.Warn("error detecting hands", slog.Any("error", err))
			}
			frame.Close()
		}
	}
}

// ProcessFrame measures the frame's lighting, runs hand detection, keeps the
// result for the overlay and hands it to the session. It reports whether
// the session recorded the frame.
func (a *App) ProcessFrame(frame *gocv.Mat) (bool, error) {
	status, _ := a.lighting.Measure(frame)

	d := a.Detector()
	if d == nil {
		return false, nil
	}

	result, err := d.Detect(frame)
	if err != nil {
		return false, err
	}

	a.mu.Lock()
	a.latest = result
	a.latestAt = time.Now()
	a.mu.Unlock()

	return a.session.AddResult(result, &collect.FrameMeta{LightingStatus: &status}), nil
}
