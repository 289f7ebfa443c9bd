package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/collect"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/store"
)

func newTestApp(t *testing.T, s *store.Store) (*App, *detector.MockDetector) {
	t.Helper()

	a := New(Config{
		Store:             s,
		Session:           collect.Config{FPS: 30, FrameLimit: 4},
		PoorLightingBelow: 60,
		SinkDir:           t.TempDir(),
	})
	det := detector.NewMockDetector()
	det.SetResult(detector.NewResult([][]detector.Point3D{detector.OpenPalm()}, []string{detector.HandRight}))
	a.SetDetector(det)
	return a, det
}

type recordingPublisher struct {
	mu    sync.Mutex
	takes []collect.Take
	err   error
}

func (p *recordingPublisher) PublishTake(take collect.Take) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.takes = append(p.takes, take)
	return p.err
}

func TestApp_ProcessFrame(t *testing.T) {
	a, det := newTestApp(t, nil)

	bright := capture.SolidFrame(64, 48, 200)
	defer bright.Close()

	t.Run("idle session drops frames", func(t *testing.T) {
		recorded, err := a.ProcessFrame(&bright)
		if err != nil {
			t.Fatalf("ProcessFrame() error = %v", err)
		}
		if recorded {
			t.Error("frame should not be recorded while idle")
		}
		if _, at := a.Latest(); at.IsZero() {
			t.Error("latest detection should be kept even while idle")
		}
	})

	t.Run("collecting records lighting", func(t *testing.T) {
		a.StartTake("namaste")

		dark := capture.SolidFrame(64, 48, 10)
		defer dark.Close()

		for _, f := range []*gocv.Mat{&bright, &dark} {
			if recorded, err := a.ProcessFrame(f); err != nil || !recorded {
				t.Fatalf("ProcessFrame() = %v, %v", recorded, err)
			}
		}

		frames := a.Session().Frames()
		if len(frames) != 2 {
			t.Fatalf("got %d frames, want 2", len(frames))
		}
		if *frames[0].LightingStatus != capture.LightingGood || *frames[1].LightingStatus != capture.LightingPoor {
			t.Errorf("lighting = %s, %s", *frames[0].LightingStatus, *frames[1].LightingStatus)
		}
		if frames[0].RightExist != 1 || frames[0].Gesture != "namaste" {
			t.Errorf("unexpected frame %+v", frames[0])
		}
	})

	t.Run("detector error", func(t *testing.T) {
		det.SetError(errors.New("boom"))
		defer det.SetError(nil)

		before := a.Session().FrameCount()
		if _, err := a.ProcessFrame(&bright); err == nil {
			t.Error("expected detector error")
		}
		if a.Session().FrameCount() != before {
			t.Error("failed detection should not record a frame")
		}
	})
}

func TestApp_TakeHooks(t *testing.T) {
	a, _ := newTestApp(t, nil)

	pub := &recordingPublisher{err: errors.New("broker down")}
	a.SetPublisher(pub)

	var got []collect.Take
	a.OnTake(func(take collect.Take) { got = append(got, take) })

	if !a.ToggleTake() {
		t.Fatal("first toggle should open a take")
	}
	if a.Session().Gesture() != "unlabeled" {
		t.Errorf("gesture = %q, want default", a.Session().Gesture())
	}
	if a.ToggleTake() {
		t.Fatal("second toggle should close the take")
	}

	if len(got) != 1 || got[0].TakeID != 1 {
		t.Fatalf("listener got %+v", got)
	}
	if len(pub.takes) != 1 {
		t.Errorf("publisher got %d takes, want 1", len(pub.takes))
	}
	// Empty take against a limit of 4.
	if got[0].Quality != collect.QualityBad {
		t.Errorf("quality = %s, want Bad", got[0].Quality)
	}
}

func TestApp_Export(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	a, _ := newTestApp(t, s)

	frame := capture.SolidFrame(64, 48, 200)
	defer frame.Close()

	a.StartTake("pataka")
	for i := 0; i < 4; i++ {
		if _, err := a.ProcessFrame(&frame); err != nil {
			t.Fatalf("ProcessFrame() error = %v", err)
		}
	}
	a.ToggleTake()

	res, err := a.Export(context.Background())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !res.Bundle.HasCSV() || res.Bundle.Metadata.TotalFrames != 4 {
		t.Errorf("unexpected bundle %+v", res.Bundle.Metadata)
	}
	if res.Record == nil || res.Record.ID != res.Bundle.ExportID {
		t.Fatalf("record = %+v", res.Record)
	}
	if len(res.Delivery) != 0 {
		t.Errorf("no sinks are installed, got %d deliveries", len(res.Delivery))
	}

	takes, err := s.Takes().ListByExport(res.Record.ID)
	if err != nil {
		t.Fatalf("ListByExport() error = %v", err)
	}
	if len(takes) != 1 || takes[0].Quality != collect.QualityGood || takes[0].Score != 100 {
		t.Errorf("stored takes = %+v", takes)
	}
}

func TestApp_Pipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pipeline test")
	}

	frame := capture.SolidFrame(64, 48, 200)
	defer frame.Close()

	a, det := newTestApp(t, nil)
	a.SetCamera(capture.NewMockCamera([]*gocv.Mat{&frame}, true))

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if det.Calls() != 0 {
		t.Errorf("disabled pipeline ran detection %d times", det.Calls())
	}

	a.SetEnabled(true)
	a.StartTake("mushti")
	time.Sleep(300 * time.Millisecond)
	a.Stop()

	if det.Calls() == 0 {
		t.Fatal("enabled pipeline never ran detection")
	}
	if a.Session().FrameCount() == 0 {
		t.Error("no frames recorded")
	}
	if a.Camera().IsOpen() {
		t.Error("camera should be closed after Stop")
	}

	calls := det.Calls()
	time.Sleep(100 * time.Millisecond)
	if det.Calls() != calls {
		t.Error("detection continued after Stop")
	}
}
