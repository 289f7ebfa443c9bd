package collect

import (
	"sync"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

func newTestSession(t *testing.T, frameLimit int) *Session {
	t.Helper()

	s := NewSession(Config{FPS: 30, FrameLimit: frameLimit, Preprocessing: []string{"none"}})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var tick int64
	s.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * 33 * time.Millisecond)
	})
	return s
}

func rightHand() detector.Result {
	return detector.NewResult([][]detector.Point3D{detector.OpenPalm()}, []string{"Right"})
}

func TestSession_FramesOutsideTakeDropped(t *testing.T) {
	s := newTestSession(t, 10)

	if s.AddResult(rightHand(), nil) {
		t.Error("expected frame to be dropped while idle")
	}
	if s.FrameCount() != 0 {
		t.Errorf("expected empty buffer, got %d frames", s.FrameCount())
	}
}

func TestSession_TakeLifecycle(t *testing.T) {
	s := newTestSession(t, 4)

	id := s.StartCollecting("wave")
	if id != 1 {
		t.Fatalf("first take id = %d, want 1", id)
	}
	if !s.IsCollecting() || s.Gesture() != "wave" {
		t.Fatalf("unexpected state %+v", s.State())
	}

	for i := 0; i < 4; i++ {
		if !s.AddResult(rightHand(), nil) {
			t.Fatalf("frame %d not recorded", i)
		}
	}

	take, ok := s.StopCollecting()
	if !ok {
		t.Fatal("expected a take to be closed")
	}
	if take.TakeID != 1 || take.Frames != 4 || take.Score != 100 || take.Quality != QualityGood {
		t.Errorf("unexpected take %+v", take)
	}
	if s.IsCollecting() {
		t.Error("session should be idle after stop")
	}

	frames := s.Frames()
	for i, f := range frames {
		if f.FrameID != i {
			t.Errorf("frame %d has id %d", i, f.FrameID)
		}
		if f.TakeID == nil || *f.TakeID != 1 {
			t.Errorf("frame %d not tagged with take 1", i)
		}
		if f.TakeQuality == nil || *f.TakeQuality != QualityGood {
			t.Errorf("frame %d missing quality annotation", i)
		}
		if f.QualityScore == nil || *f.QualityScore != 100 {
			t.Errorf("frame %d missing score annotation", i)
		}
		if f.BadReasons == nil || *f.BadReasons != "" {
			t.Errorf("frame %d bad reasons = %v, want empty string", i, f.BadReasons)
		}
		if f.PrimaryHand == nil || *f.PrimaryHand != "Right" {
			t.Errorf("frame %d primary hand = %v", i, f.PrimaryHand)
		}
		if i > 0 && f.TimestampMs <= frames[i-1].TimestampMs {
			t.Errorf("timestamps not increasing at %d", i)
		}
	}

	log := s.Log()
	want := []string{"take#1 started (wave)", "take#1 good (100)"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q", i, log[i], want[i])
		}
	}
}

func TestSession_StopWhileIdle(t *testing.T) {
	s := newTestSession(t, 10)

	if _, ok := s.StopCollecting(); ok {
		t.Error("expected no take when idle")
	}
	if len(s.Takes()) != 0 || len(s.Log()) != 0 {
		t.Error("idle stop should not change session state")
	}
}

func TestSession_RestartFinalizesOpenTake(t *testing.T) {
	s := newTestSession(t, 10)

	var closed []Take
	s.OnTake(func(tk Take) { closed = append(closed, tk) })

	s.StartCollecting("wave")
	s.AddResult(rightHand(), nil)
	id := s.StartCollecting("fist")

	if id != 2 {
		t.Errorf("second take id = %d, want 2", id)
	}
	if len(closed) != 1 || closed[0].TakeID != 1 || closed[0].Gesture != "wave" {
		t.Fatalf("expected take 1 to be finalized, got %+v", closed)
	}

	s.AddResult(rightHand(), nil)
	s.StopCollecting()

	takes := s.Takes()
	if len(takes) != 2 || takes[1].Gesture != "fist" {
		t.Errorf("unexpected takes %+v", takes)
	}
	frames := s.Frames()
	if frames[0].Gesture != "wave" || frames[1].Gesture != "fist" {
		t.Errorf("frames carry wrong gestures: %q, %q", frames[0].Gesture, frames[1].Gesture)
	}
}

func TestSession_TakeMembershipIsolated(t *testing.T) {
	s := newTestSession(t, 2)

	s.StartCollecting("a")
	s.AddResult(rightHand(), nil)
	s.AddResult(rightHand(), nil)
	s.StopCollecting()

	s.StartCollecting("b")
	s.AddResult(detector.Result{}, nil)
	take, _ := s.StopCollecting()

	// take 2 has one empty frame out of a limit of 2: both penalties apply.
	if take.Frames != 1 || take.Score != 50 || take.Quality != QualityBad {
		t.Errorf("unexpected take 2 %+v", take)
	}

	frames := s.Frames()
	if *frames[0].QualityScore != 100 || *frames[2].QualityScore != 50 {
		t.Errorf("annotations leaked between takes: %d, %d", *frames[0].QualityScore, *frames[2].QualityScore)
	}
	if *frames[2].BadReasons != "insufficient frames; hand missing too often" {
		t.Errorf("bad reasons = %q", *frames[2].BadReasons)
	}
}

func TestSession_MetaOverrides(t *testing.T) {
	s := newTestSession(t, 0)
	s.StartCollecting("wave")

	id, ts, take, light := 42, int64(123456), 9, LightingPoor
	s.AddResult(rightHand(), &FrameMeta{FrameID: &id, TimestampMs: &ts, TakeID: &take, LightingStatus: &light})
	s.AddResult(rightHand(), &FrameMeta{LightingStatus: &light})

	frames := s.Frames()
	if frames[0].FrameID != 42 || frames[0].TimestampMs != 123456 || *frames[0].TakeID != 9 {
		t.Errorf("overrides not applied: %+v", frames[0])
	}
	if *frames[0].LightingStatus != LightingPoor {
		t.Errorf("lighting = %v", frames[0].LightingStatus)
	}
	if frames[1].FrameID != 1 || *frames[1].TakeID != 1 {
		t.Errorf("defaults not applied to second frame: id=%d take=%d", frames[1].FrameID, *frames[1].TakeID)
	}

	tk, _ := s.StopCollecting()
	// Only the second frame belongs to take 1.
	if tk.Frames != 1 {
		t.Errorf("take frames = %d, want 1", tk.Frames)
	}
	if frames := s.Frames(); frames[0].TakeQuality != nil {
		t.Error("frame with foreign take id should stay unannotated")
	}
}

func TestSession_ClearData(t *testing.T) {
	s := newTestSession(t, 10)

	s.StartCollecting("wave")
	s.AddResult(rightHand(), nil)
	s.StopCollecting()
	s.StartCollecting("wave")
	s.AddResult(rightHand(), nil)

	s.ClearData()

	st := s.State()
	if st.Frames != 0 || st.Takes != 0 || st.TakeCounter != 0 || st.Collecting {
		t.Errorf("state not reset: %+v", st)
	}
	if len(s.Log()) != 0 {
		t.Error("log not cleared")
	}
	if id := s.StartCollecting("wave"); id != 1 {
		t.Errorf("take counter should restart at 1, got %d", id)
	}
}

func TestSession_FramesReturnsCopy(t *testing.T) {
	s := newTestSession(t, 10)
	s.StartCollecting("wave")
	s.AddResult(rightHand(), nil)

	frames := s.Frames()
	frames[0].Features[63] = -1

	if s.Frames()[0].Features[63] == -1 {
		t.Error("mutating returned frames changed the buffer")
	}
}

func TestSession_ZeroThresholdsUseDefaults(t *testing.T) {
	s := NewSession(Config{})
	if s.Config().Thresholds != DefaultThresholds() {
		t.Error("expected default thresholds")
	}
}

func TestSession_ConcurrentAdds(t *testing.T) {
	s := newTestSession(t, 0)
	s.StartCollecting("wave")

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				s.AddResult(rightHand(), nil)
			}
		}()
	}
	wg.Wait()

	take, _ := s.StopCollecting()
	if take.Frames != 200 {
		t.Errorf("take frames = %d, want 200", take.Frames)
	}
}
