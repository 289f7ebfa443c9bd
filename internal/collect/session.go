package collect

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// Config is the capture configuration injected by the settings layer.
// FPS and Preprocessing are recorded in exports but not interpreted here.
type Config struct {
	FPS           int
	FrameLimit    int
	Preprocessing []string
	Thresholds    Thresholds
}

// Session owns the frame buffer, take list and take log of one recording
// session. All methods are safe for concurrent use; operations are applied
// in call order.
type Session struct {
	mu sync.Mutex

	config Config
	now    func() time.Time
	onTake func(Take)

	gesture     string
	collecting  bool
	takeCounter int
	currentTake int

	frames []*Frame
	takes  []Take
	log    []string
}

// NewSession creates an idle session. A zero Thresholds value selects
// DefaultThresholds.
func NewSession(config Config) *Session {
	if config.Thresholds == (Thresholds{}) {
		config.Thresholds = DefaultThresholds()
	}
	config.Preprocessing = append([]string(nil), config.Preprocessing...)

	return &Session{
		config: config,
		now:    time.Now,
	}
}

// SetClock replaces the capture-time clock used when a frame carries no
// timestamp override.
func (s *Session) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// OnTake registers a callback invoked with every finalized take. It runs
// after the session lock is released, so it may call back into the session.
func (s *Session) OnTake(fn func(Take)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTake = fn
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.config
	c.Preprocessing = append([]string(nil), s.config.Preprocessing...)
	return c
}

// StartCollecting opens a new take labelled with gesture. Starting while a
// take is already open closes and scores that take first.
func (s *Session) StartCollecting(gesture string) int {
	var closed *Take
	var cb func(Take)

	s.mu.Lock()
	if s.collecting {
		t := s.finalizeLocked()
		closed = &t
	}

	s.gesture = gesture
	s.collecting = true
	s.takeCounter++
	s.currentTake = s.takeCounter
	s.log = append(s.log, fmt.Sprintf("take#%d started (%s)", s.currentTake, gesture))
	id := s.currentTake
	cb = s.onTake
	s.mu.Unlock()

	slog.Info("take started", slog.Int("take_id", id), slog.String("gesture", gesture))

	if closed != nil && cb != nil {
		cb(*closed)
	}
	return id
}

// StopCollecting closes and scores the open take. It returns false and does
// nothing when no take is open.
func (s *Session) StopCollecting() (Take, bool) {
	s.mu.Lock()
	if !s.collecting {
		s.mu.Unlock()
		return Take{}, false
	}
	take := s.finalizeLocked()
	cb := s.onTake
	s.mu.Unlock()

	if cb != nil {
		cb(take)
	}
	return take, true
}

// finalizeLocked closes the current take, scores its frames and annotates
// them in place. The caller holds s.mu.
func (s *Session) finalizeLocked() Take {
	s.collecting = false

	var members []*Frame
	for _, f := range s.frames {
		if f.TakeID != nil && *f.TakeID == s.currentTake {
			members = append(members, f)
		}
	}

	take := ScoreTake(s.currentTake, s.gesture, members, s.config.FrameLimit, s.config.Thresholds)
	annotate(members, take)

	s.takes = append(s.takes, take)
	s.log = append(s.log, take.LogLine())

	slog.Info("take finalized",
		slog.Int("take_id", take.TakeID),
		slog.Int("frames", take.Frames),
		slog.Int("score", take.Score),
		slog.String("quality", string(take.Quality)),
	)
	return take
}

// AddLandmark encodes one detection and appends it to the open take. Frames
// arriving while no take is open are dropped; the return value reports
// whether the frame was recorded.
func (s *Session) AddLandmark(landmarks [][]detector.Point3D, handedness [][]detector.Category, meta *FrameMeta) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.collecting {
		return false
	}

	enc := Encode(landmarks, handedness)

	f := &Frame{
		Gesture:    s.gesture,
		FrameID:    len(s.frames),
		TakeID:     ptr(s.currentTake),
		LeftExist:  enc.LeftExist,
		RightExist: enc.RightExist,
		Features:   enc.Features,
	}
	if enc.PrimaryHand != "" {
		f.PrimaryHand = ptr(enc.PrimaryHand)
	}

	if meta != nil && meta.FrameID != nil {
		f.FrameID = *meta.FrameID
	}
	if meta != nil && meta.TimestampMs != nil {
		f.TimestampMs = *meta.TimestampMs
	} else {
		f.TimestampMs = s.now().UnixMilli()
	}
	if meta != nil && meta.TakeID != nil {
		f.TakeID = ptr(*meta.TakeID)
	}
	if meta != nil && meta.LightingStatus != nil {
		f.LightingStatus = ptr(*meta.LightingStatus)
	}

	s.frames = append(s.frames, f)
	return true
}

// AddResult is AddLandmark over a detector.Result.
func (s *Session) AddResult(r detector.Result, meta *FrameMeta) bool {
	return s.AddLandmark(r.Landmarks, r.Handedness, meta)
}

// ClearData drops every buffered frame, take and log line and resets the
// take counter. An open take is discarded without scoring.
func (s *Session) ClearData() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames = nil
	s.takes = nil
	s.log = nil
	s.takeCounter = 0
	s.currentTake = 0
	s.collecting = false
}

// IsCollecting reports whether a take is open.
func (s *Session) IsCollecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collecting
}

// Gesture returns the label of the current or most recent take.
func (s *Session) Gesture() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gesture
}

// TakeCounter returns the id of the most recently opened take.
func (s *Session) TakeCounter() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takeCounter
}

// FrameCount returns the number of buffered frames.
func (s *Session) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// Frames returns a copy of the buffered frames in capture order.
func (s *Session) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyFrames(s.frames)
}

// Takes returns the finalized takes in the order they were closed.
func (s *Session) Takes() []Take {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Take(nil), s.takes...)
}

// Log returns the take lifecycle log.
func (s *Session) Log() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.log...)
}

// State is a point-in-time view of the session for status displays.
type State struct {
	Gesture     string `json:"gesture"`
	Collecting  bool   `json:"collecting"`
	TakeCounter int    `json:"take_counter"`
	Frames      int    `json:"frames"`
	Takes       int    `json:"takes"`
}

// State returns a snapshot of the session counters.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Gesture:     s.gesture,
		Collecting:  s.collecting,
		TakeCounter: s.takeCounter,
		Frames:      len(s.frames),
		Takes:       len(s.takes),
	}
}

func copyFrames(frames []*Frame) []Frame {
	out := make([]Frame, len(frames))
	for i, f := range frames {
		c := *f
		c.Features = append([]float64(nil), f.Features...)
		out[i] = c
	}
	return out
}
