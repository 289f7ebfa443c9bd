package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoFrames is returned by a MockCamera with nothing left to play.
var ErrNoFrames = errors.New("mock camera has no frames left")

// MockCamera plays back a fixed list of frames in place of a device.
// Frames are cloned on read, so the caller owns every Mat it receives and
// the originals stay with whoever built the list.
type MockCamera struct {
	mu     sync.Mutex
	frames []*gocv.Mat
	next   int
	reads  int
	loop   bool
	open   bool
	fps    int
}

// NewMockCamera returns a closed camera over frames. With loop set, playback
// wraps to the first frame instead of running dry.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{frames: frames, loop: loop, fps: DefaultFPS}
}

// SolidFrame returns a width x height BGR frame filled with one gray level.
// The caller must close it.
func SolidFrame(width, height int, level float64) gocv.Mat {
	m := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	m.SetTo(gocv.NewScalar(level, level, level, 0))
	return m
}

// Open rewinds playback.
func (c *MockCamera) Open() error {
	c.mu.Lock()
	c.open, c.next = true, 0
	c.mu.Unlock()
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case !c.open:
		return nil, ErrCameraNotOpen
	case len(c.frames) == 0:
		return nil, ErrNoFrames
	case c.next == len(c.frames) && !c.loop:
		return nil, ErrNoFrames
	}

	frame := c.frames[c.next%len(c.frames)].Clone()
	c.next = c.next%len(c.frames) + 1
	c.reads++
	return &frame, nil
}

// Reads reports how many frames have been handed out since construction.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// SetFPS ignores non-positive rates.
func (c *MockCamera) SetFPS(fps int) {
	if fps > 0 {
		c.mu.Lock()
		c.fps = fps
		c.mu.Unlock()
	}
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}
