package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// Lighting statuses attached to recorded frames.
const (
	LightingGood = "Good"
	LightingPoor = "Poor"
)

// DefaultPoorBelow is the mean gray level (0-255) under which a frame is
// considered poorly lit.
const DefaultPoorBelow = 60.0

// LightingMeter classifies frames as well or poorly lit from their mean
// grayscale brightness.
type LightingMeter struct {
	poorBelow float64
	last      float64
	mu        sync.Mutex
}

// NewLightingMeter creates a meter with the given cutoff. Values less than or
// equal to 0 select DefaultPoorBelow.
func NewLightingMeter(poorBelow float64) *LightingMeter {
	if poorBelow <= 0 {
		poorBelow = DefaultPoorBelow
	}
	return &LightingMeter{poorBelow: poorBelow}
}

// Brightness returns the mean gray level of frame, or 0 for an empty frame.
func Brightness(frame *gocv.Mat) float64 {
	if frame == nil || frame.Empty() {
		return 0
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	return gray.Mean().Val1
}

// Measure classifies frame and returns the status with the measured
// brightness. Empty frames are reported as poor.
func (m *LightingMeter) Measure(frame *gocv.Mat) (string, float64) {
	b := Brightness(frame)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.last = b
	if b < m.poorBelow {
		return LightingPoor, b
	}
	return LightingGood, b
}

// Last returns the brightness of the most recently measured frame.
func (m *LightingMeter) Last() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// SetThreshold ignores values less than or equal to 0.
func (m *LightingMeter) SetThreshold(poorBelow float64) {
	if poorBelow <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.poorBelow = poorBelow
}

// Threshold returns the current cutoff.
func (m *LightingMeter) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.poorBelow
}
