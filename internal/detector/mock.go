package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns a fixed result, or cycles through a script of results.
type MockDetector struct {
	mu     sync.Mutex
	result Result
	script []Result
	next   int
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetResult sets the result returned by every Detect call.
func (m *MockDetector) SetResult(r Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = r
	m.script = nil
}

// SetScript makes Detect return the given results in order, repeating the
// last one once the script is exhausted.
func (m *MockDetector) SetScript(results []Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = results
	m.next = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the configured result or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return Result{}, m.err
	}
	if len(m.script) > 0 {
		r := m.script[m.next]
		if m.next < len(m.script)-1 {
			m.next++
		}
		return r, nil
	}
	return m.result, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// OpenPalm returns the 21 landmarks of a right open palm.
func OpenPalm() []Point3D {
	pts := make([]Point3D, NumLandmarks)

	pts[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	pts[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	pts[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	pts[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	pts[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	pts[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	pts[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	pts[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	pts[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	pts[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	pts[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	pts[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	pts[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	pts[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	pts[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	pts[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	pts[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	pts[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	pts[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	pts[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	pts[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return pts
}

// Mirror reflects landmarks across the vertical image axis, turning a right
// hand preset into a plausible left hand.
func Mirror(pts []Point3D) []Point3D {
	out := make([]Point3D, len(pts))
	for i, p := range pts {
		out[i] = Point3D{X: 1 - p.X, Y: p.Y, Z: p.Z}
	}
	return out
}

// TwoHands returns a result with a left and a right open palm, in that order.
func TwoHands() Result {
	return NewResult([][]Point3D{Mirror(OpenPalm()), OpenPalm()}, []string{HandLeft, HandRight})
}
