// Package detector provides hand detection interfaces and the landmark types
// produced by a MediaPipe-style hand landmarker.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Handedness labels reported by the landmarker.
const (
	HandLeft  = "Left"
	HandRight = "Right"
)

// Point3D is a landmark in normalized camera space.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Category is one ranked handedness classification candidate.
type Category struct {
	CategoryName string  `json:"categoryName"`
	DisplayName  string  `json:"displayName,omitempty"`
	Score        float64 `json:"score"`
	Index        int     `json:"index"`
}

// Result is the output of one detection pass over a video frame.
// Landmarks and Handedness are parallel: Handedness[i] holds the ranked
// candidates for Landmarks[i].
type Result struct {
	Landmarks  [][]Point3D  `json:"landmarks"`
	Handedness [][]Category `json:"handednesses"`
}

// NumHands returns the number of detected landmark sets.
func (r Result) NumHands() int {
	return len(r.Landmarks)
}

// Label returns the top handedness candidate for detection i, or "" when
// the classifier produced nothing for it.
func (r Result) Label(i int) string {
	if i < 0 || i >= len(r.Handedness) || len(r.Handedness[i]) == 0 {
		return ""
	}
	return r.Handedness[i][0].CategoryName
}

// Labels returns the top handedness label for every detection.
func (r Result) Labels() []string {
	labels := make([]string, len(r.Landmarks))
	for i := range r.Landmarks {
		labels[i] = r.Label(i)
	}
	return labels
}

// NewResult assembles a Result from per-hand landmark sets and labels.
// An empty label yields an empty candidate list for that hand.
func NewResult(hands [][]Point3D, labels []string) Result {
	r := Result{
		Landmarks:  make([][]Point3D, 0, len(hands)),
		Handedness: make([][]Category, 0, len(hands)),
	}
	for i, h := range hands {
		r.Landmarks = append(r.Landmarks, h)
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		if label == "" {
			r.Handedness = append(r.Handedness, nil)
			continue
		}
		r.Handedness = append(r.Handedness, []Category{{CategoryName: label, DisplayName: label, Score: 1}})
	}
	return r
}
