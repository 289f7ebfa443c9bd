// Package collect records encoded hand-landmark frames into takes, scores
// each take when it closes, and serializes the session for export.
package collect

import "github.com/ayusman/mudra/internal/detector"

// Feature layout: 21 landmarks × (x, y, z) per hand, left block first.
const (
	ValuesPerHand = detector.NumLandmarks * 3
	FeatureWidth  = ValuesPerHand * 2
	rightOffset   = ValuesPerHand
)

// Lighting statuses understood by the scorer. Any other non-empty value
// counts toward the lighting pool but never as poor.
const (
	LightingGood = "Good"
	LightingPoor = "Poor"
)

// Quality is the label derived from a take's score.
type Quality string

const (
	QualityGood       Quality = "Good"
	QualityBorderline Quality = "Borderline"
	QualityBad        Quality = "Bad"
)

// Frame is one recorded detection. Take quality fields stay nil until the
// take the frame belongs to is finalized.
type Frame struct {
	Gesture        string    `json:"gesture"`
	FrameID        int       `json:"frame_id"`
	TimestampMs    int64     `json:"timestamp_ms"`
	TakeID         *int      `json:"take_id"`
	PrimaryHand    *string   `json:"primary_hand"`
	LightingStatus *string   `json:"lighting_status"`
	LeftExist      int       `json:"L_exist"`
	RightExist     int       `json:"R_exist"`
	Features       []float64 `json:"features"`
	TakeQuality    *Quality  `json:"take_quality"`
	QualityScore   *int      `json:"quality_score"`
	BadReasons     *string   `json:"bad_reasons"`
}

// HasHand reports whether either hand slot was populated.
func (f *Frame) HasHand() bool {
	return f.LeftExist == 1 || f.RightExist == 1
}

// FrameMeta carries optional per-frame overrides, used for replay and
// deterministic tests, plus externally measured context.
type FrameMeta struct {
	FrameID        *int    `json:"frame_id,omitempty"`
	TimestampMs    *int64  `json:"timestamp_ms,omitempty"`
	TakeID         *int    `json:"take_id,omitempty"`
	LightingStatus *string `json:"lighting_status,omitempty"`
}

// Take summarizes one finalized recording interval.
type Take struct {
	TakeID            int      `json:"take_id"`
	Gesture           string   `json:"gesture"`
	Frames            int      `json:"frames"`
	FrameLimit        int      `json:"frame_limit"`
	FrameRatio        float64  `json:"frame_ratio"`
	HandPresenceRatio float64  `json:"hand_presence_ratio"`
	HandednessFlips   int      `json:"handedness_flips"`
	PoorLightingRatio *float64 `json:"poor_lighting_ratio"`
	Score             int      `json:"score"`
	Quality           Quality  `json:"quality"`
	Reasons           []string `json:"reasons"`
	StartMs           *int64   `json:"start_ms"`
	EndMs             *int64   `json:"end_ms"`
}

func ptr[T any](v T) *T {
	return &v
}
