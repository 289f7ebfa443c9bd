package collect

import (
	"fmt"
	"math"
	"strings"
)

// Reasons attached to a take when a quality check fails.
const (
	ReasonInsufficientFrames = "insufficient frames"
	ReasonHandMissing        = "hand missing too often"
	ReasonHandednessFlip     = "handedness flip detected"
	ReasonPoorLighting       = "lighting too poor"
)

// Thresholds holds the tunable constants of take scoring. The defaults were
// chosen empirically; keep them unless exports must stay comparable.
type Thresholds struct {
	MinFrameRatio   float64 // below this the take lacks frames
	MinHandPresence float64 // below this hands went missing too often
	MaxFlips        int     // flip counts above this are penalized
	MaxPoorLighting float64 // above this lighting is too poor
	FramePenalty    int
	PresencePenalty int
	FlipBasePenalty int
	FlipStepPenalty int
	FlipMaxPenalty  int
	LightingPenalty int
	BadBelow        int
	BorderlineBelow int
}

// DefaultThresholds returns the standard scoring constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinFrameRatio:   0.70,
		MinHandPresence: 0.90,
		MaxFlips:        1,
		MaxPoorLighting: 0.50,
		FramePenalty:    25,
		PresencePenalty: 25,
		FlipBasePenalty: 5,
		FlipStepPenalty: 5,
		FlipMaxPenalty:  20,
		LightingPenalty: 15,
		BadBelow:        60,
		BorderlineBelow: 80,
	}
}

// Label maps a score onto a quality label.
func (t Thresholds) Label(score int) Quality {
	switch {
	case score < t.BadBelow:
		return QualityBad
	case score < t.BorderlineBelow:
		return QualityBorderline
	default:
		return QualityGood
	}
}

// flipPenalty is min(max, base + (flips-1)*step).
func (t Thresholds) flipPenalty(flips int) int {
	p := t.FlipBasePenalty + (flips-1)*t.FlipStepPenalty
	if p > t.FlipMaxPenalty {
		return t.FlipMaxPenalty
	}
	return p
}

// ScoreTake computes the summary of one take from its frames in capture
// order. It does not modify the frames.
func ScoreTake(takeID int, gesture string, frames []*Frame, frameLimit int, t Thresholds) Take {
	take := Take{
		TakeID:     takeID,
		Gesture:    gesture,
		Frames:     len(frames),
		FrameLimit: frameLimit,
		Reasons:    []string{},
	}

	take.FrameRatio = 1
	if frameLimit > 0 {
		take.FrameRatio = float64(len(frames)) / float64(frameLimit)
	}

	var withHand, lit, poor int
	var prevHand string
	for _, f := range frames {
		if f.HasHand() {
			withHand++
		}
		if f.PrimaryHand != nil && *f.PrimaryHand != "" {
			if prevHand != "" && *f.PrimaryHand != prevHand {
				take.HandednessFlips++
			}
			prevHand = *f.PrimaryHand
		}
		if f.LightingStatus != nil {
			lit++
			if *f.LightingStatus == LightingPoor {
				poor++
			}
		}
	}

	if len(frames) > 0 {
		take.HandPresenceRatio = float64(withHand) / float64(len(frames))
		take.StartMs = ptr(frames[0].TimestampMs)
		take.EndMs = ptr(frames[len(frames)-1].TimestampMs)
	}
	if lit > 0 {
		take.PoorLightingRatio = ptr(float64(poor) / float64(lit))
	}

	penalty := 0
	if take.FrameRatio < t.MinFrameRatio {
		take.Reasons = append(take.Reasons, ReasonInsufficientFrames)
		penalty += t.FramePenalty
	}
	if take.HandPresenceRatio < t.MinHandPresence {
		take.Reasons = append(take.Reasons, ReasonHandMissing)
		penalty += t.PresencePenalty
	}
	if take.HandednessFlips > t.MaxFlips {
		take.Reasons = append(take.Reasons, ReasonHandednessFlip)
		penalty += t.flipPenalty(take.HandednessFlips)
	}
	if take.PoorLightingRatio != nil && *take.PoorLightingRatio > t.MaxPoorLighting {
		take.Reasons = append(take.Reasons, ReasonPoorLighting)
		penalty += t.LightingPenalty
	}

	score := math.Round(math.Max(0, math.Min(100, float64(100-penalty))))
	take.Score = int(score)
	take.Quality = t.Label(take.Score)

	return take
}

// ReasonText joins the take's reasons the way they are stored on frames.
func (t Take) ReasonText() string {
	return strings.Join(t.Reasons, "; ")
}

// LogLine renders the take for the session's event log.
func (t Take) LogLine() string {
	line := fmt.Sprintf("take#%d %s (%d)", t.TakeID, strings.ToLower(string(t.Quality)), t.Score)
	if len(t.Reasons) > 0 {
		line += " - " + t.ReasonText()
	}
	return line
}

// annotate copies the take's verdict onto each of its frames.
func annotate(frames []*Frame, take Take) {
	reasons := take.ReasonText()
	for _, f := range frames {
		f.TakeQuality = ptr(take.Quality)
		f.QualityScore = ptr(take.Score)
		f.BadReasons = ptr(reasons)
	}
}
