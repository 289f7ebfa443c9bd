package collect

import "github.com/ayusman/mudra/internal/detector"

// maxHands bounds how many detections are examined per frame.
const maxHands = 2

// Encoding is the fixed-width representation of one detection result.
type Encoding struct {
	Features    []float64
	LeftExist   int
	RightExist  int
	PrimaryHand string // "" when the first detection has no label
}

// Encode maps up to two detections onto the left and right feature blocks
// by handedness label. The first "Left" fills the left block and the first
// "Right" fills the right block; unlabeled detections and landmark sets that
// are not exactly 21 points are skipped. Unfilled blocks stay zero, so the
// result is always FeatureWidth long.
func Encode(landmarks [][]detector.Point3D, handedness [][]detector.Category) Encoding {
	r := detector.Result{Landmarks: landmarks, Handedness: handedness}

	enc := Encoding{Features: make([]float64, FeatureWidth)}
	if len(landmarks) > 0 {
		enc.PrimaryHand = r.Label(0)
	}

	n := len(landmarks)
	if n > maxHands {
		n = maxHands
	}

	for i := 0; i < n; i++ {
		set := landmarks[i]
		if len(set) != detector.NumLandmarks {
			continue
		}

		switch r.Label(i) {
		case detector.HandLeft:
			if enc.LeftExist == 0 {
				fillBlock(enc.Features[:rightOffset], set)
				enc.LeftExist = 1
			}
		case detector.HandRight:
			if enc.RightExist == 0 {
				fillBlock(enc.Features[rightOffset:], set)
				enc.RightExist = 1
			}
		}
	}

	return enc
}

// EncodeResult is Encode over a detector.Result.
func EncodeResult(r detector.Result) Encoding {
	return Encode(r.Landmarks, r.Handedness)
}

func fillBlock(block []float64, set []detector.Point3D) {
	for i, p := range set {
		block[i*3] = p.X
		block[i*3+1] = p.Y
		block[i*3+2] = p.Z
	}
}
