// Package detector turns camera frames into hand landmark sets with
// handedness candidates.
package detector

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

// Detector finds hands in a frame. A frame without hands yields an empty
// Result and a nil error.
type Detector interface {
	Detect(frame *gocv.Mat) (Result, error)
	Close() error
}

// Config tunes the MediaPipe hand tracker.
type Config struct {
	MaxHands        int
	MinConfidence   float64 // detection threshold, 0..1
	MinTrackingConf float64 // tracking threshold, 0..1

	// IdleShutdown stops the tracker process when no frame arrives for this
	// long. Zero keeps it running until Close.
	IdleShutdown time.Duration

	// Python and Script override the interpreter and service script lookup.
	Python string
	Script string
}

func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		IdleShutdown:    30 * time.Second,
	}
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	switch {
	case c.MaxHands < 1:
		return fmt.Errorf("max hands must be at least 1, got %d", c.MaxHands)
	case c.MinConfidence < 0 || c.MinConfidence > 1:
		return fmt.Errorf("min confidence %v outside [0, 1]", c.MinConfidence)
	case c.MinTrackingConf < 0 || c.MinTrackingConf > 1:
		return fmt.Errorf("min tracking confidence %v outside [0, 1]", c.MinTrackingConf)
	case c.IdleShutdown < 0:
		return fmt.Errorf("idle shutdown must not be negative")
	}
	return nil
}
