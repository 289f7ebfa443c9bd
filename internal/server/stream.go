package server

import (
	"fmt"
	"image"
	"image/color"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
)

// LandmarkSource provides the most recent detection for the overlay.
type LandmarkSource interface {
	Latest() (detector.Result, time.Time)
}

// Detections older than this are not drawn.
const overlayMaxAge = 500 * time.Millisecond

var (
	leftColor  = color.RGBA{R: 66, G: 135, B: 245, A: 0}
	rightColor = color.RGBA{R: 46, G: 204, B: 113, A: 0}
	otherColor = color.RGBA{R: 200, G: 200, B: 200, A: 0}
)

// StreamHandler serves MJPEG frames from the camera with landmarks drawn.
type StreamHandler struct {
	camera    capture.Camera
	landmarks LandmarkSource
}

// NewStreamHandler creates a new StreamHandler. landmarks may be nil.
func NewStreamHandler(camera capture.Camera, landmarks LandmarkSource) *StreamHandler {
	return &StreamHandler{camera: camera, landmarks: landmarks}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		frame, err := h.camera.ReadFrame()
		if err != nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if h.landmarks != nil {
			if res, at := h.landmarks.Latest(); time.Since(at) < overlayMaxAge {
				DrawLandmarks(frame, res)
			}
		}

		buf, err := gocv.IMEncode(".jpg", *frame)
		frame.Close()
		if err != nil {
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		w.Write(buf.GetBytes())
		fmt.Fprintf(w, "\r\n")
		buf.Close()

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		time.Sleep(66 * time.Millisecond) // ~15 FPS
	}
}

// DrawLandmarks marks every landmark of r on frame, colored by handedness.
func DrawLandmarks(frame *gocv.Mat, r detector.Result) {
	cols, rows := frame.Cols(), frame.Rows()
	if cols == 0 || rows == 0 {
		return
	}

	for i, hand := range r.Landmarks {
		c := otherColor
		switch r.Label(i) {
		case detector.HandLeft:
			c = leftColor
		case detector.HandRight:
			c = rightColor
		}

		for _, p := range hand {
			pt := image.Pt(int(p.X*float64(cols)), int(p.Y*float64(rows)))
			gocv.Circle(frame, pt, 4, c, -1)
		}
	}
}
