package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/collect"
	"github.com/ayusman/mudra/internal/detector"
)

// SessionHandler exposes the recording session: take control, frame
// ingestion and the live artifacts.
type SessionHandler struct {
	session        *collect.Session
	defaultGesture string
}

// NewSessionHandler creates a SessionHandler. Takes started without a
// gesture use defaultGesture.
func NewSessionHandler(s *collect.Session, defaultGesture string) *SessionHandler {
	if defaultGesture == "" {
		defaultGesture = "unlabeled"
	}
	return &SessionHandler{session: s, defaultGesture: defaultGesture}
}

// ServeHTTP routes /api/session and its sub-resources.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/session")
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, h.session.State())
		case http.MethodDelete:
			h.session.ClearData()
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "start":
		if !allow(w, r, http.MethodPost) {
			return
		}
		h.start(w, r)
	case "stop":
		if !allow(w, r, http.MethodPost) {
			return
		}
		h.stop(w)
	case "frames":
		if !allow(w, r, http.MethodPost) {
			return
		}
		h.frames(w, r)
	case "takes":
		if !allow(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, http.StatusOK, listTakesResponse{Takes: nonNil(h.session.Takes())})
	case "log":
		if !allow(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, http.StatusOK, logResponse{Log: nonNil(h.session.Log())})
	case "csv":
		if !allow(w, r, http.MethodGet) {
			return
		}
		writeCSV(w, "session.csv", []byte(h.session.ConvertToCSV()))
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Request and response types

type startRequest struct {
	Gesture string `json:"gesture"`
}

type startResponse struct {
	TakeID  int    `json:"take_id"`
	Gesture string `json:"gesture"`
}

type stopResponse struct {
	Stopped bool          `json:"stopped"`
	Take    *collect.Take `json:"take,omitempty"`
}

// FrameRequest is one detection submitted for recording. Meta may override
// the frame id, timestamp, take id and lighting status.
type FrameRequest struct {
	detector.Result
	Meta *collect.FrameMeta `json:"meta,omitempty"`
}

type framesRequest struct {
	Frames []FrameRequest `json:"frames"`
}

type framesResponse struct {
	Received int `json:"received"`
	Recorded int `json:"recorded"`
}

type listTakesResponse struct {
	Takes []collect.Take `json:"takes"`
}

type logResponse struct {
	Log []string `json:"log"`
}

// start handles POST /api/session/start. An empty body starts a take with
// the default gesture.
func (h *SessionHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	}

	gesture := strings.TrimSpace(req.Gesture)
	if gesture == "" {
		gesture = h.defaultGesture
	}

	id := h.session.StartCollecting(gesture)
	writeJSON(w, http.StatusOK, startResponse{TakeID: id, Gesture: gesture})
}

// stop handles POST /api/session/stop.
func (h *SessionHandler) stop(w http.ResponseWriter) {
	take, ok := h.session.StopCollecting()
	if !ok {
		writeJSON(w, http.StatusOK, stopResponse{})
		return
	}
	writeJSON(w, http.StatusOK, stopResponse{Stopped: true, Take: &take})
}

// frames handles POST /api/session/frames with a batch of detections.
func (h *SessionHandler) frames(w http.ResponseWriter, r *http.Request) {
	var req framesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	resp := framesResponse{Received: len(req.Frames)}
	for _, f := range req.Frames {
		if h.session.AddResult(f.Result, f.Meta) {
			resp.Recorded++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
