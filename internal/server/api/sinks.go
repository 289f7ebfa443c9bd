package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/sink"
)

// SinkHandler lists installed export sinks and sets their configuration.
type SinkHandler struct {
	manager    *sink.Manager
	dispatcher *sink.Dispatcher
}

// NewSinkHandler creates a new SinkHandler.
func NewSinkHandler(m *sink.Manager, d *sink.Dispatcher) *SinkHandler {
	return &SinkHandler{manager: m, dispatcher: d}
}

// ServeHTTP routes /api/sinks, /api/sinks/reload and /api/sinks/{name}/config.
func (h *SinkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sinks")
	path = strings.TrimPrefix(path, "/")

	switch {
	case path == "":
		if allow(w, r, http.MethodGet) {
			h.list(w)
		}
	case path == "reload":
		if allow(w, r, http.MethodPost) {
			h.reload(w)
		}
	case strings.HasSuffix(path, "/config"):
		if allow(w, r, http.MethodPut) {
			h.configure(w, r, strings.TrimSuffix(path, "/config"))
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type sinkResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

type listSinksResponse struct {
	Sinks []sinkResponse `json:"sinks"`
}

func (h *SinkHandler) list(w http.ResponseWriter) {
	response := listSinksResponse{Sinks: []sinkResponse{}}
	for _, s := range h.manager.List() {
		response.Sinks = append(response.Sinks, sinkResponse{
			Name:        s.Manifest.Name,
			Version:     s.Manifest.Version,
			Description: s.Manifest.Description,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *SinkHandler) reload(w http.ResponseWriter) {
	if err := h.manager.Discover(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to discover sinks")
		return
	}
	h.list(w)
}

func (h *SinkHandler) configure(w http.ResponseWriter, r *http.Request, name string) {
	if _, err := h.manager.Get(name); err != nil {
		if errors.Is(err, sink.ErrSinkNotFound) {
			writeError(w, http.StatusNotFound, "Sink not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get sink")
		return
	}

	var cfg json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	h.dispatcher.Configure(name, cfg)
	w.WriteHeader(http.StatusNoContent)
}
