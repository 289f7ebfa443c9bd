package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/sink"
	"github.com/ayusman/mudra/internal/store"
)

// Exporter runs one export action.
type Exporter interface {
	Export(ctx context.Context, sinks ...string) (*app.ExportResult, error)
}

// ExportHandler handles HTTP requests for export resources.
type ExportHandler struct {
	store    *store.Store
	exporter Exporter
}

// NewExportHandler creates a new ExportHandler. A nil exporter makes the
// collection read-only.
func NewExportHandler(s *store.Store, exporter Exporter) *ExportHandler {
	return &ExportHandler{store: s, exporter: exporter}
}

// ServeHTTP routes /api/exports, /api/exports/{id} and its sub-resources.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/exports")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "csv":
		if allow(w, r, http.MethodGet) {
			h.csv(w, r, id)
		}
	case len(parts) == 2 && parts[1] == "takes":
		if allow(w, r, http.MethodGet) {
			h.takes(w, r, id)
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Request and response types

type createExportRequest struct {
	Sinks []string `json:"sinks"`
}

type exportResponse struct {
	ID           string          `json:"id"`
	Gesture      string          `json:"gesture"`
	FrameCount   int             `json:"frame_count"`
	TakeCount    int             `json:"take_count"`
	HasCSV       bool            `json:"has_csv"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	TakeMetadata json.RawMessage `json:"take_metadata,omitempty"`
	CreatedAt    string          `json:"created_at"`
}

type createExportResponse struct {
	exportResponse
	Delivery []sink.Result `json:"delivery"`
}

type listExportsResponse struct {
	Exports []exportResponse `json:"exports"`
}

func toExportResponse(e *store.Export, withArtifacts bool) exportResponse {
	resp := exportResponse{
		ID:         e.ID,
		Gesture:    e.Gesture,
		FrameCount: e.FrameCount,
		TakeCount:  e.TakeCount,
		HasCSV:     e.HasCSV(),
		CreatedAt:  formatTime(e.CreatedAt),
	}
	if withArtifacts {
		resp.Metadata = e.Metadata
		resp.TakeMetadata = e.TakeMetadata
	}
	return resp
}

// list handles GET /api/exports.
func (h *ExportHandler) list(w http.ResponseWriter, r *http.Request) {
	exports, err := h.store.Exports().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list exports")
		return
	}

	response := listExportsResponse{
		Exports: make([]exportResponse, 0, len(exports)),
	}
	for _, e := range exports {
		response.Exports = append(response.Exports, toExportResponse(e, false))
	}

	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/exports. The optional body names the sinks to
// deliver to; without it every discovered sink receives the bundle.
func (h *ExportHandler) create(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	res, err := h.exporter.Export(r.Context(), req.Sinks...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export session")
		return
	}

	resp := createExportResponse{Delivery: nonNil(res.Delivery)}
	if res.Record != nil {
		resp.exportResponse = toExportResponse(res.Record, true)
	} else {
		meta, _ := res.Bundle.MetadataJSON()
		takeMeta, _ := res.Bundle.TakeMetadataJSON()
		resp.exportResponse = exportResponse{
			ID:           res.Bundle.ExportID,
			Gesture:      res.Bundle.Metadata.Gesture,
			FrameCount:   res.Bundle.Metadata.TotalFrames,
			TakeCount:    res.Bundle.TakeMetadata.TakeCount,
			HasCSV:       res.Bundle.HasCSV(),
			Metadata:     meta,
			TakeMetadata: takeMeta,
			CreatedAt:    res.Bundle.Metadata.CreatedAt,
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *ExportHandler) lookup(w http.ResponseWriter, id string) (*store.Export, bool) {
	e, err := h.store.Exports().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Export not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get export")
		return nil, false
	}
	return e, true
}

// get handles GET /api/exports/{id}.
func (h *ExportHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	e, ok := h.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toExportResponse(e, true))
}

// csv handles GET /api/exports/{id}/csv. Exports of an empty session have
// no frame table.
func (h *ExportHandler) csv(w http.ResponseWriter, r *http.Request, id string) {
	e, ok := h.lookup(w, id)
	if !ok {
		return
	}
	if !e.HasCSV() {
		writeError(w, http.StatusNotFound, "Export has no frames")
		return
	}
	writeCSV(w, e.ID+".csv", e.CSV)
}

// takes handles GET /api/exports/{id}/takes.
func (h *ExportHandler) takes(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.lookup(w, id); !ok {
		return
	}

	takes, err := h.store.Takes().ListByExport(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list takes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"takes": takes})
}

// delete handles DELETE /api/exports/{id}.
func (h *ExportHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Exports().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Export not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete export")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
