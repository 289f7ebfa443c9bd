// Package sink delivers export bundles to external sink executables and
// publishes take summaries over MQTT.
package sink

import (
	"encoding/json"

	"github.com/ayusman/mudra/internal/collect"
)

// ActionExport is the only action sinks are asked to perform.
const ActionExport = "export"

// Manifest describes a sink's metadata, read from sink.json.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Payload is the export bundle as sent to a sink. The CSV is inlined as text
// and empty when the session had no frames.
type Payload struct {
	ExportID     string               `json:"export_id"`
	CSV          string               `json:"csv"`
	Metadata     collect.Metadata     `json:"metadata"`
	TakeMetadata collect.TakeMetadata `json:"take_metadata"`
}

// NewPayload converts a bundle for delivery.
func NewPayload(b *collect.Bundle) Payload {
	return Payload{
		ExportID:     b.ExportID,
		CSV:          string(b.CSV),
		Metadata:     b.Metadata,
		TakeMetadata: b.TakeMetadata,
	}
}

// Request is written to the sink's stdin.
type Request struct {
	Action string          `json:"action"`
	Config json.RawMessage `json:"config"`
	Bundle Payload         `json:"bundle"`
}

// Response is read from the sink's stdout.
type Response struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Location string `json:"location,omitempty"`
}

// Sink is a discovered sink with its manifest and location.
type Sink struct {
	Manifest   Manifest
	Path       string
	Executable string
}
