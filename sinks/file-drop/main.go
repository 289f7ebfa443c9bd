// Package main provides a sink that writes each export bundle into a
// directory as <id>.csv, <id>_metadata.json and <id>_take_metadata.json.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ayusman/mudra/internal/sink"
)

// Config is read from the request's config object.
type Config struct {
	Dir string `json:"dir"`
}

const defaultDir = "exports"

func main() {
	var req sink.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(sink.Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	if req.Action != sink.ActionExport {
		writeResponse(sink.Response{Error: fmt.Sprintf("unknown action: %s", req.Action)})
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeResponse(sink.Response{Error: fmt.Sprintf("failed to parse config: %v", err)})
			return
		}
	}
	if cfg.Dir == "" {
		cfg.Dir = defaultDir
	}

	if err := writeBundle(cfg.Dir, req.Bundle); err != nil {
		writeResponse(sink.Response{Error: err.Error()})
		return
	}

	abs, err := filepath.Abs(cfg.Dir)
	if err != nil {
		abs = cfg.Dir
	}
	writeResponse(sink.Response{Success: true, Location: abs})
}

func writeBundle(dir string, b sink.Payload) error {
	if b.ExportID == "" {
		return fmt.Errorf("bundle has no export id")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	if b.CSV != "" {
		if err := os.WriteFile(filepath.Join(dir, b.ExportID+".csv"), []byte(b.CSV), 0644); err != nil {
			return err
		}
	}

	meta, err := json.MarshalIndent(b.Metadata, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, b.ExportID+"_metadata.json"), meta, 0644); err != nil {
		return err
	}

	takes, err := json.MarshalIndent(b.TakeMetadata, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, b.ExportID+"_take_metadata.json"), takes, 0644)
}

func writeResponse(resp sink.Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
