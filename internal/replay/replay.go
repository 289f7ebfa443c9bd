// Package replay feeds a recorded detection log through a session so the
// export artifacts can be rebuilt offline.
//
// A log is JSON lines. Each line is one of
//
//	{"event":"start","gesture":"pataka"}
//	{"event":"stop"}
//	{"landmarks":[...],"handednesses":[...],"meta":{"timestamp_ms":...}}
//
// where a line without an event is a frame.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ayusman/mudra/internal/collect"
	"github.com/ayusman/mudra/internal/detector"
)

// Event kinds.
const (
	EventStart = "start"
	EventStop  = "stop"
	EventFrame = "frame"
)

const maxLine = 1 << 20

// Record is one line of a detection log.
type Record struct {
	Event   string `json:"event,omitempty"`
	Gesture string `json:"gesture,omitempty"`
	detector.Result
	Meta *collect.FrameMeta `json:"meta,omitempty"`
}

// Stats summarizes a replay.
type Stats struct {
	Lines    int
	Frames   int
	Recorded int
	Takes    int
}

// Run applies every record read from r to s in order. progress, when set,
// receives the byte length of each consumed line. A take still open at the
// end of the log is closed so it gets scored.
func Run(ctx context.Context, s *collect.Session, r io.Reader, progress func(n int)) (Stats, error) {
	var st Stats

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		line := sc.Bytes()
		st.Lines++
		if progress != nil {
			progress(len(line) + 1)
		}
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return st, fmt.Errorf("line %d: %w", st.Lines, err)
		}

		switch rec.Event {
		case EventStart:
			s.StartCollecting(rec.Gesture)
		case EventStop:
			if _, ok := s.StopCollecting(); ok {
				st.Takes++
			}
		case "", EventFrame:
			st.Frames++
			if s.AddResult(rec.Result, rec.Meta) {
				st.Recorded++
			}
		default:
			return st, fmt.Errorf("line %d: unknown event %q", st.Lines, rec.Event)
		}
	}
	if err := sc.Err(); err != nil {
		return st, err
	}

	if _, ok := s.StopCollecting(); ok {
		st.Takes++
	}
	return st, nil
}

// RunFile replays the log at path.
func RunFile(ctx context.Context, s *collect.Session, path string, progress func(n int)) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()
	return Run(ctx, s, f, progress)
}

// WriteBundle writes b into dir as <id>.csv, <id>_metadata.json and
// <id>_take_metadata.json and returns the written paths. The CSV is skipped
// for an empty session.
func WriteBundle(dir string, b *collect.Bundle) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	var written []string
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	if b.HasCSV() {
		if err := write(b.ExportID+".csv", b.CSV); err != nil {
			return written, err
		}
	}

	meta, err := b.MetadataJSON()
	if err != nil {
		return written, err
	}
	if err := write(b.ExportID+"_metadata.json", meta); err != nil {
		return written, err
	}

	takes, err := b.TakeMetadataJSON()
	if err != nil {
		return written, err
	}
	if err := write(b.ExportID+"_take_metadata.json", takes); err != nil {
		return written, err
	}
	return written, nil
}
