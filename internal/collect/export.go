package collect

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/detector"
)

// Hand presence categories reported in export metadata.
const (
	PresenceNone  = "none"
	PresenceLeft  = "left"
	PresenceRight = "right"
	PresenceBoth  = "both"
)

var csvHeader = buildHeader()

func buildHeader() string {
	cols := []string{
		"frame_id", "timestamp_ms", "gesture", "take_id", "take_quality",
		"quality_score", "bad_reasons", "primary_hand", "lighting_status",
		"L_exist", "R_exist", "L_missing", "R_missing",
	}
	for _, side := range []string{"L", "R"} {
		for i := 0; i < detector.NumLandmarks; i++ {
			cols = append(cols,
				fmt.Sprintf("%s_x%d", side, i),
				fmt.Sprintf("%s_y%d", side, i),
				fmt.Sprintf("%s_z%d", side, i),
			)
		}
	}
	return strings.Join(cols, ",")
}

// CSVHeader returns the export table header without a trailing newline.
func CSVHeader() string {
	return csvHeader
}

// Metadata summarizes the whole buffered sequence of an export.
type Metadata struct {
	ExportID           string   `json:"export_id"`
	Gesture            string   `json:"gesture"`
	Gestures           []string `json:"gestures"`
	TotalFrames        int      `json:"total_frames"`
	HandPresence       string   `json:"hand_presence"`
	LeftMissingFrames  int      `json:"L_missing_frames"`
	RightMissingFrames int      `json:"R_missing_frames"`
	LeftMissingRate    float64  `json:"L_missing_rate"`
	RightMissingRate   float64  `json:"R_missing_rate"`
	SessionStartMs     *int64   `json:"session_start_ms"`
	SessionEndMs       *int64   `json:"session_end_ms"`
	DurationMs         *int64   `json:"duration_ms"`
	FPS                int      `json:"fps"`
	FrameLimit         int      `json:"frame_limit"`
	FeatureWidth       int      `json:"feature_width"`
	Preprocessing      []string `json:"preprocessing"`
	TakeCount          int      `json:"take_count"`
	CreatedAt          string   `json:"created_at"`
}

// TakeMetadata wraps the take summaries of an export.
type TakeMetadata struct {
	ExportID      string          `json:"export_id"`
	Gesture       string          `json:"gesture"`
	FPS           int             `json:"fps"`
	FrameLimit    int             `json:"frame_limit"`
	TotalFrames   int             `json:"total_frames"`
	TakeCount     int             `json:"take_count"`
	QualityCounts map[Quality]int `json:"quality_counts"`
	Takes         []Take          `json:"takes"`
	CreatedAt     string          `json:"created_at"`
}

// Bundle holds the three correlated artifacts of one export action. CSV is
// nil when the buffer was empty.
type Bundle struct {
	ExportID     string       `json:"export_id"`
	CSV          []byte       `json:"-"`
	Metadata     Metadata     `json:"metadata"`
	TakeMetadata TakeMetadata `json:"take_metadata"`
}

// HasCSV reports whether the bundle carries a frame table.
func (b *Bundle) HasCSV() bool {
	return len(b.CSV) > 0
}

// MetadataJSON renders the session metadata pretty-printed.
func (b *Bundle) MetadataJSON() ([]byte, error) {
	return json.MarshalIndent(b.Metadata, "", "  ")
}

// TakeMetadataJSON renders the take summaries pretty-printed.
func (b *Bundle) TakeMetadataJSON() ([]byte, error) {
	return json.MarshalIndent(b.TakeMetadata, "", "  ")
}

// NewExportID returns a sortable timestamp with a short random suffix.
func NewExportID(now time.Time) string {
	return fmt.Sprintf("%s_%s", now.UTC().Format("20060102T150405"), uuid.NewString()[:6])
}

// ConvertToCSV renders every buffered frame as one table row. An empty
// buffer yields just the header line.
func (s *Session) ConvertToCSV() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return renderCSV(s.frames)
}

// Metadata summarizes the buffered frames under exportID.
func (s *Session) Metadata(exportID string) Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadataLocked(exportID, s.now())
}

// TakeMetadata returns the finalized take list under exportID.
func (s *Session) TakeMetadata(exportID string) TakeMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takeMetadataLocked(exportID, s.now())
}

// Export produces all three artifacts under one freshly generated export
// id. The CSV is skipped when no frames are buffered.
func (s *Session) Export() *Bundle {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := NewExportID(now)

	b := &Bundle{
		ExportID:     id,
		Metadata:     s.metadataLocked(id, now),
		TakeMetadata: s.takeMetadataLocked(id, now),
	}
	if len(s.frames) > 0 {
		b.CSV = []byte(renderCSV(s.frames))
	}
	return b
}

func (s *Session) metadataLocked(exportID string, now time.Time) Metadata {
	m := Metadata{
		ExportID:      exportID,
		Gesture:       s.gesture,
		Gestures:      []string{},
		TotalFrames:   len(s.frames),
		HandPresence:  PresenceNone,
		FPS:           s.config.FPS,
		FrameLimit:    s.config.FrameLimit,
		FeatureWidth:  FeatureWidth,
		Preprocessing: append([]string{}, s.config.Preprocessing...),
		TakeCount:     len(s.takes),
		CreatedAt:     now.UTC().Format(time.RFC3339),
	}

	seen := make(map[string]bool)
	var anyLeft, anyRight bool
	for _, f := range s.frames {
		if f.LeftExist == 1 {
			anyLeft = true
		} else {
			m.LeftMissingFrames++
		}
		if f.RightExist == 1 {
			anyRight = true
		} else {
			m.RightMissingFrames++
		}
		if !seen[f.Gesture] {
			seen[f.Gesture] = true
			m.Gestures = append(m.Gestures, f.Gesture)
		}
	}

	switch {
	case anyLeft && anyRight:
		m.HandPresence = PresenceBoth
	case anyLeft:
		m.HandPresence = PresenceLeft
	case anyRight:
		m.HandPresence = PresenceRight
	}

	if n := len(s.frames); n > 0 {
		m.LeftMissingRate = float64(m.LeftMissingFrames) / float64(n)
		m.RightMissingRate = float64(m.RightMissingFrames) / float64(n)

		start := s.frames[0].TimestampMs
		end := s.frames[n-1].TimestampMs
		m.SessionStartMs = ptr(start)
		m.SessionEndMs = ptr(end)
		m.DurationMs = ptr(end - start)
	}

	return m
}

func (s *Session) takeMetadataLocked(exportID string, now time.Time) TakeMetadata {
	tm := TakeMetadata{
		ExportID:    exportID,
		Gesture:     s.gesture,
		FPS:         s.config.FPS,
		FrameLimit:  s.config.FrameLimit,
		TotalFrames: len(s.frames),
		TakeCount:   len(s.takes),
		QualityCounts: map[Quality]int{
			QualityGood:       0,
			QualityBorderline: 0,
			QualityBad:        0,
		},
		Takes:     append([]Take{}, s.takes...),
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
	for _, t := range s.takes {
		tm.QualityCounts[t.Quality]++
	}
	return tm
}

func renderCSV(frames []*Frame) string {
	var b strings.Builder
	b.WriteString(csvHeader)
	b.WriteByte('\n')

	for _, f := range frames {
		writeRow(&b, f)
		b.WriteByte('\n')
	}
	return b.String()
}

// writeRow writes one frame without quoting. Only bad_reasons is sanitized,
// so labels containing commas will shift columns.
func writeRow(b *strings.Builder, f *Frame) {
	b.WriteString(strconv.Itoa(f.FrameID))
	b.WriteByte(',')
	b.WriteString(strconv.FormatInt(f.TimestampMs, 10))
	b.WriteByte(',')
	b.WriteString(f.Gesture)
	b.WriteByte(',')
	if f.TakeID != nil {
		b.WriteString(strconv.Itoa(*f.TakeID))
	}
	b.WriteByte(',')
	if f.TakeQuality != nil {
		b.WriteString(string(*f.TakeQuality))
	}
	b.WriteByte(',')
	if f.QualityScore != nil {
		b.WriteString(strconv.Itoa(*f.QualityScore))
	}
	b.WriteByte(',')
	if f.BadReasons != nil {
		b.WriteString(strings.ReplaceAll(*f.BadReasons, ",", ";"))
	}
	b.WriteByte(',')
	if f.PrimaryHand != nil {
		b.WriteString(*f.PrimaryHand)
	}
	b.WriteByte(',')
	if f.LightingStatus != nil {
		b.WriteString(*f.LightingStatus)
	}
	fmt.Fprintf(b, ",%d,%d,%d,%d", f.LeftExist, f.RightExist, 1-f.LeftExist, 1-f.RightExist)

	for _, v := range f.Features {
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
}
