// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdobak/go-xerrors"
)

// Options selects the logger output.
type Options struct {
	Level  string // debug, info, warn or error
	Format string // json (default) or text
	Source bool
	Output io.Writer
}

// ParseLevel maps a level name onto a slog level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger from opts.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	hopts := &slog.HandlerOptions{
		Level:       ParseLevel(opts.Level),
		AddSource:   opts.Source,
		ReplaceAttr: replaceAttr,
	}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		handler = slog.NewTextHandler(out, hopts)
	} else {
		handler = slog.NewJSONHandler(out, hopts)
	}
	return slog.New(handler)
}

// Init builds a logger and installs it as the slog default.
func Init(opts Options) *slog.Logger {
	logger := New(opts)
	slog.SetDefault(logger)
	return logger
}

type stackFrame struct {
	Func   string `json:"func"`
	Source string `json:"source"`
	Line   int    `json:"line"`
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindTime:
		if a.Key == slog.TimeKey {
			return slog.String(slog.TimeKey, a.Value.Time().Local().Format("2006-01-02 15:04:05"))
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.Any(a.Key, errorValue(err))
		}
	}
	return a
}

// errorValue expands errors carrying an xerrors stack trace into a group
// with the message and the trace; plain errors log as their message.
func errorValue(err error) slog.Value {
	frames := marshalStack(err)
	if frames == nil {
		return slog.StringValue(err.Error())
	}
	return slog.GroupValue(
		slog.String("msg", err.Error()),
		slog.Any("trace", frames),
	)
}

func marshalStack(err error) []stackFrame {
	trace := xerrors.StackTrace(err)
	if len(trace) == 0 {
		return nil
	}

	frames := trace.Frames()
	out := make([]stackFrame, len(frames))
	for i, f := range frames {
		out[i] = stackFrame{
			Func:   filepath.Base(f.Function),
			Source: filepath.Join(filepath.Base(filepath.Dir(f.File)), filepath.Base(f.File)),
			Line:   f.Line,
		}
	}
	return out
}
