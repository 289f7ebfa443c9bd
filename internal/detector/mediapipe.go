package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const serviceScript = "mediapipe_service.py"

// ErrScriptNotFound is returned when the tracker service script cannot be
// located on any search path.
var ErrScriptNotFound = errors.New(serviceScript + " not found")

// MediaPipeDetector runs hand tracking in a Python child process. Each frame
// is sent as a big-endian uint32 length followed by JPEG bytes; the child
// answers with one JSON line in the MediaPipe Tasks result shape.
//
// The child starts on the first Detect and is stopped again after
// Config.IdleShutdown without frames.
type MediaPipeDetector struct {
	cfg    Config
	python string
	script string

	mu   sync.Mutex
	proc *trackerProc
	idle *time.Timer
}

type trackerProc struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	out *bufio.Reader
}

func NewMediaPipeDetector(cfg Config) (*MediaPipeDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	script := cfg.Script
	if script == "" {
		script = searchFile(serviceScript)
	}
	if script == "" {
		return nil, ErrScriptNotFound
	}

	python := cfg.Python
	if python == "" {
		python = searchFile(filepath.Join("venv", "bin", "python"))
	}
	if python == "" {
		python = "python3"
	}

	return &MediaPipeDetector{cfg: cfg, python: python, script: script}, nil
}

func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (Result, error) {
	if frame == nil || frame.Empty() {
		return Result{}, nil
	}

	jpeg, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return Result{}, fmt.Errorf("encode frame: %w", err)
	}
	defer jpeg.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.proc == nil {
		if d.proc, err = d.spawn(); err != nil {
			return Result{}, err
		}
	}

	line, err := d.proc.roundTrip(jpeg.GetBytes())
	if err != nil {
		// A broken pipe leaves the child unusable; drop it so the next
		// frame starts a fresh one.
		d.stopLocked()
		return Result{}, err
	}
	d.armIdleLocked()

	return ParseResult(line)
}

func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked()
}

func (d *MediaPipeDetector) spawn() (*trackerProc, error) {
	cmd := exec.Command(d.python, d.script,
		"--max-hands", strconv.Itoa(d.cfg.MaxHands),
		"--min-confidence", strconv.FormatFloat(d.cfg.MinConfidence, 'f', -1, 64),
		"--min-tracking", strconv.FormatFloat(d.cfg.MinTrackingConf, 'f', -1, 64),
	)
	cmd.Stderr = os.Stderr

	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("tracker stdin: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("tracker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start tracker: %w", err)
	}

	slog.Info("hand tracker started",
		slog.String("python", d.python),
		slog.Int("pid", cmd.Process.Pid))

	return &trackerProc{cmd: cmd, in: in, out: bufio.NewReader(out)}, nil
}

func (p *trackerProc) roundTrip(jpeg []byte) ([]byte, error) {
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(jpeg)))

	if _, err := p.in.Write(size[:]); err != nil {
		return nil, fmt.Errorf("send frame size: %w", err)
	}
	if _, err := p.in.Write(jpeg); err != nil {
		return nil, fmt.Errorf("send frame: %w", err)
	}

	line, err := p.out.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read tracker reply: %w", err)
	}
	return line, nil
}

func (d *MediaPipeDetector) stopLocked() error {
	if d.idle != nil {
		d.idle.Stop()
		d.idle = nil
	}
	if d.proc == nil {
		return nil
	}

	p := d.proc
	d.proc = nil
	p.in.Close()
	return p.cmd.Wait()
}

func (d *MediaPipeDetector) armIdleLocked() {
	if d.cfg.IdleShutdown <= 0 {
		return
	}
	if d.idle != nil {
		d.idle.Reset(d.cfg.IdleShutdown)
		return
	}
	d.idle = time.AfterFunc(d.cfg.IdleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.stopLocked(); err != nil {
			slog.Warn("hand tracker idle stop", slog.Any("error", err))
		}
	})
}

// ParseResult decodes one tracker reply. Sets longer than NumLandmarks are
// cut down; shorter ones are kept and left to the encoder to reject.
// Handedness is padded so it stays parallel to Landmarks.
func ParseResult(data []byte) (Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, fmt.Errorf("decode tracker reply: %w", err)
	}

	for i := range r.Landmarks {
		if len(r.Landmarks[i]) > NumLandmarks {
			r.Landmarks[i] = r.Landmarks[i][:NumLandmarks]
		}
	}
	if missing := len(r.Landmarks) - len(r.Handedness); missing > 0 {
		r.Handedness = append(r.Handedness, make([][]Category, missing)...)
	}
	return r, nil
}

// searchFile returns the absolute path of the first existing candidate for
// name under the working directory, the executable's directory or ~/.mudra.
func searchFile(name string) string {
	roots := []string{".", "..", filepath.Join(".", "scripts"), filepath.Join("..", "scripts")}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		roots = append(roots, dir, filepath.Join(dir, "scripts"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, filepath.Join(home, ".mudra"), filepath.Join(home, ".mudra", "scripts"))
	}

	for _, root := range roots {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}
