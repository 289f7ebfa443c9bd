package sink

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ManifestFile is the manifest name looked up in each sink directory.
const ManifestFile = "sink.json"

// ErrSinkNotFound is returned when a requested sink cannot be found.
var ErrSinkNotFound = errors.New("sink not found")

// Manager discovers sinks below a directory.
type Manager struct {
	dir   string
	sinks map[string]*Sink
	mu    sync.RWMutex
}

// NewManager creates a new sink Manager for dir.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:   dir,
		sinks: make(map[string]*Sink),
	}
}

// Discover rescans the sink directory. Each subdirectory holding a readable
// sink.json is a sink; anything else is skipped. A missing directory is not
// an error.
func (m *Manager) Discover() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sinks = make(map[string]*Sink)

	info, err := os.Stat(m.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		sinkPath := filepath.Join(m.dir, entry.Name())
		data, err := os.ReadFile(filepath.Join(sinkPath, ManifestFile))
		if err != nil {
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			slog.Warn("skipping sink with invalid manifest", slog.String("path", sinkPath), slog.Any("error", err))
			continue
		}
		if manifest.Name == "" || manifest.Executable == "" {
			slog.Warn("skipping sink with incomplete manifest", slog.String("path", sinkPath))
			continue
		}

		m.sinks[manifest.Name] = &Sink{
			Manifest:   manifest,
			Path:       sinkPath,
			Executable: filepath.Join(sinkPath, manifest.Executable),
		}
	}

	slog.Debug("sinks discovered", slog.String("dir", m.dir), slog.Int("count", len(m.sinks)))
	return nil
}

// Get returns a sink by name.
func (m *Manager) Get(name string) (*Sink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sinks[name]
	if !ok {
		return nil, ErrSinkNotFound
	}
	return s, nil
}

// List returns all discovered sinks sorted by name.
func (m *Manager) List() []*Sink {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sinks := make([]*Sink, 0, len(m.sinks))
	for _, s := range m.sinks {
		sinks = append(sinks, s)
	}
	sort.Slice(sinks, func(i, j int) bool {
		return sinks[i].Manifest.Name < sinks[j].Manifest.Name
	})
	return sinks
}

// Dir returns the sink directory path.
func (m *Manager) Dir() string {
	return m.dir
}
