package sink

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir string, m Manifest) string {
	t.Helper()

	sinkDir := filepath.Join(dir, m.Name)
	if err := os.MkdirAll(sinkDir, 0755); err != nil {
		t.Fatalf("failed to create sink dir: %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sinkDir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return sinkDir
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()

	sinkDir := writeManifest(t, tmpDir, Manifest{
		Name:        "file-drop",
		Version:     "1.0.0",
		Description: "writes exports to disk",
		Executable:  "file-drop",
	})

	m := NewManager(tmpDir)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	sinks := m.List()
	if len(sinks) != 1 {
		t.Fatalf("expected 1 sink, got %d", len(sinks))
	}

	s := sinks[0]
	if s.Manifest.Name != "file-drop" || s.Manifest.Version != "1.0.0" {
		t.Errorf("unexpected manifest %+v", s.Manifest)
	}
	if s.Path != sinkDir {
		t.Errorf("Path = %q, want %q", s.Path, sinkDir)
	}
	if s.Executable != filepath.Join(sinkDir, "file-drop") {
		t.Errorf("Executable = %q", s.Executable)
	}
}

func TestManager_Discover_SkipsInvalid(t *testing.T) {
	tmpDir := t.TempDir()

	writeManifest(t, tmpDir, Manifest{Name: "good", Executable: "run"})
	writeManifest(t, tmpDir, Manifest{Name: "no-exec"})

	badDir := filepath.Join(tmpDir, "bad-json")
	os.MkdirAll(badDir, 0755)
	os.WriteFile(filepath.Join(badDir, ManifestFile), []byte("{not json"), 0644)

	os.MkdirAll(filepath.Join(tmpDir, "empty"), 0755)
	os.WriteFile(filepath.Join(tmpDir, "stray.txt"), []byte("x"), 0644)

	m := NewManager(tmpDir)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	sinks := m.List()
	if len(sinks) != 1 || sinks[0].Manifest.Name != "good" {
		t.Errorf("expected only the good sink, got %d", len(sinks))
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nope"))

	if err := m.Discover(); err != nil {
		t.Errorf("missing directory should not error: %v", err)
	}
	if len(m.List()) != 0 {
		t.Error("expected no sinks")
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	tmpDir := t.TempDir()
	sinkDir := writeManifest(t, tmpDir, Manifest{Name: "a", Executable: "run"})

	m := NewManager(tmpDir)
	m.Discover()
	if len(m.List()) != 1 {
		t.Fatal("expected 1 sink")
	}

	os.RemoveAll(sinkDir)
	m.Discover()
	if len(m.List()) != 0 {
		t.Error("rescan should drop removed sinks")
	}
}

func TestManager_Get(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, Manifest{Name: "b", Executable: "run"})
	writeManifest(t, tmpDir, Manifest{Name: "a", Executable: "run"})

	m := NewManager(tmpDir)
	m.Discover()

	if _, err := m.Get("a"); err != nil {
		t.Errorf("Get(a) failed: %v", err)
	}
	if _, err := m.Get("missing"); !errors.Is(err, ErrSinkNotFound) {
		t.Errorf("expected ErrSinkNotFound, got %v", err)
	}

	sinks := m.List()
	if sinks[0].Manifest.Name != "a" || sinks[1].Manifest.Name != "b" {
		t.Error("List should be sorted by name")
	}
	if m.Dir() != tmpDir {
		t.Errorf("Dir() = %q", m.Dir())
	}
}
