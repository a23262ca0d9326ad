package daemonrun

import (
	"os"
	"path/filepath"
	"testing"

	"appdl/internal/logging"
)

func TestCleanWorkDirRemovesLeftovers(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"job-a-1", "job-b-2"} {
		if err := os.MkdirAll(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, name, "part.mp4.part"), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	cleanWorkDir(logging.NewNop(), dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty work dir, found %d entries", len(entries))
	}

	cleanWorkDir(logging.NewNop(), filepath.Join(dir, "missing"))
}

func TestEnsureCurrentLogPointer(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "appdl-1.log")
	second := filepath.Join(dir, "appdl-2.log")
	for _, path := range []string{first, second} {
		if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "appdl.log"))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "appdl-2.log" {
		t.Fatalf("pointer resolves to %q", data)
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appdl.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		t.Fatalf("unexpected pid file contents %q", data)
	}
}
