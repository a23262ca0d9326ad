package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteDownload places a fake fetched file named name under dir, creating
// parent directories, and returns its path. An empty dir uses t.TempDir().
func WriteDownload(t testing.TB, dir, name, content string) string {
	t.Helper()

	if dir == "" {
		dir = t.TempDir()
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
