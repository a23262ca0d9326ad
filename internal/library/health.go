package library

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// Health describes the library directory.
type Health struct {
	Path       string `json:"path"`
	Exists     bool   `json:"exists"`
	Writable   bool   `json:"writable"`
	FreeBytes  uint64 `json:"freeBytes"`
	TotalBytes uint64 `json:"totalBytes"`
	Error      string `json:"error,omitempty"`
}

// Healthy reports whether downloads can be stored.
func (h Health) Healthy() bool {
	return h.Exists && h.Writable
}

// CheckHealth inspects the library directory.
func (s *FileStore) CheckHealth() Health {
	return CheckDir(s.root)
}

// CheckDir inspects dir for existence, writability and free space.
func CheckDir(dir string) Health {
	h := Health{Path: dir}
	info, err := os.Stat(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			h.Error = err.Error()
		}
		return h
	}
	if !info.IsDir() {
		h.Error = "not a directory"
		return h
	}
	h.Exists = true
	if err := unix.Access(dir, unix.W_OK); err != nil {
		h.Error = err.Error()
	} else {
		h.Writable = true
	}
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err == nil {
		h.FreeBytes = st.Bavail * uint64(st.Bsize)
		h.TotalBytes = st.Blocks * uint64(st.Bsize)
	} else if h.Error == "" {
		h.Error = err.Error()
	}
	return h
}
