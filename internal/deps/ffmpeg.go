package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CheckFFmpeg reports the FFmpeg binary yt-dlp will use to merge separate
// video and audio streams.
//
// Standalone yt-dlp releases are commonly unpacked next to an ffmpeg build.
// A sidecar beside the resolved yt-dlp executable wins over PATH; callers
// pass it to yt-dlp with --ffmpeg-location. Optional because single-file
// formats download without it.
func CheckFFmpeg(fetcherCommand string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Used by yt-dlp to merge video and audio streams",
		Optional:    true,
	}

	fetcherBinary := strings.TrimSpace(fetcherCommand)
	if fetcherBinary != "" {
		if resolved, err := exec.LookPath(fetcherBinary); err == nil {
			if candidate, ok := ffmpegSidecarCandidate(resolved); ok {
				if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
					result.Command = candidate
					result.Available = true
					result.Detail = "sidecar"
					return result
				}
			}
		}
	}

	ffmpegName := "ffmpeg"
	if ffmpegPath, err := exec.LookPath(ffmpegName); err == nil {
		result.Command = ffmpegPath
		result.Available = true
		return result
	}

	result.Command = ffmpegName
	result.Available = false
	result.Detail = fmt.Sprintf("binary %q not found", ffmpegName)
	return result
}

// IsSidecar reports whether status resolved an ffmpeg next to the fetcher.
func (s Status) IsSidecar() bool {
	return s.Available && s.Detail == "sidecar"
}

func ffmpegSidecarCandidate(fetcherPath string) (string, bool) {
	if fetcherPath == "" {
		return "", false
	}
	dir := filepath.Dir(fetcherPath)
	name := "ffmpeg"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(dir, name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
