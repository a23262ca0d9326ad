package main

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"appdl/internal/api"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "Running", true)
	if !strings.HasPrefix(got, "\x1b[32m") {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, "\x1b[0m") {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	deps := []api.DependencyStatus{
		{Name: "yt-dlp", Available: false, Detail: `binary "yt-dlp" not found`},
		{Name: "ffprobe", Available: true, Command: "ffprobe"},
		{Name: "FFmpeg", Available: false, Optional: true},
	}
	lines := dependencyLines(deps, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[ERROR]") {
		t.Fatalf("expected required dependency error, got %q", lines[0])
	}
	if !strings.Contains(lines[2], "[WARN] not available") {
		t.Fatalf("expected optional dependency warning, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "yt-dlp") || strings.Contains(lines[3], "FFmpeg") {
		t.Fatalf("missing summary should list required only, got %q", lines[3])
	}
}

func TestBuildQueueStatusRows(t *testing.T) {
	rows := buildQueueStatusRows(map[string]int{"failed": 2, "queued": 1, "completed": 0})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %v", rows)
	}
	if rows[0][0] != "Queued" || rows[1][0] != "Failed" || rows[1][1] != "2" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestJobDetail(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		job  api.Job
		want string
	}{
		{"error", api.Job{Status: "failed", ErrorKind: "AuthRequired", ErrorMessage: "login"}, "AuthRequired: login"},
		{"backoff", api.Job{Status: "queued", NextAttemptAt: now.Add(30 * time.Second).Format(time.RFC3339)}, "retry 30 seconds from now"},
		{"size", api.Job{Status: "completed", SizeBytes: 2_000_000}, "2.0 MB"},
		{"none", api.Job{Status: "queued"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jobDetail(tt.job, now); got != tt.want {
				t.Fatalf("jobDetail = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseCookieFile(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		count   int
		wantErr bool
	}{
		{"json array", `[{"name":"a","value":"1"},{"name":"b","value":"2"}]`, 2, false},
		{"json object", `{"cookies":[{"name":"a","value":"1"}]}`, 1, false},
		{"netscape", ".x.com\tTRUE\t/\tFALSE\t0\tauth\tv\n", 1, false},
		{"netscape bad fields", ".x.com\tTRUE\t/\n", 0, true},
		{"empty", "  \n", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cookies, err := parseCookieFile([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCookieFile: %v", err)
			}
			if len(cookies) != tt.count {
				t.Fatalf("expected %d cookies, got %d", tt.count, len(cookies))
			}
		})
	}
}
