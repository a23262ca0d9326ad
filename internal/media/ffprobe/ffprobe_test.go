package ffprobe

import "testing"

func TestParseAndKind(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"video with audio", `{"streams":[{"codec_type":"video","codec_name":"h264"},{"codec_type":"audio","codec_name":"aac"}],"format":{"duration":"12.5"}}`, "video"},
		{"audio only", `{"streams":[{"codec_type":"audio","codec_name":"opus"}]}`, "audio"},
		{"still image", `{"streams":[{"codec_type":"video","codec_name":"mjpeg"}]}`, "image"},
		{"cover art on audio", `{"streams":[{"codec_type":"audio","codec_name":"mp3"},{"codec_type":"video","codec_name":"png"}]}`, "audio"},
		{"empty", `{"streams":[]}`, "video"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Parse([]byte(tt.json))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := result.Kind(); got != tt.want {
				t.Fatalf("Kind = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResultNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "123.45", Size: "1000"}}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}

	bad := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if bad.DurationSeconds() != 0 {
		t.Fatalf("expected duration 0, got %v", bad.DurationSeconds())
	}
	if bad.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", bad.SizeBytes())
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}
