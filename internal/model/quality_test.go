package model

import "testing"

func TestParseQuality_AcceptsPresets(t *testing.T) {
	cases := []struct {
		raw     string
		bitrate string
		height  int
	}{
		{"low", "128k", 360},
		{"medium", "192k", 480},
		{"high", "320k", 720},
		{"HIGH", "320k", 720},
		{" medium ", "192k", 480},
	}

	for _, tc := range cases {
		q, err := ParseQuality(tc.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.raw, err)
		}
		if got := q.AudioBitrate(); got != tc.bitrate {
			t.Fatalf("bitrate for %q: got %q want %q", tc.raw, got, tc.bitrate)
		}
		if got := q.VideoHeight(); got != tc.height {
			t.Fatalf("height for %q: got %d want %d", tc.raw, got, tc.height)
		}
	}
}

func TestParseQuality_RejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "ultra", "128k"} {
		if _, err := ParseQuality(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestParseAudioFormat_Supported(t *testing.T) {
	for _, raw := range []string{"mp3", "wav", "opus", "m4a", "MP3"} {
		if _, err := ParseAudioFormat(raw); err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
	}
	for _, raw := range []string{"", "flac", "aac "} {
		if _, err := ParseAudioFormat(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
