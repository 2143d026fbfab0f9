package cli

import (
	"io"
	"strings"
	"testing"

	"yt-media-downloader/internal/model"
)

func TestParseArgs_DefaultsAndSource(t *testing.T) {
	opts, done, err := parseArgs([]string{"https://youtu.be/dQw4w9WgXcQ"}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if done {
		t.Fatalf("unexpected early exit")
	}
	if opts.Source != "https://youtu.be/dQw4w9WgXcQ" {
		t.Fatalf("source: got %q", opts.Source)
	}
	if opts.Format != "mp3" || opts.Quality != model.QualityMedium {
		t.Fatalf("defaults: got format=%q quality=%q", opts.Format, opts.Quality)
	}
	if opts.ParallelDownload != 3 || opts.ParallelConvert != 1 {
		t.Fatalf("defaults: got workers %d/%d", opts.ParallelDownload, opts.ParallelConvert)
	}
	if opts.OutputDir != "downloads" || !opts.Progress || opts.Video || opts.Force {
		t.Fatalf("defaults: got %+v", opts)
	}
}

func TestParseArgs_Overrides(t *testing.T) {
	opts, _, err := parseArgs([]string{
		"--video",
		"--quality", "high",
		"--format", "wav",
		"--parallel-download", "8",
		"--parallel-convert", "0",
		"--output-dir", "music",
		"--force",
		"--progress=false",
		"https://youtu.be/dQw4w9WgXcQ",
	}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !opts.Video || opts.Quality != model.QualityHigh || opts.Format != "wav" {
		t.Fatalf("overrides: got %+v", opts)
	}
	if opts.ParallelDownload != 8 || opts.ParallelConvert != 0 {
		t.Fatalf("workers: got %d/%d", opts.ParallelDownload, opts.ParallelConvert)
	}
	if opts.OutputDir != "music" || !opts.Force || opts.Progress {
		t.Fatalf("overrides: got %+v", opts)
	}
}

func TestParseArgs_RejectsInvalidValues(t *testing.T) {
	cases := [][]string{
		{},
		{"one", "two"},
		{"--quality", "ultra", "https://youtu.be/dQw4w9WgXcQ"},
		{"--format", "flac", "https://youtu.be/dQw4w9WgXcQ"},
		{"--parallel-download", "9", "https://youtu.be/dQw4w9WgXcQ"},
		{"--parallel-convert", "-1", "https://youtu.be/dQw4w9WgXcQ"},
		{"--output-dir", " ", "https://youtu.be/dQw4w9WgXcQ"},
	}
	for _, args := range cases {
		if _, _, err := parseArgs(args, io.Discard); err == nil {
			t.Fatalf("expected error for args %v", args)
		}
	}
}

func TestParseArgs_VersionShortCircuits(t *testing.T) {
	var buf strings.Builder
	_, done, err := parseArgs([]string{"--version"}, &buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !done {
		t.Fatalf("expected version to short-circuit")
	}
	if !strings.Contains(buf.String(), version) {
		t.Fatalf("version output missing: %q", buf.String())
	}
}
