package ytdlp

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSplitByNewlineOrCR_TreatsCRAsLineBreak(t *testing.T) {
	input := "line1\rline2\nline3"
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Split(splitByNewlineOrCR)

	var lines []string
	for scanner.Scan() {
		if txt := scanner.Text(); txt != "" {
			lines = append(lines, txt)
		}
	}
	want := []string{"line1", "line2", "line3"}
	if len(lines) != len(want) {
		t.Fatalf("lines: got %v want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: got %q want %q", i, lines[i], want[i])
		}
	}
}

func TestAppendLimited_CapsTail(t *testing.T) {
	var b strings.Builder
	long := strings.Repeat("x", 5000)
	appendLimited(&b, long)
	appendLimited(&b, long)
	appendLimited(&b, long)
	if b.Len() > 8192 {
		t.Fatalf("tail exceeded cap: %d bytes", b.Len())
	}
}

func TestLocateOutput_PrefersExtensionSwappedAudioFile(t *testing.T) {
	dir := t.TempDir()
	mp3 := filepath.Join(dir, "My Song.mp3")
	if err := os.WriteFile(mp3, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c := NewClient()
	got, err := c.locateOutput(filepath.Join(dir, "My Song.webm"), RetrieveOptions{
		URL:         "https://youtu.be/aaaaaaaaaaa",
		StagingDir:  dir,
		Title:       "My Song",
		AudioFormat: "mp3",
	})
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if got != mp3 {
		t.Fatalf("got %q want %q", got, mp3)
	}
}

func TestLocateOutput_FallsBackToStagingScan(t *testing.T) {
	dir := t.TempDir()
	// yt-dlp applied its own filename sanitation, so the reported path
	// does not exist; the scan matches on the title instead. Partials
	// are never picked up.
	if err := os.WriteFile(filepath.Join(dir, "My Song.mp3.part"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}
	final := filepath.Join(dir, "My Song.mp3")
	if err := os.WriteFile(final, []byte("x"), 0o644); err != nil {
		t.Fatalf("write final: %v", err)
	}

	c := NewClient()
	got, err := c.locateOutput("", RetrieveOptions{
		URL:         "https://youtu.be/aaaaaaaaaaa",
		StagingDir:  dir,
		Title:       "My Song",
		AudioFormat: "mp3",
	})
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if got != final {
		t.Fatalf("got %q want %q", got, final)
	}
}

func TestLocateOutput_ReportsMissingFile(t *testing.T) {
	c := NewClient()
	if _, err := c.locateOutput("", RetrieveOptions{
		URL:        "https://youtu.be/aaaaaaaaaaa",
		StagingDir: t.TempDir(),
		Title:      "Ghost",
	}); err == nil {
		t.Fatalf("expected error for missing download")
	}
}
