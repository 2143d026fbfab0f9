package library

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCleanFileName_StripsForbiddenCharacters(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`a/b\c*d?e:f"g<h>i|j`, "abcdefghij"},
		{"plain title", "plain title"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := CleanFileName(tc.in); got != tc.want {
			t.Fatalf("clean %q: got %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestLookup_MatchesNormalizedTitle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "My Song.mp3")

	idx := NewIndex(dir)

	if _, found := idx.Lookup("my song", "mp3"); !found {
		t.Fatalf("expected case-insensitive title match")
	}
	if _, found := idx.Lookup("My Song", ".MP3"); !found {
		t.Fatalf("expected extension match regardless of dot and case")
	}
	if _, found := idx.Lookup("My Song", "wav"); found {
		t.Fatalf("did not expect match for a different extension")
	}
	if _, found := idx.Lookup("Other Song", "mp3"); found {
		t.Fatalf("did not expect match for an unknown title")
	}
}

func TestLookup_NormalizesForbiddenCharactersInQuery(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ACDC Thunderstruck.mp3")

	idx := NewIndex(dir)
	// A raw metadata title still carrying unsafe characters matches the
	// file written under its cleaned name.
	if _, found := idx.Lookup(`AC/DC Thunderstruck`, "mp3"); !found {
		t.Fatalf("expected cleaned query title to match")
	}
}

func TestLookup_EmptyExtensionMatchesAnyFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Talk.mp4")

	idx := NewIndex(dir)
	if _, found := idx.Lookup("Talk", ""); !found {
		t.Fatalf("expected match with empty extension")
	}
}

func TestLookup_CachesUntilInvalidated(t *testing.T) {
	dir := t.TempDir()
	idx := NewIndex(dir)

	if _, found := idx.Lookup("Late Arrival", "mp3"); found {
		t.Fatalf("unexpected match in empty directory")
	}

	// The file appears after the first scan; a lookup without
	// invalidation must not see it.
	writeFile(t, dir, "Late Arrival.mp3")
	if _, found := idx.Lookup("Late Arrival", "mp3"); found {
		t.Fatalf("expected stale cache to hide the new file")
	}

	idx.Invalidate()
	if _, found := idx.Lookup("Late Arrival", "mp3"); !found {
		t.Fatalf("expected rebuild after invalidation to find the file")
	}
}
