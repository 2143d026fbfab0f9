package library

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

var unsafeFileChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// CleanFileName strips characters that are unsafe in filenames.
func CleanFileName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "")
}

// indexKey normalizes a title for lookup: unsafe characters stripped,
// case folded.
func indexKey(title string) string {
	return strings.ToLower(CleanFileName(title))
}

type indexEntry struct {
	Name string
	Ext  string // lowercase, no leading dot
	Path string
}

// Index is a cached view of the output directory keyed by normalized title.
// One scan amortizes existence checks across a whole batch; Invalidate bumps
// a generation counter and the next Lookup rebuilds, so a move becomes
// visible to every subsequent query regardless of which worker issued it.
type Index struct {
	mu       sync.Mutex
	dir      string
	entries  map[string][]indexEntry
	gen      uint64
	builtGen uint64
	built    bool
}

func NewIndex(dir string) *Index {
	return &Index{dir: dir}
}

// Lookup returns the path of a file whose normalized basename matches title.
// When ext is non-empty only a file with that extension (case-insensitive)
// matches; otherwise the first file in the group is returned.
func (ix *Index) Lookup(title, ext string) (string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.built || ix.builtGen != ix.gen {
		ix.rebuildLocked()
	}

	group := ix.entries[indexKey(title)]
	if len(group) == 0 {
		return "", false
	}
	if ext == "" {
		return group[0].Path, true
	}
	want := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, e := range group {
		if e.Ext == want {
			return e.Path, true
		}
	}
	return "", false
}

// Invalidate marks the cache stale. The entries themselves are kept until
// the next Lookup rebuilds, so a reader holding earlier results is
// unaffected; callers must not assume consistency until they query again.
func (ix *Index) Invalidate() {
	ix.mu.Lock()
	ix.gen++
	ix.mu.Unlock()
}

func (ix *Index) rebuildLocked() {
	goal := ix.gen
	entries := make(map[string][]indexEntry)

	dirEntries, err := os.ReadDir(ix.dir)
	if err != nil {
		// Missing or unreadable output dir means nothing exists yet.
		ix.entries = entries
		ix.built = true
		ix.builtGen = goal
		return
	}

	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
		base := strings.TrimSuffix(name, filepath.Ext(name))
		key := indexKey(base)
		entries[key] = append(entries[key], indexEntry{
			Name: name,
			Ext:  ext,
			Path: filepath.Join(ix.dir, name),
		})
	}

	ix.entries = entries
	ix.built = true
	ix.builtGen = goal
}
