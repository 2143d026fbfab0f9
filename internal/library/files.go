package library

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Manager owns the output and staging directories. Retrieval jobs write
// into staging; completed files are relocated into the output directory,
// which invalidates the existence index.
type Manager struct {
	outputDir  string
	stagingDir string
	index      *Index
}

func NewManager(outputDir, stagingDir string) (*Manager, error) {
	if err := Mkdir(outputDir); err != nil {
		return nil, err
	}
	if err := Mkdir(stagingDir); err != nil {
		return nil, err
	}
	return &Manager{
		outputDir:  outputDir,
		stagingDir: stagingDir,
		index:      NewIndex(outputDir),
	}, nil
}

func (m *Manager) OutputDir() string  { return m.outputDir }
func (m *Manager) StagingDir() string { return m.stagingDir }

// Existing reports whether a file for title (optionally with the given
// extension) is already present in the output directory.
func (m *Manager) Existing(title, ext string) (string, bool) {
	return m.index.Lookup(title, ext)
}

// MoveToOutput relocates a staged file into the output directory, replacing
// any same-named file, and invalidates the existence index.
func (m *Manager) MoveToOutput(src string) (string, error) {
	dest := filepath.Join(m.outputDir, filepath.Base(src))
	if err := moveFile(src, dest); err != nil {
		return "", err
	}
	m.index.Invalidate()
	return dest, nil
}

// CleanupStaging deletes staged files and then the staging directory itself.
// Best effort: a file another process holds open is simply left behind.
func (m *Manager) CleanupStaging() {
	entries, err := os.ReadDir(m.stagingDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		_ = os.Remove(filepath.Join(m.stagingDir, e.Name()))
	}
	_ = os.Remove(m.stagingDir)
}

func moveFile(src, dest string) error {
	if dir := filepath.Dir(dest); dir != "" {
		if err := Mkdir(dir); err != nil {
			return err
		}
	}
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replace %s: %w", dest, err)
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	// Rename fails across filesystems; fall back to copy + remove.
	return copyAndRemove(src, dest)
}

func copyAndRemove(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("copy %s to %s: %w", src, dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dest, err)
	}
	return os.Remove(src)
}
