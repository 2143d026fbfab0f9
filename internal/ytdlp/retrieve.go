package ytdlp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// ProgressUpdate is one parsed retrieval progress event.
type ProgressUpdate struct {
	PercentStr         string
	TotalBytes         int64
	TotalEstimateBytes int64
	Speed              string
}

// RetrieveOptions describes one retrieval job. The downloaded file lands in
// StagingDir; the caller relocates it afterwards.
type RetrieveOptions struct {
	URL          string
	StagingDir   string
	Title        string // resolved title, used to locate the output on disk
	Video        bool
	VideoHeight  int    // resolution cap, e.g. 480
	AudioFormat  string // e.g. "mp3", ignored when Video
	AudioBitrate string // e.g. "192k", ignored when Video
	Progress     func(ProgressUpdate)
}

// Retrieve downloads one item into the staging directory and returns the
// resolved local path.
func (c *Client) Retrieve(ctx context.Context, opts RetrieveOptions) (string, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return "", fmt.Errorf("url is required")
	}
	if strings.TrimSpace(opts.StagingDir) == "" {
		return "", fmt.Errorf("staging directory is required")
	}

	args := []string{
		"--newline",
		"--no-playlist",
		"-P", opts.StagingDir,
		"-o", "%(title)s.%(ext)s",
	}
	if opts.Video {
		args = append(args,
			"-f", videoFormatSelector(opts.VideoHeight),
			"--merge-output-format", "mp4",
		)
	} else {
		args = append(args,
			"-f", "ba/b",
			"-x",
			"--audio-format", opts.AudioFormat,
			"--audio-quality", audioQualityArg(opts.AudioBitrate),
		)
	}
	args = append(args, opts.URL)

	finalPath, err := c.runRetrieve(ctx, args, opts.Progress)
	if err != nil {
		return "", err
	}
	return c.locateOutput(finalPath, opts)
}

func videoFormatSelector(height int) string {
	if height <= 0 {
		return "bv*+ba/b"
	}
	return fmt.Sprintf("bv*[height<=%d]+ba/b[height<=%d]", height, height)
}

// audioQualityArg converts "192k" into yt-dlp's "192K" bitrate form.
func audioQualityArg(bitrate string) string {
	b := strings.TrimSpace(bitrate)
	if b == "" {
		return "192K"
	}
	return strings.ToUpper(b)
}

// runRetrieve executes yt-dlp, scanning both pipes line-by-line: progress
// lines feed the callback, destination lines pinpoint the output file, and
// a bounded tail of output is kept for error reporting.
func (c *Client) runRetrieve(ctx context.Context, args []string, onProgress func(ProgressUpdate)) (string, error) {
	cmd := exec.CommandContext(ctx, c.binary, args...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("setup stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start yt-dlp: %w", err)
	}

	var mu sync.Mutex
	var tail strings.Builder
	finalPath := ""

	var wg sync.WaitGroup
	read := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)
		scanner.Split(splitByNewlineOrCR)
		for scanner.Scan() {
			line := scanner.Text()

			mu.Lock()
			appendLimited(&tail, line)
			if p, ok := parseDestination(line); ok {
				finalPath = p
			}
			mu.Unlock()

			if onProgress != nil {
				if u, ok := parseProgressLine(line); ok {
					onProgress(u)
				}
			}
		}
	}

	wg.Add(2)
	go read(stdoutPipe)
	go read(stderrPipe)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		mu.Lock()
		defer mu.Unlock()
		return "", fmt.Errorf("yt-dlp failed: %w\n%s", err, strings.TrimSpace(tail.String()))
	}

	mu.Lock()
	defer mu.Unlock()
	return finalPath, nil
}

// locateOutput verifies the path reported by yt-dlp, falling back to a
// staging scan matched against the cleaned title when the reported path is
// absent (extraction can rename the file after the last destination line).
func (c *Client) locateOutput(reported string, opts RetrieveOptions) (string, error) {
	if !opts.Video && reported != "" {
		// Audio extraction replaces the container extension.
		ext := filepath.Ext(reported)
		candidate := strings.TrimSuffix(reported, ext) + "." + opts.AudioFormat
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	if reported != "" {
		if _, err := os.Stat(reported); err == nil {
			return reported, nil
		}
	}

	if p, ok := scanStagingForTitle(opts.StagingDir, opts.Title); ok {
		return p, nil
	}
	return "", fmt.Errorf("downloaded file not found in %s for %s", opts.StagingDir, opts.URL)
}

func scanStagingForTitle(dir, title string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(title))
	if want == "" {
		return "", false
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, ".part") || strings.HasSuffix(lower, ".ytdl") {
			continue
		}
		base := strings.TrimSuffix(lower, strings.ToLower(filepath.Ext(name)))
		if strings.Contains(base, want) || strings.Contains(want, base) {
			return filepath.Join(dir, name), true
		}
	}
	return "", false
}

func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func appendLimited(b *strings.Builder, line string) {
	const maxKeep = 8192
	if b.Len() >= maxKeep {
		return
	}
	toWrite := line + "\n"
	if remain := maxKeep - b.Len(); len(toWrite) > remain {
		toWrite = toWrite[:remain]
	}
	b.WriteString(toWrite)
}
