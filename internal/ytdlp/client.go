package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrMissingDependency marks an absent external binary (yt-dlp or ffmpeg).
var ErrMissingDependency = errors.New("missing dependency")

const defaultBinary = "yt-dlp"

// Metadata is the remote description of a single item.
type Metadata struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Member is one entry of a flattened collection listing.
type Member struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Client drives the yt-dlp binary. All methods are safe for concurrent use;
// each call spawns its own subprocess.
type Client struct {
	binary string
}

func NewClient() *Client {
	return &Client{binary: defaultBinary}
}

// CheckDependencies verifies yt-dlp and ffmpeg are on PATH. ffmpeg is needed
// for stream merging and audio extraction, not only for the transcode stage.
func CheckDependencies() error {
	if _, err := exec.LookPath(defaultBinary); err != nil {
		return fmt.Errorf("%w: yt-dlp is not installed or not on PATH", ErrMissingDependency)
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("%w: ffmpeg is not installed or not on PATH", ErrMissingDependency)
	}
	return nil
}

// ResolveMetadata fetches the remote title for one item without downloading.
func (c *Client) ResolveMetadata(ctx context.Context, url string) (Metadata, error) {
	if strings.TrimSpace(url) == "" {
		return Metadata{}, fmt.Errorf("url is required")
	}
	out, err := c.dumpJSON(ctx, []string{"-J", "--skip-download", "--no-playlist", url})
	if err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	if err := json.Unmarshal(out, &meta); err != nil {
		return Metadata{}, fmt.Errorf("parse metadata for %s: %w", url, err)
	}
	if meta.Title == "" {
		return Metadata{}, fmt.Errorf("no title in metadata for %s", url)
	}
	return meta, nil
}

// ListMembers expands a collection into its member items via a flattened
// listing (one round trip, no per-member extraction).
func (c *Client) ListMembers(ctx context.Context, url string) ([]Member, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("url is required")
	}
	out, err := c.dumpJSON(ctx, []string{"--flat-playlist", "-J", url})
	if err != nil {
		return nil, err
	}

	var listing struct {
		Entries []Member `json:"entries"`
	}
	if err := json.Unmarshal(out, &listing); err != nil {
		return nil, fmt.Errorf("parse collection listing for %s: %w", url, err)
	}

	members := make([]Member, 0, len(listing.Entries))
	for _, e := range listing.Entries {
		if e.ID == "" {
			continue
		}
		if e.URL == "" {
			e.URL = "https://www.youtube.com/watch?v=" + e.ID
		}
		members = append(members, e)
	}
	return members, nil
}

func (c *Client) dumpJSON(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("yt-dlp returned empty output")
	}
	return stdout.Bytes(), nil
}
