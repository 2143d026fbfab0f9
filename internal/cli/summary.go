package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"yt-media-downloader/internal/model"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func printBanner(opts options, kind model.Kind, notify func(string)) {
	notify(headerStyle.Render(fmt.Sprintf("%s %s", appName, version)))
	mode := fmt.Sprintf("audio (%s, %s quality)", opts.Format, opts.Quality)
	if opts.Video {
		mode = fmt.Sprintf("video (up to %dp)", opts.Quality.VideoHeight())
	}
	notify(mutedStyle.Render(fmt.Sprintf("%s download, output: %s", kind, opts.OutputDir)))
	notify(mutedStyle.Render("mode: " + mode))
}

func printSummary(w io.Writer, results []model.Outcome) {
	var succeeded, skipped, failed []model.Outcome
	for _, oc := range results {
		switch oc.Status {
		case model.StatusSuccess:
			succeeded = append(succeeded, oc)
		case model.StatusSkipped:
			skipped = append(skipped, oc)
		case model.StatusError:
			failed = append(failed, oc)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf(
		"Done: %d succeeded, %d skipped, %d failed", len(succeeded), len(skipped), len(failed))))

	for _, oc := range succeeded {
		fmt.Fprintln(w, successStyle.Render("  ✓ "+oc.DisplayName()), mutedStyle.Render(oc.FilePath))
	}
	for _, oc := range skipped {
		fmt.Fprintln(w, skippedStyle.Render("  - "+oc.DisplayName()), mutedStyle.Render("(already exists)"))
	}
	// Error text only, no stack traces.
	for _, oc := range failed {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("  ✗ %s: %s", oc.DisplayName(), oc.Err)))
	}
}
