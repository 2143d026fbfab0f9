package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"yt-media-downloader/internal/model"
)

const (
	appName = "yt-media-downloader"
	version = "1.2.0"

	maxParallel = 8
)

type options struct {
	Source           string
	Video            bool
	Format           string
	Quality          model.Quality
	ParallelDownload int
	ParallelConvert  int
	OutputDir        string
	Force            bool
	Verbose          bool
	Progress         bool
}

// Run parses args and executes a download run. It returns an error for
// invalid usage and for fatal run failures; per-item failures are reported
// in the summary instead.
func Run(args []string, stdout, stderr io.Writer) error {
	opts, done, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}
	if done {
		return nil
	}
	return runDownload(context.Background(), opts, stdout, stderr)
}

func parseArgs(args []string, stderr io.Writer) (options, bool, error) {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		video            = fs.Bool("video", false, "keep the best available video instead of extracting audio")
		format           = fs.String("format", "mp3", "audio output format (mp3, wav, opus, m4a)")
		quality          = fs.String("quality", "medium", "quality preset (low, medium, high)")
		parallelDownload = fs.Int("parallel-download", 3, "concurrent downloads, 0 for sequential (max 8)")
		parallelConvert  = fs.Int("parallel-convert", 1, "concurrent conversions, 0 for sequential (max 8)")
		outputDir        = fs.String("output-dir", "downloads", "directory for finished files")
		force            = fs.Bool("force", false, "download even when a matching file already exists")
		verbose          = fs.Bool("verbose", false, "log extra diagnostics to stderr")
		progress         = fs.Bool("progress", true, "render live per-item progress bars")
		showVersion      = fs.Bool("version", false, "print the version and exit")
	)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] <video-or-playlist-url>\n\nFlags:\n", appName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return options{}, false, err
	}
	if *showVersion {
		fmt.Fprintf(stderr, "%s %s\n", appName, version)
		return options{}, true, nil
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return options{}, false, fmt.Errorf("expected exactly one source URL, got %d", fs.NArg())
	}

	q, err := model.ParseQuality(*quality)
	if err != nil {
		return options{}, false, err
	}
	f, err := model.ParseAudioFormat(*format)
	if err != nil {
		return options{}, false, err
	}
	if err := checkParallel("parallel-download", *parallelDownload); err != nil {
		return options{}, false, err
	}
	if err := checkParallel("parallel-convert", *parallelConvert); err != nil {
		return options{}, false, err
	}
	if strings.TrimSpace(*outputDir) == "" {
		return options{}, false, fmt.Errorf("output-dir must not be empty")
	}

	return options{
		Source:           fs.Arg(0),
		Video:            *video,
		Format:           f,
		Quality:          q,
		ParallelDownload: *parallelDownload,
		ParallelConvert:  *parallelConvert,
		OutputDir:        *outputDir,
		Force:            *force,
		Verbose:          *verbose,
		Progress:         *progress,
	}, false, nil
}

func checkParallel(name string, n int) error {
	if n < 0 || n > maxParallel {
		return fmt.Errorf("%s must be between 0 and %d, got %d", name, maxParallel, n)
	}
	return nil
}
