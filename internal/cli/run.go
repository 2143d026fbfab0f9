package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yt-media-downloader/internal/convert"
	"yt-media-downloader/internal/fetch"
	"yt-media-downloader/internal/library"
	"yt-media-downloader/internal/model"
	"yt-media-downloader/internal/progress"
	"yt-media-downloader/internal/ytdlp"
)

// stagingDirName holds in-flight downloads; it is emptied on every exit path.
const stagingDirName = "temp_downloads"

var errCancelled = errors.New("operation cancelled")

func runDownload(baseCtx context.Context, opts options, stdout, stderr io.Writer) error {
	logger := newLogger(opts.Verbose, stderr)

	kind, ok := fetch.Classify(opts.Source)
	if !ok {
		return fmt.Errorf("%w: %s", fetch.ErrInvalidSource, opts.Source)
	}
	if err := ytdlp.CheckDependencies(); err != nil {
		return err
	}

	mgr, err := library.NewManager(opts.OutputDir, stagingDirName)
	if err != nil {
		return err
	}
	lock, err := library.AcquireOutputLock(opts.OutputDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Printf("release output lock: %v", err)
		}
	}()
	defer mgr.CleanupStaging()

	ctx, stopSignals := signal.NotifyContext(baseCtx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	notify := func(msg string) { fmt.Fprintln(stdout, msg) }
	var display *progress.Display
	var tracker *progress.Tracker
	if opts.Progress {
		display = progress.NewDisplay(stdout)
		display.Start()
		defer display.Stop()
		tracker = progress.NewTracker(display, progress.DefaultMaxVisible)
		notify = func(msg string) { display.Println(msg) }
	}
	stopDisplay := func() {
		if display != nil {
			display.Stop()
		}
	}

	printBanner(opts, kind, notify)
	logger.Printf("source=%s kind=%s format=%s quality=%s video=%t force=%t workers=%d/%d",
		opts.Source, kind, opts.Format, opts.Quality, opts.Video, opts.Force,
		opts.ParallelDownload, opts.ParallelConvert)

	start := time.Now()

	fetchStage := &fetch.Stage{
		Extractor: ytdlp.NewClient(),
		Library:   mgr,
		Tracker:   tracker,
		Workers:   opts.ParallelDownload,
		Notify:    notify,
	}
	results, err := fetchStage.Process(ctx, opts.Source, fetch.Options{
		Format:  opts.Format,
		Quality: opts.Quality,
		Video:   opts.Video,
		Force:   opts.Force,
	})
	switch {
	case errors.Is(err, fetch.ErrNoMembers):
		notify(fmt.Sprintf("Nothing to download from %s", opts.Source))
	case err != nil:
		stopDisplay()
		return err
	}

	if ctx.Err() != nil {
		stopDisplay()
		return errCancelled
	}

	if !opts.Video && anySuccess(results) {
		convStage := &convert.Stage{
			Tracker: tracker,
			Workers: opts.ParallelConvert,
			Notify:  notify,
		}
		results, err = convStage.BatchConvert(ctx, results, opts.Format, opts.Quality)
		if err != nil {
			stopDisplay()
			return err
		}
		if ctx.Err() != nil {
			stopDisplay()
			return errCancelled
		}
	}

	stopDisplay()
	printSummary(stdout, results)
	fmt.Fprintf(stdout, "\nTotal execution time: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func anySuccess(results []model.Outcome) bool {
	for _, oc := range results {
		if oc.Status == model.StatusSuccess {
			return true
		}
	}
	return false
}

func newLogger(verbose bool, stderr io.Writer) *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(stderr, appName+" ", log.LstdFlags)
}
