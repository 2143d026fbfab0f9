package convert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"yt-media-downloader/internal/model"
	"yt-media-downloader/internal/progress"
)

// Stage converts successful fetch outcomes into the target audio format at
// bounded concurrency. Non-success outcomes pass through untouched, as do
// files already in the target format. Workers == 0 selects sequential
// execution with input-order results.
type Stage struct {
	Tracker *progress.Tracker
	Workers int
	Notify  func(msg string)

	// FFmpeg overrides the transcoder binary; tests point it at a stub.
	FFmpeg string
}

// BatchConvert partitions outcomes into conversion candidates and
// passthroughs, converts the candidates, and returns the union. Order is
// not guaranteed when Workers > 0.
func (s *Stage) BatchConvert(ctx context.Context, outcomes []model.Outcome, format string, quality model.Quality) ([]model.Outcome, error) {
	var candidates []model.Outcome
	var passthrough []model.Outcome
	for _, oc := range outcomes {
		if oc.Status == model.StatusSuccess {
			candidates = append(candidates, oc)
		} else {
			passthrough = append(passthrough, oc)
		}
	}
	if len(candidates) == 0 {
		return outcomes, nil
	}
	s.notify(fmt.Sprintf("Processing %d conversions...", len(candidates)))

	converted, err := s.runJobs(ctx, candidates, format, quality)
	return append(converted, passthrough...), err
}

func (s *Stage) runJobs(ctx context.Context, candidates []model.Outcome, format string, quality model.Quality) ([]model.Outcome, error) {
	if s.Workers <= 0 {
		out := make([]model.Outcome, 0, len(candidates))
		for _, oc := range candidates {
			if ctx.Err() != nil {
				out = append(out, oc)
				continue
			}
			converted, err := s.convertOne(ctx, oc, format, quality)
			if err != nil {
				return out, err
			}
			out = append(out, converted)
		}
		return out, nil
	}

	jobCh := make(chan model.Outcome)
	var (
		mu       sync.Mutex
		out      []model.Outcome
		wg       sync.WaitGroup
		stopAll  atomic.Bool
		fatalErr atomic.Value
	)
	setFatal := func(err error) {
		if fatalErr.Load() == nil {
			fatalErr.Store(err)
		}
		stopAll.Store(true)
	}

	for w := 0; w < s.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for oc := range jobCh {
				if stopAll.Load() {
					mu.Lock()
					out = append(out, oc)
					mu.Unlock()
					continue
				}
				converted, err := s.convertOne(ctx, oc, format, quality)
				if err != nil {
					setFatal(err)
					continue
				}
				mu.Lock()
				out = append(out, converted)
				mu.Unlock()
			}
		}()
	}

	for _, oc := range candidates {
		jobCh <- oc
	}
	close(jobCh)
	wg.Wait()

	if err, ok := fatalErr.Load().(error); ok {
		return out, err
	}
	return out, nil
}

// convertOne transcodes a single file, monitoring the subprocess's
// diagnostic stream for progress. A failed conversion flips the outcome to
// an error and leaves the original file in place; only a confirmed success
// deletes the source.
func (s *Stage) convertOne(ctx context.Context, oc model.Outcome, format string, quality model.Quality) (model.Outcome, error) {
	input := oc.FilePath
	if input == "" {
		return errorOutcome(oc, "conversion error: input file does not exist"), nil
	}
	if _, err := os.Stat(input); err != nil {
		return errorOutcome(oc, "conversion error: input file does not exist"), nil
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(input)), ".")
	if ext == strings.ToLower(format) {
		// Idempotent short-circuit: already in the target format.
		return oc, nil
	}

	taskID, err := s.Tracker.Register("Converting: " + filepath.Base(input))
	if err != nil {
		return model.Outcome{}, err
	}
	defer s.Tracker.Complete(taskID)

	output := strings.TrimSuffix(input, filepath.Ext(input)) + "." + format
	args := buildFFmpegArgs(input, quality.AudioBitrate(), format, true, output)
	cmd := exec.CommandContext(ctx, s.binary(), args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errorOutcome(oc, "conversion error: "+err.Error()), nil
	}
	if err := cmd.Start(); err != nil {
		return errorOutcome(oc, "conversion error: "+err.Error()), nil
	}

	// Inherently sequential per job: the percent position only makes sense
	// read in stream order.
	scanProgress(stderr, func(pct float64) {
		s.Tracker.SetPercent(taskID, pct)
	})

	if err := cmd.Wait(); err != nil {
		_ = os.Remove(output)
		code := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		convErr := &ExitError{Code: code}
		return errorOutcome(oc, "conversion error: "+convErr.Error()), nil
	}

	if _, err := os.Stat(output); err != nil {
		return errorOutcome(oc, "conversion error: converted file not found: "+output), nil
	}
	if err := os.Remove(input); err != nil {
		s.notify("could not remove original file " + input + ": " + err.Error())
	}

	s.Tracker.SetPercent(taskID, 100)
	oc.FilePath = output
	return oc, nil
}

func (s *Stage) binary() string {
	if s.FFmpeg != "" {
		return s.FFmpeg
	}
	return ffmpegBinary
}

func (s *Stage) notify(msg string) {
	if s.Notify != nil {
		s.Notify(msg)
	}
}

func errorOutcome(oc model.Outcome, errText string) model.Outcome {
	oc.Status = model.StatusError
	oc.Err = errText
	return oc
}
