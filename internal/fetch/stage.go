package fetch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"yt-media-downloader/internal/library"
	"yt-media-downloader/internal/model"
	"yt-media-downloader/internal/progress"
	"yt-media-downloader/internal/ytdlp"
)

// Extractor is the remote-content collaborator consumed by the stage.
type Extractor interface {
	ResolveMetadata(ctx context.Context, url string) (ytdlp.Metadata, error)
	ListMembers(ctx context.Context, url string) ([]ytdlp.Member, error)
	Retrieve(ctx context.Context, opts ytdlp.RetrieveOptions) (string, error)
}

// Options are the caller-chosen download parameters for one run.
type Options struct {
	Format  string // target audio format, ignored when Video
	Quality model.Quality
	Video   bool
	Force   bool
}

// Stage resolves a source into retrieval jobs, runs them at bounded
// concurrency, and produces one Outcome per item. Workers == 0 selects
// sequential execution with input-order results.
type Stage struct {
	Extractor Extractor
	Library   *library.Manager
	Tracker   *progress.Tracker
	Workers   int
	Notify    func(msg string)
}

type retrievalJob struct {
	item model.WorkItem
}

// Process runs the fetch stage for one source. Per-item failures become
// error Outcomes; the returned error is reserved for whole-stage conditions
// (invalid source, empty collection, progress-contract violations).
func (s *Stage) Process(ctx context.Context, source string, opts Options) ([]model.Outcome, error) {
	kind, ok := Classify(source)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSource, source)
	}
	if kind == model.KindCollection {
		return s.processCollection(ctx, source, opts)
	}
	return s.processSingle(ctx, source, opts)
}

func (s *Stage) processSingle(ctx context.Context, source string, opts Options) ([]model.Outcome, error) {
	meta, err := s.Extractor.ResolveMetadata(ctx, source)
	if err != nil {
		return []model.Outcome{model.ErrorOutcome(source, "", "could not retrieve item metadata")}, nil
	}

	if !opts.Force {
		if path, found := s.Library.Existing(meta.Title, s.expectedExt(opts)); found {
			s.notify(fmt.Sprintf("Skipping download: %q already exists as %q", meta.Title, filepath.Base(path)))
			return []model.Outcome{model.SkippedOutcome(source, path, meta.Title)}, nil
		}
	}

	job := retrievalJob{item: model.WorkItem{SourceID: source, Kind: model.KindSingle, Title: meta.Title}}
	oc, err := s.download(ctx, job, opts)
	if err != nil {
		return nil, err
	}
	return []model.Outcome{oc}, nil
}

func (s *Stage) processCollection(ctx context.Context, source string, opts Options) ([]model.Outcome, error) {
	members, err := s.Extractor.ListMembers(ctx, source)
	if err != nil {
		s.notify("Could not list collection members: " + err.Error())
		return nil, ErrNoMembers
	}
	if len(members) == 0 {
		return nil, ErrNoMembers
	}
	s.notify(fmt.Sprintf("Found %d items in collection", len(members)))

	var skipped []model.Outcome
	var jobs []retrievalJob

	for _, m := range members {
		if ctx.Err() != nil {
			break
		}
		item := model.WorkItem{SourceID: m.URL, Kind: model.KindSingle, Title: m.Title}

		meta, err := s.Extractor.ResolveMetadata(ctx, m.URL)
		if err != nil {
			// Best effort: a member whose metadata cannot be fetched is
			// still scheduled, with whatever title the flat listing gave.
			jobs = append(jobs, retrievalJob{item: item})
			continue
		}
		item.Title = meta.Title

		if !opts.Force {
			if path, found := s.Library.Existing(meta.Title, s.expectedExt(opts)); found {
				skipped = append(skipped, model.SkippedOutcome(m.URL, path, meta.Title))
				continue
			}
		}
		jobs = append(jobs, retrievalJob{item: item})
	}

	if len(skipped) > 0 {
		s.notify(fmt.Sprintf("Skipping %d items that already exist", len(skipped)))
	}
	if len(jobs) == 0 {
		s.notify("All items in collection already exist. Nothing to download.")
		return skipped, nil
	}
	s.notify(fmt.Sprintf("Downloading %d items...", len(jobs)))

	downloaded, err := s.runJobs(ctx, jobs, opts)
	return append(skipped, downloaded...), err
}

// runJobs executes retrieval jobs sequentially (Workers == 0, input order
// preserved) or through a bounded worker pool (completion order).
func (s *Stage) runJobs(ctx context.Context, jobs []retrievalJob, opts Options) ([]model.Outcome, error) {
	if s.Workers <= 0 {
		out := make([]model.Outcome, 0, len(jobs))
		for _, j := range jobs {
			if ctx.Err() != nil {
				break
			}
			oc, err := s.download(ctx, j, opts)
			if err != nil {
				return out, err
			}
			out = append(out, oc)
		}
		return out, nil
	}

	jobCh := make(chan retrievalJob)
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
			for j := range jobCh {
				if stopAll.Load() {
					continue
				}
				oc, err := s.download(ctx, j, opts)
				if err != nil {
					setFatal(err)
					continue
				}
				mu.Lock()
				out = append(out, oc)
				mu.Unlock()
			}
		}()
	}

	for _, j := range jobs {
		if ctx.Err() != nil || stopAll.Load() {
			break
		}
		jobCh <- j
	}
	close(jobCh)
	wg.Wait()

	if err, ok := fatalErr.Load().(error); ok {
		return out, err
	}
	return out, nil
}

// download runs one retrieval job. Every per-item failure is converted into
// an error Outcome here, at the job boundary; the returned error is only
// non-nil for the progress-surface contract violation.
func (s *Stage) download(ctx context.Context, j retrievalJob, opts Options) (model.Outcome, error) {
	title := j.item.Title
	taskID, err := s.Tracker.Register("Downloading: " + displayTitle(j.item))
	if err != nil {
		return model.Outcome{}, err
	}
	defer s.Tracker.Complete(taskID)

	staged, err := s.Extractor.Retrieve(ctx, ytdlp.RetrieveOptions{
		URL:          j.item.SourceID,
		StagingDir:   s.Library.StagingDir(),
		Title:        title,
		Video:        opts.Video,
		VideoHeight:  opts.Quality.VideoHeight(),
		AudioFormat:  opts.Format,
		AudioBitrate: opts.Quality.AudioBitrate(),
		Progress: func(u ytdlp.ProgressUpdate) {
			s.Tracker.Apply(taskID, progress.Update{
				PercentStr:    u.PercentStr,
				Total:         u.TotalBytes,
				TotalEstimate: u.TotalEstimateBytes,
				Speed:         u.Speed,
			})
		},
	})
	if err != nil {
		return model.ErrorOutcome(j.item.SourceID, title, err.Error()), nil
	}

	dest, err := s.Library.MoveToOutput(staged)
	if err != nil {
		return model.ErrorOutcome(j.item.SourceID, title, err.Error()), nil
	}

	if title == "" {
		base := filepath.Base(dest)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	s.Tracker.SetPercent(taskID, 100)
	return model.SuccessOutcome(j.item.SourceID, dest, title), nil
}

func (s *Stage) expectedExt(opts Options) string {
	if opts.Video {
		return "mp4"
	}
	return opts.Format
}

func (s *Stage) notify(msg string) {
	if s.Notify != nil {
		s.Notify(msg)
	}
}

func displayTitle(item model.WorkItem) string {
	if item.Title != "" {
		return item.Title
	}
	return item.SourceID
}
