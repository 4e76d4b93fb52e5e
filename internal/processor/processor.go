// Package processor runs the cut-and-shuffle pipeline end to end: load the
// timeline, cut clips into segments, shuffle them across sources and write a
// rebuilt timeline.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/agleyzer/clipshuffle/internal/fileutil"
	"github.com/agleyzer/clipshuffle/internal/logging"
	"github.com/agleyzer/clipshuffle/internal/playlist"
	"github.com/agleyzer/clipshuffle/internal/rebuild"
	"github.com/agleyzer/clipshuffle/internal/segment"
	"github.com/agleyzer/clipshuffle/internal/shuffle"
	"github.com/agleyzer/clipshuffle/internal/timeline"
)

// Options configures one run.
type Options struct {
	InputPath  string
	OutputPath string

	// PlaylistPath, when set, also writes an HLS preview of the shuffled order.
	PlaylistPath string

	SegmentSeconds int
	DefaultFPS     int
	AttemptFactor  float64

	// Rand drives the shuffle. Nil uses a clock-seeded generator.
	Rand shuffle.Rand
}

// TrackReport counts the clips found on one input track.
type TrackReport struct {
	Index int
	Clips int
}

// Report summarizes a completed run.
type Report struct {
	Input    string
	Output   string
	Playlist string

	FPS          int
	NTSC         bool
	FPSDefaulted bool

	Tracks   []TrackReport
	Clips    int
	Segments int // Segments cut before shuffling.
	Groups   int
	Placed   int // Segments on the output timeline.
	Relaxed  int // Placements made with the adjacency rule lifted.
	Adjacent int // Same-source neighbours counted in the placed order.
	Attempts int

	DurationFrames  int
	DurationSeconds float64

	Dropped []segment.Drop

	Bytes         int64
	PlaylistBytes int64
}

// DroppedBy counts drops with the given reason.
func (r *Report) DroppedBy(reason segment.Reason) int {
	n := 0
	for _, d := range r.Dropped {
		if d.Reason == reason {
			n++
		}
	}
	return n
}

func (o Options) validate() error {
	if o.InputPath == "" {
		return errors.New("input path is required")
	}
	if o.OutputPath == "" {
		return errors.New("output path is required")
	}
	if o.SegmentSeconds <= 0 {
		return fmt.Errorf("segment seconds must be positive, got %d", o.SegmentSeconds)
	}
	if o.DefaultFPS <= 0 {
		return fmt.Errorf("default fps must be positive, got %d", o.DefaultFPS)
	}
	if o.AttemptFactor <= 0 {
		return fmt.Errorf("attempt factor must be positive, got %g", o.AttemptFactor)
	}
	return nil
}

// Run executes the pipeline. Nothing is written when loading, cutting or
// shuffling fails, or when ctx is cancelled before the write stage.
func Run(ctx context.Context, opts Options, logger *slog.Logger) (*Report, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := fileutil.CheckDistinct(opts.InputPath, opts.OutputPath); err != nil {
		return nil, err
	}
	if opts.PlaylistPath != "" {
		for _, other := range []string{opts.InputPath, opts.OutputPath} {
			if err := fileutil.CheckDistinct(other, opts.PlaylistPath); err != nil {
				return nil, fmt.Errorf("playlist: %w", err)
			}
		}
	}
	rng := opts.Rand
	if rng == nil {
		rng = shuffle.NewRand(0)
	}

	logger.Info("loading timeline", "path", opts.InputPath)
	project, err := timeline.Load(opts.InputPath, opts.DefaultFPS, logging.WithComponent(logger, "timeline"))
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}
	seq := project.Sequence

	report := &Report{
		Input:        opts.InputPath,
		Output:       opts.OutputPath,
		FPS:          seq.FPS,
		NTSC:         seq.NTSC,
		FPSDefaulted: seq.FPSDefaulted,
	}
	for _, track := range seq.Tracks {
		report.Tracks = append(report.Tracks, TrackReport{Index: track.Index, Clips: len(track.Clips)})
		report.Clips += len(track.Clips)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	segs, drops, err := segment.Cut(project.Clips(), opts.SegmentSeconds, seq.FPS, logging.WithComponent(logger, "segment"))
	if err != nil {
		return nil, fmt.Errorf("failed to cut segments: %w", err)
	}
	report.Segments = len(segs)
	report.Dropped = append(report.Dropped, drops...)

	groups := segment.GroupBySource(segs)
	report.Groups = len(groups)
	logger.Info("segments created",
		"segments", len(segs),
		"groups", len(groups),
		"dropped_clips", len(drops),
	)

	shuffler, err := shuffle.New(rng, opts.AttemptFactor, logging.WithComponent(logger, "shuffle"))
	if err != nil {
		return nil, fmt.Errorf("failed to create shuffler: %w", err)
	}
	result := shuffler.Shuffle(groups)
	report.Placed = len(result.Segments)
	report.Relaxed = result.Relaxed
	report.Adjacent = shuffle.Adjacent(result.Segments)
	if report.Adjacent != report.Relaxed {
		logger.Warn("same-source neighbours differ from relaxed placements",
			"adjacent", report.Adjacent,
			"relaxed", report.Relaxed,
		)
	}
	report.Attempts = result.Attempts
	report.Dropped = append(report.Dropped, result.Dropped...)

	if len(result.Segments) == 0 {
		logger.Warn("no segments to place, output timeline will be empty",
			"clips", report.Clips,
			"segment_seconds", opts.SegmentSeconds,
		)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock, err := fileutil.Lock(opts.OutputPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Warn("failed to release output lock", "path", opts.OutputPath, "error", err)
		}
	}()

	doc, summary, err := rebuild.Build(project, result.Segments)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild timeline: %w", err)
	}
	report.DurationFrames = summary.Duration
	report.DurationSeconds = timeline.Seconds(summary.Duration, seq.FPS, seq.NTSC)

	n, err := rebuild.Write(doc, opts.OutputPath)
	if err != nil {
		return nil, err
	}
	report.Bytes = n
	logger.Info("timeline written",
		"path", opts.OutputPath,
		"clips", summary.Clips,
		"duration_frames", summary.Duration,
		"bytes", n,
	)

	switch {
	case opts.PlaylistPath == "":
	case len(result.Segments) == 0:
		logger.Warn("skipping preview playlist, no segments placed", "path", opts.PlaylistPath)
	default:
		n, err := playlist.Write(opts.PlaylistPath, result.Segments, playlist.Rate{FPS: seq.FPS, NTSC: seq.NTSC})
		if err != nil {
			// The timeline is already committed.
			logger.Warn("failed to write preview playlist", "path", opts.PlaylistPath, "error", err)
			break
		}
		report.Playlist = opts.PlaylistPath
		report.PlaylistBytes = n
		logger.Info("preview playlist written", "path", opts.PlaylistPath, "bytes", n)
	}

	return report, nil
}
