package segment

import (
	"fmt"
	"log/slog"

	"github.com/agleyzer/clipshuffle/internal/timeline"
)

// Cut slices every clip into segments of seconds*fps frames. Clips without a
// usable in/out range or shorter than one segment produce no segments and are
// reported as drops instead.
func Cut(clips []timeline.SourceClip, seconds, fps int, logger *slog.Logger) ([]Segment, []Drop, error) {
	if seconds <= 0 {
		return nil, nil, fmt.Errorf("segment duration must be positive, got %d", seconds)
	}
	if fps <= 0 {
		return nil, nil, fmt.Errorf("frame rate must be positive, got %d", fps)
	}

	segmentFrames := seconds * fps
	var segments []Segment
	var drops []Drop

	for _, clip := range clips {
		switch clip.Range {
		case timeline.RangeMissing:
			drops = append(drops, Drop{Reason: ReasonMissingInOut, ClipIndex: clip.Index, ClipName: clip.Name})
			logger.Debug("skipping clip without in/out", "clip", clip.Index+1, "name", clip.Name)
			continue
		case timeline.RangeInvalid:
			drops = append(drops, Drop{Reason: ReasonInvalidInOut, ClipIndex: clip.Index, ClipName: clip.Name})
			logger.Debug("skipping clip with unreadable in/out", "clip", clip.Index+1, "name", clip.Name)
			continue
		}

		count := 0
		if clip.Frames() > 0 {
			count = clip.Frames() / segmentFrames
		}
		if count == 0 {
			drops = append(drops, Drop{
				Reason:    ReasonTooShort,
				ClipIndex: clip.Index,
				ClipName:  clip.Name,
				Frames:    max(clip.Frames(), 0),
			})
			logger.Debug("clip shorter than one segment",
				"clip", clip.Index+1,
				"frames", clip.Frames(),
				"segmentFrames", segmentFrames,
			)
			continue
		}

		color := ColorFor(clip.Index)
		key := SourceKey(clip)
		for i := 0; i < count; i++ {
			in := clip.In + i*segmentFrames
			segments = append(segments, Segment{
				ID:          NewID(clip.Index, i),
				ParentIndex: clip.Index,
				Index:       i,
				In:          in,
				Out:         in + segmentFrames,
				Frames:      segmentFrames,
				Color:       color,
				SourceKey:   key,
				Source:      clip,
			})
		}

		logger.Debug("cut clip",
			"clip", clip.Index+1,
			"segments", count,
			"color", color,
			"source", key,
		)
	}

	return segments, drops, nil
}
