// Package playlist writes a preview playlist of a shuffled timeline: a VOD
// media playlist that lists every placed segment in order, pointing at the
// source media with a temporal fragment (#t=start,end) for the cut.
package playlist

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/grafov/m3u8"

	"github.com/agleyzer/clipshuffle/internal/fileutil"
	"github.com/agleyzer/clipshuffle/internal/segment"
	"github.com/agleyzer/clipshuffle/internal/timeline"
)

// Rate is the frame rate used to convert frames into seconds.
type Rate struct {
	FPS  int
	NTSC bool
}

// Generate builds the preview playlist for segs.
func Generate(segs []segment.Segment, rate Rate) (*m3u8.MediaPlaylist, error) {
	if len(segs) == 0 {
		return nil, fmt.Errorf("cannot create playlist with zero segments")
	}
	if rate.FPS <= 0 {
		return nil, fmt.Errorf("frame rate must be positive")
	}

	p, err := m3u8.NewMediaPlaylist(0, uint(len(segs)))
	if err != nil {
		return nil, fmt.Errorf("create playlist: %w", err)
	}
	p.MediaType = m3u8.VOD

	longest := 0.0
	for _, seg := range segs {
		duration := timeline.Seconds(seg.Frames, rate.FPS, rate.NTSC)
		if err := p.Append(segmentURI(seg, rate), duration, seg.ID+" "+seg.Color); err != nil {
			return nil, fmt.Errorf("append segment %s: %w", seg.ID, err)
		}
		longest = math.Max(longest, duration)
	}
	p.TargetDuration = math.Ceil(longest)
	p.Close()

	return p, nil
}

// Write generates the playlist and saves it atomically to path.
func Write(path string, segs []segment.Segment, rate Rate) (int64, error) {
	p, err := Generate(segs, rate)
	if err != nil {
		return 0, err
	}
	n, err := fileutil.WriteAtomic(path, func(w io.Writer) error {
		_, err := p.Encode().WriteTo(w)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("save playlist: %w", err)
	}
	return n, nil
}

// segmentURI points at the segment's media. Clips without a resolvable file
// fall back to their name so the entry is still identifiable.
func segmentURI(seg segment.Segment, rate Rate) string {
	base := seg.Source.MediaURL
	if base == "" {
		base = seg.Source.Name
	}
	if base == "" {
		base = seg.ID
	}
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	start := timeline.Seconds(seg.In, rate.FPS, rate.NTSC)
	end := timeline.Seconds(seg.Out, rate.FPS, rate.NTSC)
	return fmt.Sprintf("%s#t=%.3f,%.3f", base, start, end)
}
