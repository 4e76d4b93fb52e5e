package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/agleyzer/clipshuffle/internal/processor"
)

func printReport(w io.Writer, r *processor.Report) {
	fps := fmt.Sprintf("%d fps", r.FPS)
	if r.NTSC {
		fps += " (NTSC)"
	}
	if r.FPSDefaulted {
		fps += " (default, no rate in sequence)"
	}

	perTrack := make([]string, len(r.Tracks))
	for i, tr := range r.Tracks {
		perTrack[i] = strconv.Itoa(tr.Clips)
	}

	rows := [][]string{
		{"Input", r.Input},
		{"Output", fmt.Sprintf("%s (%s)", r.Output, humanize.Bytes(uint64(r.Bytes)))},
		{"Frame rate", fps},
		{"Tracks", fmt.Sprintf("%d (clips per track: %s)", len(r.Tracks), strings.Join(perTrack, ", "))},
		{"Clips", humanize.Comma(int64(r.Clips))},
		{"Sources", humanize.Comma(int64(r.Groups))},
		{"Segments placed", fmt.Sprintf("%s of %s", humanize.Comma(int64(r.Placed)), humanize.Comma(int64(r.Segments)))},
		{"Same-source neighbours", strconv.Itoa(r.Adjacent)},
		{"Duration", fmt.Sprintf("%.1fs (%s frames)", r.DurationSeconds, humanize.Comma(int64(r.DurationFrames)))},
	}
	if r.Playlist != "" {
		rows = append(rows, []string{"Preview playlist", fmt.Sprintf("%s (%s)", r.Playlist, humanize.Bytes(uint64(r.PlaylistBytes)))})
	}

	fmt.Fprintln(w, "Timeline shuffled")
	fmt.Fprintln(w, renderTable([]string{"Result", "Value"}, rows, nil))

	if len(r.Dropped) > 0 {
		fmt.Fprintf(w, "\n%d %s left out:\n", len(r.Dropped), plural(len(r.Dropped), "item", "items"))
		dropRows := make([][]string, 0, len(r.Dropped))
		for _, d := range r.Dropped {
			what := fmt.Sprintf("clip %d %s", d.ClipIndex+1, d.ClipName)
			if d.SegmentID != "" {
				what = d.SegmentID
			}
			dropRows = append(dropRows, []string{string(d.Reason), strings.TrimSpace(what), strconv.Itoa(d.Frames)})
		}
		fmt.Fprintln(w, renderTable([]string{"Reason", "Clip", "Frames"}, dropRows, []columnAlignment{alignLeft, alignLeft, alignRight}))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintln(w, "  1. Go to Premiere Pro")
	fmt.Fprintf(w, "  2. File > Import > %s\n", filepath.Base(r.Output))
	fmt.Fprintln(w, "  3. Your clips are cut and shuffled on a single video track")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
