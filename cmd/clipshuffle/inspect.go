package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agleyzer/clipshuffle/internal/config"
	"github.com/agleyzer/clipshuffle/internal/segment"
	"github.com/agleyzer/clipshuffle/internal/timeline"
)

func newInspectCommand(global *globalFlags) *cobra.Command {
	var seconds int
	var defaultFPS int

	cmd := &cobra.Command{
		Use:   "inspect [timeline.xml]",
		Short: "Show the tracks, clips and sources of a timeline",
		Long: `inspect loads a timeline without writing anything and lists every clip with
its source, range and the number of segments it would be cut into.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *global, nil)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seconds") {
				cfg.SegmentSeconds = seconds
			}
			if cmd.Flags().Changed("default-fps") {
				cfg.DefaultFPS = defaultFPS
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			path := cfg.Input
			if len(args) == 1 {
				path = args[0]
			}

			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}

			project, err := timeline.Load(path, cfg.DefaultFPS, logger)
			if err != nil {
				return fmt.Errorf("failed to load timeline: %w", err)
			}
			segs, drops, err := segment.Cut(project.Clips(), cfg.SegmentSeconds, project.Sequence.FPS, logger)
			if err != nil {
				return err
			}

			perClip := make(map[int]int)
			for _, s := range segs {
				perClip[s.ParentIndex]++
			}
			dropped := make(map[int]segment.Reason)
			for _, d := range drops {
				dropped[d.ClipIndex] = d.Reason
			}

			seq := project.Sequence
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sequence %q: %d fps", seq.Name, seq.FPS)
			if seq.FPSDefaulted {
				fmt.Fprint(out, " (default)")
			}
			fmt.Fprintf(out, ", %d video %s, %d frames\n", len(seq.Tracks), plural(len(seq.Tracks), "track", "tracks"), seq.Duration)

			rows := make([][]string, 0, len(project.Clips()))
			for _, c := range project.Clips() {
				status := strconv.Itoa(perClip[c.Index])
				if reason, ok := dropped[c.Index]; ok {
					status = string(reason)
				}
				inOut := "-"
				if c.Range == timeline.RangeValid {
					inOut = fmt.Sprintf("%d-%d", c.In, c.Out)
				}
				rows = append(rows, []string{
					strconv.Itoa(c.Index + 1),
					strconv.Itoa(c.Track + 1),
					c.Name,
					segment.SourceKey(c),
					inOut,
					status,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Track", "Name", "Source", "In-Out", "Segments"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight, alignRight},
			))

			groups := segment.GroupBySource(segs)
			groupRows := make([][]string, 0, len(groups))
			for _, g := range groups {
				groupRows = append(groupRows, []string{g.Key, strconv.Itoa(len(g.Segments))})
			}
			fmt.Fprintf(out, "%d %s, %d %s of %ds\n", len(groups), plural(len(groups), "source", "sources"),
				len(segs), plural(len(segs), "segment", "segments"), cfg.SegmentSeconds)
			if len(groupRows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"Source", "Segments"}, groupRows, []columnAlignment{alignLeft, alignRight}))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&seconds, "seconds", "s", config.DefaultSegmentSeconds, "Segment length in seconds")
	cmd.Flags().IntVar(&defaultFPS, "default-fps", config.DefaultFPS, "Frame rate used when the sequence has none")
	return cmd
}
