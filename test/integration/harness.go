// Package integration provides integration testing utilities for clipshuffle.
package integration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
)

// TestHarness runs the clipshuffle binary against files in a scratch directory.
type TestHarness struct {
	t       *testing.T
	binary  string
	workDir string
	timeout time.Duration
}

// RunResult is the outcome of one clipshuffle invocation.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// NewTestHarness creates a new test harness with an empty working directory.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	return &TestHarness{
		t:       t,
		binary:  findClipShuffleBinary(t),
		workDir: t.TempDir(),
		timeout: 30 * time.Second,
	}
}

// Path returns the absolute path of name inside the working directory.
func (h *TestHarness) Path(name string) string {
	return filepath.Join(h.workDir, name)
}

// WriteFile writes content to name inside the working directory.
func (h *TestHarness) WriteFile(name, content string) string {
	h.t.Helper()

	path := h.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		h.t.Fatalf("failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		h.t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// Run executes clipshuffle with args from the working directory. A non-zero
// exit is reported in the result, not as a test failure.
func (h *TestHarness) Run(args ...string) RunResult {
	h.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, h.binary, args...)
	cmd.Dir = h.workDir
	cmd.Env = append(os.Environ(), "NO_COLOR=1")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	result := RunResult{}
	err := cmd.Run()
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		h.t.Fatalf("failed to run clipshuffle: %v", err)
	}

	h.t.Logf("clipshuffle %s -> exit %d", strings.Join(args, " "), result.ExitCode)
	return result
}

// MustRun is Run that fails the test on a non-zero exit.
func (h *TestHarness) MustRun(args ...string) RunResult {
	h.t.Helper()

	result := h.Run(args...)
	if result.ExitCode != 0 {
		h.t.Fatalf("clipshuffle exited %d\nstdout:\n%s\nstderr:\n%s", result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// findClipShuffleBinary locates the clipshuffle binary.
func findClipShuffleBinary(t *testing.T) string {
	t.Helper()

	if path := os.Getenv("CLIPSHUFFLE_BIN"); path != "" {
		return path
	}

	// Try several possible locations
	candidates := []string{
		"../../clipshuffle",             // From test/integration
		"./clipshuffle",                 // From project root
		"../clipshuffle",                // From test directory
		"./cmd/clipshuffle/clipshuffle", // Built in place
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, _ := filepath.Abs(path)
			t.Logf("Found clipshuffle binary at: %s", absPath)
			return absPath
		}
	}

	t.Fatal("clipshuffle binary not found. Run 'go build -o clipshuffle ./cmd/clipshuffle' first")
	return ""
}

// ParsedTimeline is the part of a written timeline the tests check.
type ParsedTimeline struct {
	Declaration string
	Duration    int
	Tracks      [][]TimelineClip
}

// TimelineClip is one clip item of a parsed timeline.
type TimelineClip struct {
	ID     string
	Name   string
	In     int
	Out    int
	Start  int
	End    int
	Label  string
	FileID string
}

// Clips returns the clips of every track in order.
func (p *ParsedTimeline) Clips() []TimelineClip {
	var clips []TimelineClip
	for _, track := range p.Tracks {
		clips = append(clips, track...)
	}
	return clips
}

// ReadTimeline parses a timeline written by clipshuffle.
func (h *TestHarness) ReadTimeline(path string) *ParsedTimeline {
	h.t.Helper()

	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		h.t.Fatalf("failed to parse timeline %s: %v", path, err)
	}

	parsed := &ParsedTimeline{}
	for _, tok := range doc.Child {
		if pi, ok := tok.(*etree.ProcInst); ok && pi.Target == "xml" {
			parsed.Declaration = pi.Inst
		}
	}
	seq := doc.FindElement("//sequence")
	if seq == nil {
		h.t.Fatalf("timeline %s has no sequence", path)
	}
	parsed.Duration = intChild(seq, "duration")

	for _, track := range seq.FindElements("media/video/track") {
		var clips []TimelineClip
		for _, el := range track.SelectElements("clipitem") {
			clip := TimelineClip{
				ID:    el.SelectAttrValue("id", ""),
				Name:  textChild(el, "name"),
				In:    intChild(el, "in"),
				Out:   intChild(el, "out"),
				Start: intChild(el, "start"),
				End:   intChild(el, "end"),
			}
			if label := el.FindElement("labels/label2"); label != nil {
				clip.Label = strings.TrimSpace(label.Text())
			}
			if file := el.FindElement(".//file[@id]"); file != nil {
				clip.FileID = file.SelectAttrValue("id", "")
			}
			clips = append(clips, clip)
		}
		parsed.Tracks = append(parsed.Tracks, clips)
	}
	return parsed
}

func textChild(el *etree.Element, tag string) string {
	if child := el.SelectElement(tag); child != nil {
		return strings.TrimSpace(child.Text())
	}
	return ""
}

func intChild(el *etree.Element, tag string) int {
	n, _ := strconv.Atoi(textChild(el, tag))
	return n
}

// ParsedPlaylist represents a parsed preview playlist for testing.
type ParsedPlaylist struct {
	Version        int
	TargetDuration int
	PlaylistType   string
	Segments       []PlaylistSegment
	HasEndList     bool
}

// PlaylistSegment represents a segment in a playlist.
type PlaylistSegment struct {
	Duration float64
	Title    string
	URL      string
}

// ParsePlaylist parses an HLS playlist into a structured format.
func ParsePlaylist(content string) *ParsedPlaylist {
	playlist := &ParsedPlaylist{
		Segments: []PlaylistSegment{},
	}

	lines := strings.Split(content, "\n")
	var currentSegment *PlaylistSegment

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "#EXT-X-VERSION:"):
			fmt.Sscanf(line, "#EXT-X-VERSION:%d", &playlist.Version)

		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			fmt.Sscanf(line, "#EXT-X-TARGETDURATION:%d", &playlist.TargetDuration)

		case strings.HasPrefix(line, "#EXT-X-PLAYLIST-TYPE:"):
			playlist.PlaylistType = strings.TrimPrefix(line, "#EXT-X-PLAYLIST-TYPE:")

		case line == "#EXT-X-ENDLIST":
			playlist.HasEndList = true

		case strings.HasPrefix(line, "#EXTINF:"):
			currentSegment = &PlaylistSegment{}
			info := strings.TrimPrefix(line, "#EXTINF:")
			duration, title, _ := strings.Cut(info, ",")
			currentSegment.Duration, _ = strconv.ParseFloat(duration, 64)
			currentSegment.Title = title

		case !strings.HasPrefix(line, "#"):
			// This is a segment URL
			if currentSegment != nil {
				currentSegment.URL = line
				playlist.Segments = append(playlist.Segments, *currentSegment)
				currentSegment = nil
			}
		}
	}

	return playlist
}
