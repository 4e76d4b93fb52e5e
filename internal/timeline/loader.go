package timeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Structural errors. Any of these aborts a run before output is written.
var (
	ErrMalformed   = errors.New("timeline is not well-formed XML")
	ErrNoSequence  = errors.New("no sequence found in timeline")
	ErrNoVideo     = errors.New("no video element found under sequence")
	ErrNoTracks    = errors.New("no video tracks found")
	ErrNoClips     = errors.New("no clips found in timeline")
	ErrBadTimebase = errors.New("sequence timebase is not a positive integer")
)

// Layout points at the structural elements of a timeline document.
type Layout struct {
	Sequence *etree.Element
	Video    *etree.Element
	Tracks   []*etree.Element
}

// Load opens and parses the timeline file at path.
func Load(path string, defaultFPS int, logger *slog.Logger) (*Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open timeline: %w", err)
	}
	defer f.Close()

	project, err := Read(f, defaultFPS, logger)
	if err != nil {
		return nil, err
	}
	project.Path = path
	return project, nil
}

// Read parses a timeline document from r. defaultFPS is used when the
// sequence carries no timebase.
func Read(r io.Reader, defaultFPS int, logger *slog.Logger) (*Project, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	layout, err := Locate(doc)
	if err != nil {
		return nil, err
	}

	fps, defaulted, err := ResolveFrameRate(layout.Sequence, defaultFPS)
	if err != nil {
		return nil, err
	}
	if defaulted {
		logger.Warn("could not find frame rate, using default", "fps", fps)
	}

	seq := Sequence{
		Name:         childText(layout.Sequence, "name"),
		FPS:          fps,
		NTSC:         isNTSC(layout.Sequence),
		FPSDefaulted: defaulted,
	}
	if d, ok := childInt(layout.Sequence, "duration"); ok {
		seq.Duration = d
	}

	media := mediaURLs(doc.Root())
	index := 0
	for ti, trackEl := range layout.Tracks {
		track := Track{Index: ti}
		for _, clipEl := range trackEl.SelectElements("clipitem") {
			track.Clips = append(track.Clips, newSourceClip(clipEl, index, ti, media))
			index++
		}
		logger.Info("track loaded", "track", ti+1, "clips", len(track.Clips))
		seq.Tracks = append(seq.Tracks, track)
	}

	if index == 0 {
		return nil, ErrNoClips
	}

	return &Project{Sequence: seq, doc: doc}, nil
}

// Locate finds the sequence, its video element and the video tracks. It is
// used both when loading and when rebuilding a copied document.
func Locate(doc *etree.Document) (Layout, error) {
	root := doc.Root()
	if root == nil {
		return Layout{}, fmt.Errorf("%w: document has no root element", ErrMalformed)
	}

	seq := root
	if root.Tag != "sequence" {
		seq = root.FindElement(".//sequence")
	}
	if seq == nil {
		return Layout{}, ErrNoSequence
	}

	video := seq.FindElement(".//video")
	if video == nil {
		return Layout{}, ErrNoVideo
	}

	tracks := video.SelectElements("track")
	if len(tracks) == 0 {
		return Layout{}, ErrNoTracks
	}

	return Layout{Sequence: seq, Video: video, Tracks: tracks}, nil
}

func newSourceClip(el *etree.Element, index, track int, media map[string]string) SourceClip {
	clip := SourceClip{
		Index:   index,
		Track:   track,
		Name:    childText(el, "name"),
		payload: el.Copy(),
	}
	clip.In, clip.Out, clip.Range = parseRange(el)

	for _, f := range el.FindElements(".//file") {
		if id := f.SelectAttrValue("id", ""); id != "" {
			clip.FileID = id
			clip.MediaURL = media[id]
			break
		}
	}
	return clip
}

func parseRange(el *etree.Element) (int, int, RangeStatus) {
	inEl := el.SelectElement("in")
	outEl := el.SelectElement("out")
	if inEl == nil || outEl == nil {
		return 0, 0, RangeMissing
	}
	in, err := strconv.Atoi(strings.TrimSpace(inEl.Text()))
	if err != nil {
		return 0, 0, RangeInvalid
	}
	out, err := strconv.Atoi(strings.TrimSpace(outEl.Text()))
	if err != nil {
		return 0, 0, RangeInvalid
	}
	return in, out, RangeValid
}

// mediaURLs maps file ids to their pathurl. Premiere writes the full file
// definition once and refers to it by id afterwards.
func mediaURLs(root *etree.Element) map[string]string {
	urls := make(map[string]string)
	for _, f := range root.FindElements(".//file") {
		id := f.SelectAttrValue("id", "")
		if id == "" {
			continue
		}
		if u := childText(f, "pathurl"); u != "" {
			if _, seen := urls[id]; !seen {
				urls[id] = u
			}
		}
	}
	return urls
}

func childText(el *etree.Element, tag string) string {
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}

func childInt(el *etree.Element, tag string) (int, bool) {
	child := el.SelectElement(tag)
	if child == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(child.Text()))
	if err != nil {
		return 0, false
	}
	return n, true
}
