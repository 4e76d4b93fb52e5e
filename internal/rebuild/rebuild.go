// Package rebuild lays shuffled segments onto a fresh copy of the source
// timeline and serializes the result.
package rebuild

import (
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"

	"github.com/agleyzer/clipshuffle/internal/fileutil"
	"github.com/agleyzer/clipshuffle/internal/segment"
	"github.com/agleyzer/clipshuffle/internal/timeline"
)

const declaration = `version="1.0" encoding="UTF-8"`

// Summary describes the rebuilt sequence.
type Summary struct {
	// Clips is the number of clip items on the output track.
	Clips int

	// Duration is the new sequence duration in frames.
	Duration int
}

// Build returns a new document in which every video track is emptied and segs
// are placed end to end on the first track, starting at frame 0. The project's
// parsed document is not modified.
func Build(project *timeline.Project, segs []segment.Segment) (*etree.Document, Summary, error) {
	doc := project.Document()
	layout, err := timeline.Locate(doc)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("locate tracks: %w", err)
	}

	first := layout.Tracks[0]
	insertAt := len(first.Child)
	if clip := first.SelectElement("clipitem"); clip != nil {
		insertAt = clip.Index()
	}

	for _, track := range layout.Tracks {
		for _, clip := range track.SelectElements("clipitem") {
			track.RemoveChild(clip)
		}
	}

	position := 0
	for i, seg := range segs {
		first.InsertChildAt(insertAt+i, clipElement(seg, position))
		position += seg.Frames
	}

	setChildInt(layout.Sequence, "duration", position)
	setDeclaration(doc)
	indent := etree.NewIndentSettings()
	indent.Spaces = 2
	indent.PreserveLeafWhitespace = true
	doc.IndentWithSettings(indent)

	return doc, Summary{Clips: len(segs), Duration: position}, nil
}

// Write serializes doc to path atomically and returns the bytes written.
func Write(doc *etree.Document, path string) (int64, error) {
	n, err := fileutil.WriteAtomic(path, func(w io.Writer) error {
		_, err := doc.WriteTo(w)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("save timeline: %w", err)
	}
	return n, nil
}

// clipElement copies the segment's parent clip and rewrites its timing, id
// and color label.
func clipElement(seg segment.Segment, start int) *etree.Element {
	el := seg.Source.Payload()

	if el.SelectAttr("id") != nil {
		el.CreateAttr("id", seg.ID)
	}
	if master := el.SelectElement("masterclipid"); master != nil {
		master.SetText(seg.ID)
	}

	setChildInt(el, "in", seg.In)
	setChildInt(el, "out", seg.Out)
	setChildInt(el, "duration", seg.Frames)
	setChildInt(el, "start", start)
	setChildInt(el, "end", start+seg.Frames)

	labels := el.SelectElement("labels")
	if labels == nil {
		labels = el.CreateElement("labels")
	}
	label2 := labels.SelectElement("label2")
	if label2 == nil {
		label2 = labels.CreateElement("label2")
	}
	label2.SetText(seg.Color)

	return el
}

func setChildInt(el *etree.Element, tag string, v int) {
	child := el.SelectElement(tag)
	if child == nil {
		child = el.CreateElement(tag)
	}
	child.SetText(strconv.Itoa(v))
}

// setDeclaration makes the document start with a UTF-8 XML declaration,
// replacing any declaration that named another encoding.
func setDeclaration(doc *etree.Document) {
	for _, tok := range doc.Child {
		if pi, ok := tok.(*etree.ProcInst); ok && pi.Target == "xml" {
			pi.Inst = declaration
			return
		}
	}
	doc.InsertChildAt(0, etree.NewProcInst("xml", declaration))
}
