// Package timeline loads exported NLE project files (Final Cut Pro 7 XML, as
// written by Premiere Pro) into a read-only model of sequences, tracks and clips.
package timeline

import "github.com/beevik/etree"

// RangeStatus reports whether a clip's in/out points could be read.
type RangeStatus int

const (
	RangeValid   RangeStatus = iota // Both in and out parsed as integers.
	RangeMissing                    // The in or out element is absent.
	RangeInvalid                    // The in or out text is not an integer.
)

// Project is a parsed timeline file. The parsed document is private; callers
// that need to build output get a deep copy from Document.
type Project struct {
	// Path is the file the project was loaded from (empty for Read).
	Path string

	// Sequence is the extracted timeline.
	Sequence Sequence

	doc *etree.Document
}

// Sequence is the root timeline of the project.
type Sequence struct {
	// Name is the sequence's name text, if any.
	Name string

	// FPS is the integer timebase governing all frame arithmetic.
	FPS int

	// NTSC is set when the rate is flagged as NTSC (timebase * 1000/1001).
	NTSC bool

	// FPSDefaulted is set when no timebase was found and the fallback was used.
	FPSDefaulted bool

	// Duration is the sequence duration in frames as read (0 when absent).
	Duration int

	// Tracks holds the video tracks in document order.
	Tracks []Track
}

// Track is one video track of the sequence.
type Track struct {
	Index int
	Clips []SourceClip
}

// SourceClip is a clip item as originally placed on the timeline.
type SourceClip struct {
	// Index is the clip's position in document order across all tracks.
	Index int

	// Track is the index of the track holding the clip.
	Track int

	// Name is the clip's name text.
	Name string

	// In and Out are the source frame range; only meaningful when Range is RangeValid.
	In  int
	Out int

	Range RangeStatus

	// FileID is the id of the first descendant file reference, if any.
	FileID string

	// MediaURL is the pathurl registered for FileID anywhere in the document.
	MediaURL string

	payload *etree.Element
}

// Frames returns the length of the clip's source range.
func (c SourceClip) Frames() int {
	return c.Out - c.In
}

// Payload returns a detached deep copy of the clip element with every child
// and attribute preserved.
func (c SourceClip) Payload() *etree.Element {
	if c.payload == nil {
		return etree.NewElement("clipitem")
	}
	return c.payload.Copy()
}

// Document returns a deep copy of the parsed document.
func (p *Project) Document() *etree.Document {
	return p.doc.Copy()
}

// Clips returns every source clip flattened across tracks in document order.
func (p *Project) Clips() []SourceClip {
	var clips []SourceClip
	for _, track := range p.Sequence.Tracks {
		clips = append(clips, track.Clips...)
	}
	return clips
}
