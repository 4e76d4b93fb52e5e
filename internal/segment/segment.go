// Package segment defines fixed-duration timeline segments cut from source
// clips, the color palette used to label them, and source grouping.
package segment

import (
	"fmt"

	"github.com/agleyzer/clipshuffle/internal/timeline"
)

// Palette holds the Premiere label colors, assigned by source clip index.
var Palette = [16]string{
	"Violet", "Iris", "Caribbean", "Lavender", "Cerulean",
	"Forest", "Rose", "Mango", "Purple", "Blue",
	"Teal", "Magenta", "Tan", "Green", "Brown", "Yellow",
}

// ColorFor returns the label color for the source clip at parentIndex.
// Colors wrap every len(Palette) clips.
func ColorFor(parentIndex int) string {
	return Palette[parentIndex%len(Palette)]
}

// Segment represents a fixed-duration piece of one source clip.
type Segment struct {
	// ID is the unique clip id written to the output ("clipitem-P-S", 1-based).
	ID string

	// ParentIndex is the source clip's document-order index.
	ParentIndex int

	// Index is the segment's position within its parent.
	Index int

	// In and Out are source frames; Out-In always equals Frames.
	In  int
	Out int

	// Frames is the segment duration in frames.
	Frames int

	// Color is the label2 value shared by every segment of the parent.
	Color string

	// SourceKey identifies the originating media for the adjacency rule.
	SourceKey string

	// Source is the clip the segment was cut from; its payload is the
	// template for the output clip element.
	Source timeline.SourceClip
}

// NewID formats the output id for segment i of the clip at parentIndex.
func NewID(parentIndex, i int) string {
	return fmt.Sprintf("clipitem-%d-%d", parentIndex+1, i+1)
}

// Reason says why a clip or segment did not make it into the output.
type Reason string

const (
	ReasonMissingInOut Reason = "missing-in-out" // Clip has no in or out element.
	ReasonInvalidInOut Reason = "invalid-in-out" // In or out text is not an integer.
	ReasonTooShort     Reason = "too-short"      // Clip is shorter than one segment.
	ReasonAttemptCap   Reason = "attempt-cap"    // Shuffler ran out of attempts.
)

// Drop records one clip or segment left out of the output.
type Drop struct {
	Reason Reason

	// ClipIndex is the document-order index of the clip concerned.
	ClipIndex int

	// ClipName is the clip's name text, for reporting.
	ClipName string

	// SegmentID is set for segment-level drops.
	SegmentID string

	// Frames is the length of the material lost.
	Frames int
}

func (d Drop) String() string {
	if d.SegmentID != "" {
		return fmt.Sprintf("%s: segment %s (%d frames)", d.Reason, d.SegmentID, d.Frames)
	}
	return fmt.Sprintf("%s: clip %d %q (%d frames)", d.Reason, d.ClipIndex+1, d.ClipName, d.Frames)
}
