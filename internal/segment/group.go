package segment

import "github.com/agleyzer/clipshuffle/internal/timeline"

// UnknownSource is the key shared by every segment without a file reference
// or name. All such segments land in one group.
const UnknownSource = "unknown"

// Group is the set of segments sharing one source identity.
type Group struct {
	Key      string
	Segments []Segment
}

// SourceKey returns the identity of the media a clip was placed from: its file
// reference id, else its name, else UnknownSource.
func SourceKey(clip timeline.SourceClip) string {
	if clip.FileID != "" {
		return clip.FileID
	}
	if clip.Name != "" {
		return clip.Name
	}
	return UnknownSource
}

// GroupBySource buckets segments by SourceKey. Groups are returned in the
// order their key first appears and keep segment order within each group.
func GroupBySource(segments []Segment) []Group {
	var groups []Group
	index := make(map[string]int)

	for _, seg := range segments {
		i, ok := index[seg.SourceKey]
		if !ok {
			i = len(groups)
			index[seg.SourceKey] = i
			groups = append(groups, Group{Key: seg.SourceKey})
		}
		groups[i].Segments = append(groups[i].Segments, seg)
	}

	return groups
}
