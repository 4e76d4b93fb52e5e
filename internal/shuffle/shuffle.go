// Package shuffle orders segments so that neighbours come from different
// sources wherever the random walk allows it.
//
// The ordering is best-effort: when only one source has segments left the
// constraint is relaxed, and a hard attempt cap can leave segments unplaced.
// Both outcomes are reported in the Result rather than hidden.
package shuffle

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/agleyzer/clipshuffle/internal/segment"
)

// DefaultAttemptFactor bounds the placement loop to factor * segment count
// attempts.
const DefaultAttemptFactor = 10.0

// Rand is the randomness the shuffler needs. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewRand returns a PCG-backed generator. A zero seed picks one from the clock.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Result is the outcome of one shuffle.
type Result struct {
	// Segments is the placed order.
	Segments []segment.Segment

	// Dropped lists segments left over when the attempt cap was reached.
	Dropped []segment.Drop

	// Attempts is the number of loop iterations used.
	Attempts int

	// Relaxed counts placements made with the adjacency rule lifted.
	Relaxed int
}

// Shuffler performs constrained shuffles with an injected random source.
type Shuffler struct {
	rng           Rand
	attemptFactor float64
	logger        *slog.Logger
}

// New creates a shuffler. attemptFactor must be positive.
func New(rng Rand, attemptFactor float64, logger *slog.Logger) (*Shuffler, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if attemptFactor <= 0 {
		return nil, fmt.Errorf("attempt factor must be positive, got %g", attemptFactor)
	}
	return &Shuffler{
		rng:           rng,
		attemptFactor: attemptFactor,
		logger:        logger,
	}, nil
}

// queue is a group's shuffled segments and the position of the next one.
type queue struct {
	key      string
	segments []segment.Segment
	next     int
}

func (q *queue) remaining() int {
	return len(q.segments) - q.next
}

// Shuffle orders every segment in groups. The input groups are not modified.
func (s *Shuffler) Shuffle(groups []segment.Group) Result {
	total := 0
	queues := make([]*queue, 0, len(groups))
	for _, g := range groups {
		if len(g.Segments) == 0 {
			continue
		}
		segs := make([]segment.Segment, len(g.Segments))
		copy(segs, g.Segments)
		s.rng.Shuffle(len(segs), func(i, j int) { segs[i], segs[j] = segs[j], segs[i] })
		queues = append(queues, &queue{key: g.Key, segments: segs})
		total += len(segs)
	}

	s.rng.Shuffle(len(queues), func(i, j int) { queues[i], queues[j] = queues[j], queues[i] })

	result := Result{Segments: make([]segment.Segment, 0, total)}
	maxAttempts := int(float64(total) * s.attemptFactor)
	last := ""
	placedAny := false
	candidates := make([]*queue, 0, len(queues))

	for len(result.Segments) < total && result.Attempts < maxAttempts {
		result.Attempts++

		candidates = candidates[:0]
		for _, q := range queues {
			if q.remaining() > 0 && (!placedAny || q.key != last) {
				candidates = append(candidates, q)
			}
		}

		if len(candidates) == 0 {
			for _, q := range queues {
				if q.remaining() > 0 {
					candidates = append(candidates, q)
				}
			}
			if len(candidates) == 0 {
				break
			}
			result.Relaxed++
			s.logger.Debug("adjacency relaxed", "source", last, "position", len(result.Segments))
		}

		chosen := candidates[s.rng.IntN(len(candidates))]
		result.Segments = append(result.Segments, chosen.segments[chosen.next])
		chosen.next++
		last = chosen.key
		placedAny = true
	}

	for _, q := range queues {
		for _, seg := range q.segments[q.next:] {
			result.Dropped = append(result.Dropped, segment.Drop{
				Reason:    segment.ReasonAttemptCap,
				ClipIndex: seg.ParentIndex,
				ClipName:  seg.Source.Name,
				SegmentID: seg.ID,
				Frames:    seg.Frames,
			})
		}
	}

	if len(result.Dropped) > 0 {
		s.logger.Warn("attempt cap reached, segments dropped",
			"attempts", result.Attempts,
			"placed", len(result.Segments),
			"dropped", len(result.Dropped),
		)
	}

	return result
}

// Adjacent counts neighbouring pairs in segs that share a source key.
func Adjacent(segs []segment.Segment) int {
	n := 0
	for i := 1; i < len(segs); i++ {
		if segs[i].SourceKey == segs[i-1].SourceKey {
			n++
		}
	}
	return n
}
