package timeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// DefaultFPS is the frame rate assumed when a sequence has no timebase.
const DefaultFPS = 25

// ResolveFrameRate returns the integer timebase of seq. The sequence's own
// rate/timebase wins; otherwise the first rate element below the sequence is
// used. When no timebase exists, fallback is returned with defaulted set.
func ResolveFrameRate(seq *etree.Element, fallback int) (fps int, defaulted bool, err error) {
	tb := seq.FindElement("./rate/timebase")
	if tb == nil {
		if rate := seq.FindElement(".//rate"); rate != nil {
			tb = rate.SelectElement("timebase")
		}
	}
	if tb == nil {
		return fallback, true, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(tb.Text()))
	if err != nil || n <= 0 {
		return 0, false, fmt.Errorf("%w: %q", ErrBadTimebase, tb.Text())
	}
	return n, false, nil
}

func isNTSC(seq *etree.Element) bool {
	flag := seq.FindElement("./rate/ntsc")
	if flag == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(flag.Text()), "true")
}

// Seconds converts a frame count at the given timebase into seconds.
func Seconds(frames, fps int, ntsc bool) float64 {
	if fps <= 0 {
		return 0
	}
	s := float64(frames) / float64(fps)
	if ntsc {
		s = s * 1001 / 1000
	}
	return s
}
