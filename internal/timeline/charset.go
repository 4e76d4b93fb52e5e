package timeline

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding/ianaindex"
)

// charsetReader decodes documents declared in a non-UTF-8 encoding so older
// exports still load. Output is always written as UTF-8.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
