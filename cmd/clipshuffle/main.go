// The clipshuffle command cuts the clips of an exported FCP7 XML timeline into
// fixed-length segments and writes a new timeline with the segments shuffled
// so that neighbours come from different sources.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

const version = "1.0.0"

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
