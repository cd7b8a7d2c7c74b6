// Soundofsilence renders annotated narration scripts into finished audio:
// spoken segments from a text-to-speech provider, explicit pauses, and a
// looping background bed mixed underneath.
//
// Usage:
//
//	soundofsilence serve [--config /path/to/soundofsilence.yaml]
//	soundofsilence render --script meditation.txt --out meditacion.opus
//	soundofsilence parse --script meditation.txt
//
// @title       soundofsilence API
// @version     1.0
// @description Renders annotated narration scripts into mixed audio files.
// @BasePath    /
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
