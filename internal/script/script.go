// Package script parses annotated narration scripts.
//
// A script is plain text with inline pause markers of the form [PAUSE:4s]
// (case-insensitive, whole seconds). Parsing yields the spoken chunks in
// order, each paired with the silence that follows it:
//
//	"Inhala profundo. [PAUSE:4s] Exhala lento. [PAUSE:6s] Buen trabajo."
//	-> ("Inhala profundo.", 4s) ("Exhala lento.", 6s) ("Buen trabajo.", 0)
//
// Every marker must sit between two pieces of spoken text. A script that
// starts or ends with a marker, or has two markers with only whitespace
// between them, is rejected with a *MalformedError.
package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// markerPattern matches a pause marker and captures its seconds value.
var markerPattern = regexp.MustCompile(`(?i)\[PAUSE:(\d+)s\]`)

// Instruction is one spoken chunk and the silence to insert after it.
type Instruction struct {
	Text       string        `json:"text"`
	PauseAfter time.Duration `json:"pause_after"`
}

func (i Instruction) String() string {
	return fmt.Sprintf("%q +%v", i.Text, i.PauseAfter)
}

// TotalPause returns the sum of every instruction's pause.
func TotalPause(instructions []Instruction) time.Duration {
	var total time.Duration
	for _, in := range instructions {
		total += in.PauseAfter
	}
	return total
}

// Parser parses scripts. The zero value accepts pauses of any length.
type Parser struct {
	// MaxPause rejects markers longer than this. Zero disables the check.
	MaxPause time.Duration
}

// Parse parses a script with no pause limit.
func Parse(script string) ([]Instruction, error) {
	return Parser{}.Parse(script)
}

// Parse splits script into instructions. It fails with a *MalformedError
// when the markers and text chunks do not alternate.
func (p Parser) Parse(script string) ([]Instruction, error) {
	locs := markerPattern.FindAllStringSubmatchIndex(script, -1)

	pauses := make([]time.Duration, 0, len(locs))
	for _, loc := range locs {
		raw := script[loc[2]:loc[3]]
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || secs > int64(maxSeconds) {
			return nil, &MalformedError{Reason: fmt.Sprintf("pause marker %q is out of range", script[loc[0]:loc[1]])}
		}
		d := time.Duration(secs) * time.Second
		if p.MaxPause > 0 && d > p.MaxPause {
			return nil, &MalformedError{Reason: fmt.Sprintf("pause of %v exceeds the maximum of %v", d, p.MaxPause)}
		}
		pauses = append(pauses, d)
	}

	// Raw chunks are positional: chunk i precedes marker i.
	raw := make([]string, 0, len(locs)+1)
	prev := 0
	for _, loc := range locs {
		raw = append(raw, strings.TrimSpace(script[prev:loc[0]]))
		prev = loc[1]
	}
	raw = append(raw, strings.TrimSpace(script[prev:]))

	if err := checkLayout(raw, len(pauses)); err != nil {
		return nil, err
	}

	instructions := make([]Instruction, len(raw))
	for i, text := range raw {
		instructions[i] = Instruction{Text: text}
		if i < len(pauses) {
			instructions[i].PauseAfter = pauses[i]
		}
	}
	return instructions, nil
}

// maxSeconds keeps seconds*time.Second from overflowing.
const maxSeconds = int64(1<<63-1) / int64(time.Second)

func checkLayout(raw []string, markers int) error {
	if markers == 0 && raw[0] == "" {
		return &MalformedError{Reason: "script has no text", Chunks: 0, Markers: 0}
	}

	chunks := 0
	for _, c := range raw {
		if c != "" {
			chunks++
		}
	}

	last := len(raw) - 1
	for i, c := range raw {
		if c != "" {
			continue
		}
		var reason string
		switch {
		case i == 0:
			reason = "script starts with a pause marker"
		case i == last:
			reason = "script ends with a pause marker"
		default:
			reason = fmt.Sprintf("pause markers %d and %d have no text between them", i, i+1)
		}
		return &MalformedError{Reason: reason, Chunks: chunks, Markers: markers}
	}

	if chunks != markers+1 {
		return &MalformedError{
			Reason:  "text chunks and pause markers do not alternate",
			Chunks:  chunks,
			Markers: markers,
		}
	}
	return nil
}
