package script

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestParseScenario(t *testing.T) {
	got, err := Parse("Inhala profundo. [PAUSE:4s] Exhala lento. [PAUSE:6s] Buen trabajo.")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []Instruction{
		{Text: "Inhala profundo.", PauseAfter: 4000 * time.Millisecond},
		{Text: "Exhala lento.", PauseAfter: 6000 * time.Millisecond},
		{Text: "Buen trabajo.", PauseAfter: 0},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d instructions, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("instruction %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if TotalPause(got) != 10*time.Second {
		t.Fatalf("expected 10s of pauses, got %v", TotalPause(got))
	}
}

func TestParseValid(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []Instruction
	}{
		{
			name:   "no markers",
			script: "  Solo una frase.  ",
			want:   []Instruction{{Text: "Solo una frase."}},
		},
		{
			name:   "case insensitive",
			script: "Uno [pause:2S] Dos [Pause:0s] Tres",
			want: []Instruction{
				{Text: "Uno", PauseAfter: 2 * time.Second},
				{Text: "Dos", PauseAfter: 0},
				{Text: "Tres"},
			},
		},
		{
			name:   "multiline text",
			script: "Cierra los ojos.\nRespira.\n[PAUSE:3s]\nAbre los ojos.",
			want: []Instruction{
				{Text: "Cierra los ojos.\nRespira.", PauseAfter: 3 * time.Second},
				{Text: "Abre los ojos."},
			},
		},
		{
			name:   "no surrounding spaces",
			script: "A[PAUSE:1s]B",
			want: []Instruction{
				{Text: "A", PauseAfter: time.Second},
				{Text: "B"},
			},
		},
		{
			name:   "malformed marker stays text",
			script: "Uno [PAUSE:1.5s] dos",
			want:   []Instruction{{Text: "Uno [PAUSE:1.5s] dos"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.script)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("instruction %d: expected %v, got %v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name   string
		script string
		reason string
	}{
		{"consecutive markers", "Relájate. [PAUSE:10s][PAUSE:2s] Suelta.", "no text between them"},
		{"whitespace between markers", "Uno [PAUSE:1s]  \n\t [PAUSE:2s] Dos", "no text between them"},
		{"trailing marker", "Final tag issue. [PAUSE:3s]", "ends with a pause marker"},
		{"trailing marker with whitespace", "Final. [PAUSE:3s]   \n", "ends with a pause marker"},
		{"leading marker", "[PAUSE:3s] Hola. [PAUSE:2s] Adiós.", "starts with a pause marker"},
		{"only a marker", "[PAUSE:3s]", "starts with a pause marker"},
		{"empty", "", "no text"},
		{"whitespace only", " \n ", "no text"},
		{"overflowing seconds", "Uno [PAUSE:99999999999999999999s] Dos", "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.script)
			var malformed *MalformedError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedError, got %v", err)
			}
			if !strings.Contains(malformed.Reason, tt.reason) {
				t.Fatalf("expected reason containing %q, got %q", tt.reason, malformed.Reason)
			}
		})
	}
}

func TestParseMaxPause(t *testing.T) {
	p := Parser{MaxPause: time.Minute}
	if _, err := p.Parse("Uno [PAUSE:60s] Dos"); err != nil {
		t.Fatalf("expected pause at the limit to pass, got %v", err)
	}
	_, err := p.Parse("Uno [PAUSE:61s] Dos")
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedError, got %v", err)
	}
}

func TestParseKMarkersYieldKPlusOne(t *testing.T) {
	for k := 0; k <= 12; k++ {
		var b strings.Builder
		for i := 0; i < k; i++ {
			fmt.Fprintf(&b, "Frase %d. [PAUSE:%ds] ", i, i+1)
		}
		b.WriteString("Fin.")

		got, err := Parse(b.String())
		if err != nil {
			t.Fatalf("k=%d: Parse: %v", k, err)
		}
		if len(got) != k+1 {
			t.Fatalf("k=%d: expected %d instructions, got %d", k, k+1, len(got))
		}
		if got[k].PauseAfter != 0 {
			t.Fatalf("k=%d: expected last pause 0, got %v", k, got[k].PauseAfter)
		}
		for i := 0; i < k; i++ {
			if got[i].PauseAfter != time.Duration(i+1)*time.Second {
				t.Fatalf("k=%d: instruction %d paired with %v", k, i, got[i].PauseAfter)
			}
		}
	}
}

func TestMalformedErrorMessage(t *testing.T) {
	err := &MalformedError{Reason: "script ends with a pause marker", Chunks: 1, Markers: 1}
	if !strings.Contains(err.Error(), "expected 2 chunks") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
