package piper

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// protocolVersion is advertised on every event we send.
const protocolVersion = "1.5.2"

// maxFieldBytes bounds data and payload sections read from the server.
const maxFieldBytes = 16 << 20

// Event types exchanged during synthesis.
const (
	eventSynthesize = "synthesize"
	eventAudioStart = "audio-start"
	eventAudioChunk = "audio-chunk"
	eventAudioStop  = "audio-stop"
	eventError      = "error"
)

// header is the JSON line that opens every Wyoming event. Data either
// travels inline or follows the line as DataLength bytes of JSON; Payload
// bytes come last.
type header struct {
	Type          string          `json:"type"`
	Version       string          `json:"version,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
	DataLength    int             `json:"data_length,omitempty"`
	PayloadLength int             `json:"payload_length,omitempty"`
}

type event struct {
	Type    string
	Data    json.RawMessage
	Payload []byte
}

// decode unmarshals the event data into v. An event without data leaves v
// untouched.
func (e *event) decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decoding %s data: %w", e.Type, err)
	}
	return nil
}

type synthesizeData struct {
	Text  string    `json:"text"`
	Voice voiceData `json:"voice"`
}

type voiceData struct {
	Name     string `json:"name,omitempty"`
	Language string `json:"language,omitempty"`
	Speaker  string `json:"speaker,omitempty"`
}

// audioFormat is carried by audio-start and by every audio-chunk.
type audioFormat struct {
	Rate     int `json:"rate"`
	Width    int `json:"width"`
	Channels int `json:"channels"`
}

func (f audioFormat) validate() error {
	switch {
	case f.Rate <= 0:
		return fmt.Errorf("invalid sample rate %d", f.Rate)
	case f.Channels <= 0:
		return fmt.Errorf("invalid channel count %d", f.Channels)
	case f.Width != 2:
		return fmt.Errorf("unsupported sample width %d", f.Width)
	}
	return nil
}

type errorData struct {
	Text string `json:"text"`
	Code string `json:"code,omitempty"`
}

// writeEvent frames and sends one event in a single write.
func writeEvent(w io.Writer, typ string, data any, payload []byte) error {
	h := header{Type: typ, Version: protocolVersion, PayloadLength: len(payload)}

	var body []byte
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshalling %s data: %w", typ, err)
		}
		body = b
		h.DataLength = len(body)
	}

	line, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshalling %s header: %w", typ, err)
	}

	var frame bytes.Buffer
	frame.Grow(len(line) + 1 + len(body) + len(payload))
	frame.Write(line)
	frame.WriteByte('\n')
	frame.Write(body)
	frame.Write(payload)

	_, err = w.Write(frame.Bytes())
	return err
}

// readEvent reads the next event from r.
func readEvent(r *bufio.Reader) (*event, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	var h header
	if err := json.Unmarshal(bytes.TrimSpace(line), &h); err != nil {
		return nil, fmt.Errorf("invalid wyoming header %q: %w", bytes.TrimSpace(line), err)
	}
	if h.Type == "" {
		return nil, errors.New("wyoming header without type")
	}
	if h.DataLength < 0 || h.DataLength > maxFieldBytes || h.PayloadLength < 0 || h.PayloadLength > maxFieldBytes {
		return nil, fmt.Errorf("wyoming %s: bad lengths data=%d payload=%d", h.Type, h.DataLength, h.PayloadLength)
	}

	evt := &event{Type: h.Type, Data: h.Data}
	if h.DataLength > 0 {
		data := make([]byte, h.DataLength)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("reading %s data: %w", h.Type, err)
		}
		evt.Data = data
	}
	if h.PayloadLength > 0 {
		evt.Payload = make([]byte, h.PayloadLength)
		if _, err := io.ReadFull(r, evt.Payload); err != nil {
			return nil, fmt.Errorf("reading %s payload: %w", h.Type, err)
		}
	}
	return evt, nil
}
