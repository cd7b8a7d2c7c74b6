package script

import "fmt"

// MalformedError reports a script whose pause markers and text chunks do not
// alternate. It is always the caller's fault and never worth retrying.
type MalformedError struct {
	Reason  string
	Chunks  int
	Markers int
}

func (e *MalformedError) Error() string {
	if e.Chunks == 0 && e.Markers == 0 {
		return "malformed script: " + e.Reason
	}
	return fmt.Sprintf("malformed script: %s (%d text chunks, %d pause markers; expected %d chunks)",
		e.Reason, e.Chunks, e.Markers, e.Markers+1)
}
