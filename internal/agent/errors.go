package agent

import (
	"errors"
	"fmt"
)

// ErrInjectionBlocked is returned when the input guard rejects a task.
var ErrInjectionBlocked = errors.New("task rejected by input guard")

// ProtocolViolation means the model broke the turn protocol: no directive,
// an ambiguous directive, an unterminated region, or the turn limit was hit.
type ProtocolViolation struct {
	Reason string
	Raw    string // offending model text, empty for turn-limit violations
}

func (e *ProtocolViolation) Error() string {
	return "protocol violation: " + e.Reason
}

// ActionFormatError means an action region did not hold a valid
// {"name": string, "parameters": object} payload. Raw keeps the region text.
type ActionFormatError struct {
	Raw    string
	Reason string
	Err    error
}

func (e *ActionFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed action: %s: %v", e.Reason, e.Err)
	}
	return "malformed action: " + e.Reason
}

func (e *ActionFormatError) Unwrap() error { return e.Err }
