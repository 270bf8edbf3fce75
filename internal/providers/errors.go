package providers

import "fmt"

// ModelCallError reports a failed model request: transport, auth, HTTP status
// or an unusable response body. It is fatal to the current task.
type ModelCallError struct {
	Provider string
	Status   int    // HTTP status, 0 when the request never completed
	Body     string // truncated response body, if any
	Err      error
}

func (e *ModelCallError) Error() string {
	msg := e.Provider + ": model call failed"
	if e.Status != 0 {
		msg += fmt.Sprintf(" with status %d", e.Status)
	}
	switch {
	case e.Body != "":
		msg += ": " + e.Body
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ModelCallError) Unwrap() error { return e.Err }
