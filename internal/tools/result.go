package tools

// ResultKind classifies the outcome of one dispatch.
type ResultKind int

const (
	ResultOK ResultKind = iota
	ResultToolError
	ResultTransportError
	ResultUnknownTool
)

func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultToolError:
		return "tool_error"
	case ResultTransportError:
		return "transport_error"
	case ResultUnknownTool:
		return "unknown_tool"
	default:
		return "unknown"
	}
}

// ErrorPrefix starts the observation text of every failed dispatch.
const ErrorPrefix = "tool execution error: "

// Result is the typed outcome of a dispatch. The model only ever sees
// Observation(); Kind and Err stay internal.
type Result struct {
	Kind ResultKind
	Tool string
	Text string // tool output, or the error description
	Err  error  // underlying error, nil for ResultOK
}

// IsError reports whether the dispatch failed.
func (r *Result) IsError() bool { return r.Kind != ResultOK }

// Observation is the text fed back to the model.
func (r *Result) Observation() string {
	if r.IsError() {
		return ErrorPrefix + r.Text
	}
	return r.Text
}
