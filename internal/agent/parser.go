package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Region tags of the turn protocol.
const (
	TagThought     = "thought"
	TagAction      = "action"
	TagFinalAnswer = "final_answer"
)

var regionTags = []string{TagThought, TagAction, TagFinalAnswer}

// ResponseKind is the terminal directive carried by one assistant turn.
type ResponseKind int

const (
	KindAction ResponseKind = iota + 1
	KindFinalAnswer
)

func (k ResponseKind) String() string {
	switch k {
	case KindAction:
		return "action"
	case KindFinalAnswer:
		return "final_answer"
	default:
		return "unknown"
	}
}

// Action is a requested tool invocation. It lives for one loop iteration.
type Action struct {
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters"`
}

// Response is the parsed intent of one assistant turn: an optional thought
// and exactly one of Action or FinalAnswer.
type Response struct {
	Thought     string
	HasThought  bool
	Kind        ResponseKind
	Action      *Action
	FinalAnswer string
}

type region struct {
	tag  string
	body string
}

// ParseResponse extracts the turn directive from raw model text.
//
// Regions may appear anywhere in the text, span lines and be surrounded by
// prose. A region ends at the first matching close tag; an open tag that is
// never closed is treated as prose. Errors are
// *ProtocolViolation or *ActionFormatError.
func ParseResponse(text string) (*Response, error) {
	regions, unterminated := scanRegions(text)

	var thoughts, actions, finals []string
	for _, r := range regions {
		switch r.tag {
		case TagThought:
			thoughts = append(thoughts, r.body)
		case TagAction:
			actions = append(actions, r.body)
		case TagFinalAnswer:
			finals = append(finals, r.body)
		}
	}

	switch {
	case len(thoughts) > 1:
		return nil, &ProtocolViolation{Reason: fmt.Sprintf("%d <thought> regions, at most one allowed", len(thoughts)), Raw: text}
	case len(actions) > 0 && len(finals) > 0:
		return nil, &ProtocolViolation{Reason: "both <action> and <final_answer> present", Raw: text}
	case len(actions) == 0 && len(finals) == 0:
		for _, tag := range unterminated {
			if tag != TagThought {
				return nil, &ProtocolViolation{Reason: fmt.Sprintf("unterminated <%s> region", tag), Raw: text}
			}
		}
		return nil, &ProtocolViolation{Reason: "neither <action> nor <final_answer> present", Raw: text}
	case len(actions) > 1:
		return nil, &ProtocolViolation{Reason: fmt.Sprintf("%d <action> regions, exactly one allowed", len(actions)), Raw: text}
	case len(finals) > 1:
		return nil, &ProtocolViolation{Reason: fmt.Sprintf("%d <final_answer> regions, exactly one allowed", len(finals)), Raw: text}
	}

	resp := &Response{}
	if len(thoughts) == 1 {
		resp.Thought = strings.TrimSpace(thoughts[0])
		resp.HasThought = true
	}

	if len(finals) == 1 {
		resp.Kind = KindFinalAnswer
		resp.FinalAnswer = strings.TrimSpace(finals[0])
		return resp, nil
	}

	action, err := parseAction(actions[0])
	if err != nil {
		return nil, err
	}
	resp.Kind = KindAction
	resp.Action = action
	return resp, nil
}

// scanRegions walks text left to right collecting tagged regions. An open
// tag with no matching close tag is prose; its name is reported in
// unterminated so a turn with no complete directive can say why.
func scanRegions(text string) (regions []region, unterminated []string) {
	pos := 0
	for {
		tag, start := nextOpenTag(text, pos)
		if tag == "" {
			return regions, unterminated
		}
		openTag := "<" + tag + ">"
		closeTag := "</" + tag + ">"
		bodyStart := start + len(openTag)
		end := strings.Index(text[bodyStart:], closeTag)
		if end < 0 {
			unterminated = append(unterminated, tag)
			pos = bodyStart
			continue
		}
		body := text[bodyStart : bodyStart+end]
		// "<action> ... <action>{...}</action>": the last open tag starts the region.
		if i := strings.LastIndex(body, openTag); i >= 0 {
			body = body[i+len(openTag):]
		}
		regions = append(regions, region{tag: tag, body: body})
		pos = bodyStart + end + len(closeTag)
	}
}

// nextOpenTag returns the earliest open tag at or after from.
func nextOpenTag(text string, from int) (string, int) {
	tag, at := "", -1
	rest := text[from:]
	for _, t := range regionTags {
		i := strings.Index(rest, "<"+t+">")
		if i >= 0 && (at < 0 || from+i < at) {
			tag, at = t, from+i
		}
	}
	return tag, at
}

func parseAction(raw string) (*Action, error) {
	payload := stripCodeFence(strings.TrimSpace(raw))
	if payload == "" {
		return nil, &ActionFormatError{Raw: raw, Reason: "empty action"}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return nil, &ActionFormatError{Raw: raw, Reason: "action is not a JSON object", Err: err}
	}
	if obj == nil {
		return nil, &ActionFormatError{Raw: raw, Reason: "action is not a JSON object"}
	}

	nameRaw, ok := obj["name"]
	if !ok {
		return nil, &ActionFormatError{Raw: raw, Reason: `missing "name"`}
	}
	var name string
	if err := json.Unmarshal(nameRaw, &name); err != nil {
		return nil, &ActionFormatError{Raw: raw, Reason: `"name" must be a string`, Err: err}
	}
	if strings.TrimSpace(name) == "" {
		return nil, &ActionFormatError{Raw: raw, Reason: `"name" is empty`}
	}

	paramsRaw, ok := obj["parameters"]
	if !ok {
		return nil, &ActionFormatError{Raw: raw, Reason: `missing "parameters"`}
	}
	if bytes.Equal(bytes.TrimSpace(paramsRaw), []byte("null")) {
		return nil, &ActionFormatError{Raw: raw, Reason: `"parameters" must be an object`}
	}
	var params map[string]interface{}
	if err := json.Unmarshal(paramsRaw, &params); err != nil {
		return nil, &ActionFormatError{Raw: raw, Reason: `"parameters" must be an object`, Err: err}
	}

	return &Action{Name: name, Parameters: params}, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
