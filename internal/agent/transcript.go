package agent

import (
	"github.com/nextlevelbuilder/goreact/internal/providers"
)

// WrapQuestion frames the user's task for the first user message.
func WrapQuestion(task string) string {
	return "<question>" + task + "</question>"
}

// WrapObservation frames tool output for an observation message.
func WrapObservation(text string) string {
	return "<observation>" + text + "</observation>"
}

// Transcript is the append-only message history of one run.
type Transcript struct {
	msgs []providers.Message
}

// NewTranscript seeds a transcript with the system prompt and the task.
func NewTranscript(systemPrompt, task string) *Transcript {
	return &Transcript{msgs: []providers.Message{
		{Role: providers.RoleSystem, Content: systemPrompt},
		{Role: providers.RoleUser, Content: WrapQuestion(task)},
	}}
}

// AppendAssistant records one model turn.
func (t *Transcript) AppendAssistant(content string) {
	t.msgs = append(t.msgs, providers.Message{Role: providers.RoleAssistant, Content: content})
}

// AppendObservation records tool output as a user message. It must directly
// follow an assistant turn.
func (t *Transcript) AppendObservation(text string) error {
	if last := t.msgs[len(t.msgs)-1]; last.Role != providers.RoleAssistant {
		return &ProtocolViolation{Reason: "observation without a preceding assistant turn"}
	}
	t.msgs = append(t.msgs, providers.Message{Role: providers.RoleUser, Content: WrapObservation(text)})
	return nil
}

// Messages returns a copy of the history.
func (t *Transcript) Messages() []providers.Message {
	out := make([]providers.Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int { return len(t.msgs) }
