package agent

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Injection guard actions, configured via agent.injection_action.
const (
	GuardOff   = "off"   // disable scanning entirely
	GuardLog   = "log"   // info-level logging
	GuardWarn  = "warn"  // warning-level logging (default)
	GuardBlock = "block" // reject the task before any model call
)

// guardPattern pairs a human-readable name with a compiled regex.
type guardPattern struct {
	name    string
	pattern *regexp.Regexp
}

// InputGuard scans tasks for known prompt injection patterns.
type InputGuard struct {
	patterns []guardPattern
}

// NewInputGuard creates an InputGuard with the default set of injection detection patterns.
func NewInputGuard() *InputGuard {
	return &InputGuard{
		patterns: defaultGuardPatterns(),
	}
}

// Scan checks a message against all known injection patterns.
// Returns the names of matched patterns (empty slice = no matches).
func (g *InputGuard) Scan(message string) []string {
	if message == "" {
		return nil
	}
	var matches []string
	for _, gp := range g.patterns {
		if gp.pattern.MatchString(message) {
			matches = append(matches, gp.name)
		}
	}
	return matches
}

// defaultGuardPatterns returns the built-in set of injection detection patterns.
// These are designed to detect common prompt injection techniques while
// minimizing false positives on legitimate user messages.
func defaultGuardPatterns() []guardPattern {
	return []guardPattern{
		{
			name:    "ignore_instructions",
			pattern: regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier|preceding)\s+(instructions?|rules?|prompts?|directives?|guidelines?)`),
		},
		{
			name:    "role_override",
			pattern: regexp.MustCompile(`(?i)(you are now|from now on you are|pretend you are|act as if you are|imagine you are)\s+`),
		},
		{
			name:    "system_tags",
			pattern: regexp.MustCompile(`(?i)</?system>|\[SYSTEM\]|\[INST\]|<<SYS>>|<\|im_start\|>system`),
		},
		{
			name:    "instruction_injection",
			pattern: regexp.MustCompile(`(?i)(new instructions?:|override:|system prompt:|<\|system\|>)`),
		},
		{
			name:    "null_bytes",
			pattern: regexp.MustCompile(`\x00`),
		},
		{
			name:    "protocol_tag_forgery",
			pattern: regexp.MustCompile(`(?i)</?(observation|final_answer|action)>`),
		},
		{
			name:    "delimiter_escape",
			pattern: regexp.MustCompile(`(?i)(end of system|begin user input|</?(instructions?|rules|prompt|context)>)`),
		},
	}
}

// Apply scans task and reacts per action. It returns an error wrapping
// ErrInjectionBlocked only when action is GuardBlock and a pattern matched.
func (g *InputGuard) Apply(runID, task, action string) error {
	if g == nil || action == GuardOff {
		return nil
	}
	matches := g.Scan(task)
	if len(matches) == 0 {
		return nil
	}
	switch action {
	case GuardLog:
		slog.Info("input guard: injection pattern in task", "run", runID, "patterns", matches)
	case GuardBlock:
		slog.Warn("input guard: task blocked", "run", runID, "patterns", matches)
		return fmt.Errorf("%w: matched %s", ErrInjectionBlocked, strings.Join(matches, ", "))
	default:
		slog.Warn("input guard: injection pattern in task", "run", runID, "patterns", matches)
	}
	return nil
}

// HasPatterns returns true if the guard has any patterns configured.
func (g *InputGuard) HasPatterns() bool {
	return len(g.patterns) > 0
}

// PatternNames returns the names of all configured patterns.
func (g *InputGuard) PatternNames() []string {
	names := make([]string, len(g.patterns))
	for i, gp := range g.patterns {
		names[i] = gp.name
	}
	return names
}
