package cmd

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/goreact/internal/agent"
	"github.com/nextlevelbuilder/goreact/internal/config"
	"github.com/nextlevelbuilder/goreact/internal/mcp"
	"github.com/nextlevelbuilder/goreact/internal/providers"
)

// formatAgentError turns a fatal run error into one line for the terminal.
// Raw API payloads are only logged, never printed.
func formatAgentError(err error) string {
	var (
		violation  *agent.ProtocolViolation
		badAction  *agent.ActionFormatError
		transport  *mcp.TransportError
		modelError *providers.ModelCallError
	)

	switch {
	case errors.Is(err, context.Canceled):
		return "Interrupted."
	case errors.Is(err, agent.ErrInjectionBlocked):
		return "Task rejected: it looks like a prompt injection attempt."
	case errors.Is(err, config.ErrNoAPIKey):
		return "No API key configured. Run 'goreact auth set' or set GOREACT_API_KEY."
	case errors.As(err, &badAction):
		return "The model sent a malformed action (" + badAction.Reason + "). Try again or rephrase the task."
	case errors.As(err, &violation):
		return "The model broke the reply format: " + violation.Reason + "."
	case errors.As(err, &transport):
		return "Tool server error: " + transport.Error()
	case errors.As(err, &modelError):
		return formatModelError(modelError)
	}

	lower := strings.ToLower(err.Error())
	if containsAny(lower, "timeout", "timed out", "deadline exceeded") {
		return "Request timed out. Please try again."
	}
	slog.Warn("unclassified agent error", "error", err.Error())
	return "Error: " + err.Error()
}

func formatModelError(e *providers.ModelCallError) string {
	lower := strings.ToLower(e.Error())

	switch {
	case e.Status == 429 || containsAny(lower, "rate limit", "rate_limit", "too many requests", "quota exceeded"):
		return "API rate limit reached. Please try again later."
	case e.Status == 402 || containsAny(lower, "billing", "insufficient credits", "payment required", "arrearage"):
		return "API billing error: your API key may have run out of credits."
	case e.Status == 401 || e.Status == 403 || containsAny(lower, "invalid api key", "invalid_api_key", "unauthorized", "access denied"):
		return "Authentication error. Please check your API key configuration."
	case containsAny(lower, "context length exceeded", "maximum context length", "prompt is too long", "request_too_large"):
		return "Context overflow: the conversation no longer fits the model. Try a shorter task or a lower max_observation_chars."
	case strings.Contains(lower, "overloaded") || e.Status == 503:
		return "The model service is temporarily overloaded. Please try again in a moment."
	case containsAny(lower, "timeout", "timed out", "deadline exceeded"):
		return "Model request timed out. Please try again."
	case containsAny(lower, "not a valid model", "model_not_found", "model not found"):
		return "Model configuration error. Please check provider.model."
	}

	slog.Warn("unclassified model error", "provider", e.Provider, "status", e.Status, "error", e.Error())
	return "Model call failed. Run with --verbose for details."
}

// containsAny returns true if s contains any of the given substrings.
func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
