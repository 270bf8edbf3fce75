package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nextlevelbuilder/goreact/internal/agent"
	"github.com/nextlevelbuilder/goreact/internal/config"
)

func TestConsoleEvents(t *testing.T) {
	var buf bytes.Buffer
	c := newConsole(&buf)

	c.OnModelCall(1)
	c.OnThought("look at the file")
	c.OnAction(agent.Action{Name: "write_to_file", Parameters: map[string]interface{}{"file_path": "/tmp/x"}}, true)
	c.OnObservation("write_to_file", "write succeeded", false)
	c.OnObservation("read_file", "tool execution error: no such file", true)
	c.OnFinalAnswer("done")
	c.OnCancelled()

	out := buf.String()
	for _, want := range []string{
		"turn 1",
		"look at the file",
		"write_to_file",
		`{"file_path":"/tmp/x"}`,
		"needs confirmation",
		"write succeeded",
		"no such file",
		"done",
		agent.CancelledResult,
	} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "look at the file"), strings.Index(out, "write succeeded"))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("  short \n", 10))
	assert.Equal(t, "abc... (3 more chars)", preview("abcdef", 3))
	assert.Equal(t, "héll... (1 more chars)", preview("héllo", 4))
}

func TestApplyRunOverrides(t *testing.T) {
	cfg := config.Default()
	applyRunOverrides(cfg, runOptions{maxTurns: -1})
	assert.Equal(t, "qwen3-coder-plus", cfg.Provider.Model)
	assert.Equal(t, 0, cfg.Agent.MaxTurns)

	applyRunOverrides(cfg, runOptions{model: "qwen-max", maxTurns: 12, workspace: "/srv"})
	assert.Equal(t, "qwen-max", cfg.Provider.Model)
	assert.Equal(t, 12, cfg.Agent.MaxTurns)
	assert.Equal(t, "/srv", cfg.Agent.Workspace)
}
