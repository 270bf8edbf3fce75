package agent

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"sort"
	"strings"
)

// Substitution points of the system prompt template.
const (
	VarToolList         = "tool_list"
	VarOperatingSystem  = "operating_system"
	VarCurrentDirectory = "current_directory"
)

// DefaultPromptTemplate teaches the model the tagged-region turn protocol.
const DefaultPromptTemplate = `You need to solve a problem. To do so, break it into steps. For each step, first think about what to do inside <thought>, then request a tool call inside <action> (the request only, you do not run it). The agent runs the tool and returns an <observation>; keep thinking based on the observation until you can give a <final_answer>.

Use exactly these XML tags for every step:
- <question> the user's question
- <thought> your reasoning (whether a tool is needed, which one, and with what parameters)
- <action> a tool call request as JSON with the tool name and parameters
- <observation> the tool result, filled in by the agent (never write it yourself)
- <final_answer> the final answer

---

Example 1:

<question>Read the contents of /tmp/example.txt</question>
<thought>I need to read the file, so I use read_file with the absolute path /tmp/example.txt</thought>
<action>{"name": "read_file", "parameters": {"file_path": "/tmp/example.txt"}}</action>
<observation>Hello World!</observation>
<thought>I have the file contents and need no more tools</thought>
<final_answer>The contents of /tmp/example.txt are: Hello World!</final_answer>

---

Example 2:

<question>Create test.py in the current directory and write some code into it</question>
<thought>First look at the current directory with list_directory</thought>
<action>{"name": "list_directory", "parameters": {"directory_path": "."}}</action>
<observation>file1.txt file2.py</observation>
<thought>Now create test.py with write_to_file</thought>
<action>{"name": "write_to_file", "parameters": {"file_path": "./test.py", "content": "print('Hello World')"}}</action>
<observation>write succeeded</observation>
<thought>Verify the file with read_file</thought>
<action>{"name": "read_file", "parameters": {"file_path": "./test.py"}}</action>
<observation>print('Hello World')</observation>
<thought>The file was created and written, the task is done</thought>
<final_answer>Created test.py containing: print('Hello World')</final_answer>

---

Rules:
- Every reply contains two tags: first <thought>, then <action> (task not done) or <final_answer> (task done).
- <action> must contain a JSON object with "name" (tool name) and "parameters" (an object). Stop generating right after </action> and wait for the real <observation>. Never write an <observation> yourself.
- Parameters must match the tool definition's names and types. Prefer absolute file paths.
- Only use tools from the list below.

---

Tools available for this task:
${tool_list}

---

Environment:
Operating system: ${operating_system}
Current directory: ${current_directory}
`

var placeholderRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// PromptData fills the template's substitution points.
type PromptData struct {
	ToolList         string
	OperatingSystem  string
	CurrentDirectory string
}

// RenderPrompt substitutes ${name} placeholders. Unknown placeholders are an error.
func RenderPrompt(tmpl string, data PromptData) (string, error) {
	vars := map[string]string{
		VarToolList:         data.ToolList,
		VarOperatingSystem:  data.OperatingSystem,
		VarCurrentDirectory: data.CurrentDirectory,
	}

	unknown := map[string]bool{}
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		v, ok := vars[name]
		if !ok {
			unknown[name] = true
			return m
		}
		return v
	})

	if len(unknown) > 0 {
		names := make([]string, 0, len(unknown))
		for n := range unknown {
			names = append(names, n)
		}
		sort.Strings(names)
		return "", fmt.Errorf("prompt template: unknown placeholder(s) %s", strings.Join(names, ", "))
	}
	return out, nil
}

// LoadPromptTemplate reads a template from path, or returns the default when path is empty.
func LoadPromptTemplate(path string) (string, error) {
	if path == "" {
		return DefaultPromptTemplate, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt template: %w", err)
	}
	return string(data), nil
}

// OperatingSystemName maps a GOOS value to the name shown to the model.
func OperatingSystemName(goos string) string {
	switch goos {
	case "darwin":
		return "macOS"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	default:
		return "Unknown"
	}
}

// HostOperatingSystem is OperatingSystemName for the running binary.
func HostOperatingSystem() string { return OperatingSystemName(runtime.GOOS) }
