package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	ProviderDashScope = "dashscope"
	ProviderOpenAI    = "openai"
)

var (
	validProviderRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
	invalidChars    = regexp.MustCompile(`[^a-z0-9_-]+`)
)

// providerAliases maps common spellings onto canonical provider names.
var providerAliases = map[string]string{
	"qwen":      ProviderDashScope,
	"aliyun":    ProviderDashScope,
	"bailian":   ProviderDashScope,
	"dashscope": ProviderDashScope,
	"openai":    ProviderOpenAI,
}

// NormalizeProviderName converts a user-provided provider name into its canonical form:
//   - Lowercase, max 64 chars
//   - Only [a-z0-9_-] allowed, invalid runs replaced with "-"
//   - Known aliases ("qwen", "aliyun") resolved
//   - Empty result defaults to "dashscope"
func NormalizeProviderName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return ProviderDashScope
	}
	if !validProviderRe.MatchString(lower) {
		lower = strings.Trim(invalidChars.ReplaceAllString(lower, "-"), "-")
		if len(lower) > 64 {
			lower = lower[:64]
		}
	}
	if canonical, ok := providerAliases[lower]; ok {
		return canonical
	}
	if lower == "" {
		return ProviderDashScope
	}
	return lower
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
