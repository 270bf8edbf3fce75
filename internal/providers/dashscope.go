package providers

const (
	dashscopeDefaultBase  = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	dashscopeDefaultModel = "qwen3-coder-plus"
)

// DashScopeProvider wraps OpenAIProvider with DashScope's compatible-mode defaults.
// DashScope rejects "title"/"$schema" keys inside tool schemas; CleanToolSchemas
// strips them because the embedded provider is named "dashscope".
type DashScopeProvider struct {
	*OpenAIProvider
}

func NewDashScopeProvider(apiKey, apiBase, defaultModel string) *DashScopeProvider {
	if apiBase == "" {
		apiBase = dashscopeDefaultBase
	}
	if defaultModel == "" {
		defaultModel = dashscopeDefaultModel
	}
	return &DashScopeProvider{
		OpenAIProvider: NewOpenAIProvider("dashscope", apiKey, apiBase, defaultModel),
	}
}

func (p *DashScopeProvider) Name() string { return "dashscope" }
