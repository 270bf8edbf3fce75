package providers

import (
	"errors"
	"time"
)

// Options is the subset of configuration needed to build a provider.
type Options struct {
	Name    string
	APIKey  string
	APIBase string
	Model   string
	RPM     int
	Timeout time.Duration
}

// New builds the provider for opts.Name. "dashscope" gets DashScope defaults;
// any other name is treated as a generic OpenAI-compatible endpoint.
func New(opts Options) (Provider, error) {
	if opts.APIKey == "" {
		return nil, errors.New("provider api key is required")
	}

	var p Provider
	switch opts.Name {
	case "", "dashscope":
		d := NewDashScopeProvider(opts.APIKey, opts.APIBase, opts.Model)
		d.WithTimeout(opts.Timeout)
		p = d
	default:
		o := NewOpenAIProvider(opts.Name, opts.APIKey, opts.APIBase, opts.Model)
		o.WithTimeout(opts.Timeout)
		p = o
	}
	return NewRateLimited(p, opts.RPM), nil
}

// APIBaseOf returns the endpoint p sends requests to, looking through the
// rate limiter. It is empty for providers that do not expose one.
func APIBaseOf(p Provider) string {
	if rl, ok := p.(*RateLimited); ok {
		p = rl.Provider
	}
	if e, ok := p.(interface{ APIBase() string }); ok {
		return e.APIBase()
	}
	return ""
}
