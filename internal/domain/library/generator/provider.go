package generator

import "fmt"

type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Options select and configure a model provider.
type Options struct {
	Provider Provider
	APIKey   string
	BaseURL  string
	Model    string
}

// New builds the Generator for opts.Provider.
func New(opts Options) (Generator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("no api key configured for provider %q", opts.Provider)
	}

	switch opts.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIGenerator(opts.APIKey, opts.BaseURL, opts.Model), nil
	case ProviderAnthropic:
		return NewAnthropicGenerator(opts.APIKey, opts.BaseURL, opts.Model), nil
	default:
		return nil, fmt.Errorf("unknown generator provider: %s", opts.Provider)
	}
}
