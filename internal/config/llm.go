package config

// LLMConfig configures the text-generation collaborator.
type LLMConfig struct {
	Provider   string `yaml:"provider"` // gemini, openai, openrouter, none
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"` // OpenAI-compatible endpoints only
	Timeout    string `yaml:"timeout"`
	MaxRetries int    `yaml:"max_retries"`
	Backoff    string `yaml:"backoff"` // initial backoff, doubles per retry
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"gemini", "openai", "openrouter", "none"}

// HasCredentials reports whether the provider can make remote calls.
func (c LLMConfig) HasCredentials() bool {
	return c.Provider != "none" && c.APIKey != ""
}
