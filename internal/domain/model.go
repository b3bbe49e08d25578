package domain

import "errors"

// Model is an entry of GET /llms/providers.
type Model struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Provider    string  `json:"provider"`
	Description *string `json:"description,omitempty"`
}

// Validate rejects entries the dashboard cannot select.
func (m Model) Validate() error {
	if m.ID == "" {
		return errors.New("model id is required")
	}
	if m.Provider == "" {
		return errors.New("model provider is required")
	}
	return nil
}

// IsMock reports whether the model belongs to the backend's mock provider.
func (m Model) IsMock() bool {
	return m.Provider == ProviderMock
}

const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGoogle     = "google"
	ProviderOllama     = "ollama"
	ProviderLlamaCpp   = "llama_cpp"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

var providerDisplayNames = map[string]string{
	ProviderOpenAI:     "OpenAI",
	ProviderAnthropic:  "Anthropic",
	ProviderGoogle:     "Google",
	ProviderOllama:     "Ollama",
	ProviderLlamaCpp:   "Llama.cpp",
	ProviderOpenRouter: "OpenRouter",
	ProviderMock:       "Mock",
}

// ProviderDisplayName returns the human name for a backend provider id.
// Unknown ids are returned verbatim.
func ProviderDisplayName(provider string) string {
	if name, ok := providerDisplayNames[provider]; ok {
		return name
	}
	return provider
}

// ProviderNeedsAPIKey is false for locally hosted and mock providers.
func ProviderNeedsAPIKey(provider string) bool {
	switch provider {
	case ProviderOllama, ProviderLlamaCpp, ProviderMock, "":
		return false
	default:
		return true
	}
}

// APIKey is a user-supplied credential for one provider.
type APIKey struct {
	Provider string
	Name     string
	Key      string
}

// Masked returns the key with everything but the last four characters hidden.
func (k APIKey) Masked() string {
	if len(k.Key) <= 4 {
		return "****"
	}
	return "****" + k.Key[len(k.Key)-4:]
}
