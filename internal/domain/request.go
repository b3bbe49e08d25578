package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxPromptLength = 10000
	MaxModels       = 10
	MaxTemperature  = 2.0
	MaxTopP         = 1.0
)

// GenerateRequest is the body of POST /llms/generate.
type GenerateRequest struct {
	Prompt       string            `json:"prompt"`
	Temperatures []float64         `json:"temperatures"`
	TopPs        []float64         `json:"top_ps"`
	SingleLLM    bool              `json:"single_llm"`
	Models       []string          `json:"models"`
	MockMode     bool              `json:"mock_mode,omitempty"`
	APIKeys      map[string]string `json:"api_keys,omitempty"`
}

// GenerateResponse is returned when the backend accepted an experiment.
type GenerateResponse struct {
	ExperimentID string `json:"experiment_id"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}

// Validate checks the request against the backend contract.
func (r GenerateRequest) Validate() error {
	prompt := strings.TrimSpace(r.Prompt)
	if prompt == "" {
		return &ValidationError{Field: "prompt", Message: "prompt is required"}
	}
	if utf8.RuneCountInString(r.Prompt) > MaxPromptLength {
		return &ValidationError{Field: "prompt", Message: fmt.Sprintf("prompt must be at most %d characters", MaxPromptLength)}
	}

	if len(r.Models) == 0 {
		return &ValidationError{Field: "models", Message: "select at least one model"}
	}
	if len(r.Models) > MaxModels {
		return &ValidationError{Field: "models", Message: fmt.Sprintf("select at most %d models", MaxModels)}
	}
	for _, m := range r.Models {
		if strings.TrimSpace(m) == "" {
			return &ValidationError{Field: "models", Message: "model id cannot be empty"}
		}
	}

	if len(r.Temperatures) == 0 {
		return &ValidationError{Field: "temperatures", Message: "temperatures cannot be empty"}
	}
	for _, t := range r.Temperatures {
		if t < 0 || t > MaxTemperature {
			return &ValidationError{Field: "temperatures", Message: fmt.Sprintf("temperature %g must be between 0.0 and %.1f", t, MaxTemperature)}
		}
	}

	if len(r.TopPs) == 0 {
		return &ValidationError{Field: "top_ps", Message: "top_p values cannot be empty"}
	}
	for _, p := range r.TopPs {
		if p < 0 || p > MaxTopP {
			return &ValidationError{Field: "top_ps", Message: fmt.Sprintf("top_p %g must be between 0.0 and %.1f", p, MaxTopP)}
		}
	}

	return nil
}
