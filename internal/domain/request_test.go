package domain

import (
	"errors"
	"strings"
	"testing"
)

func validRequest() GenerateRequest {
	return GenerateRequest{
		Prompt:       "What is the capital of France?",
		Temperatures: []float64{0.1, 0.5},
		TopPs:        []float64{0.8, 1.0},
		SingleLLM:    true,
		Models:       []string{"gpt-4o"},
	}
}

func TestGenerateRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *GenerateRequest)
		wantField string
	}{
		{"valid", func(r *GenerateRequest) {}, ""},
		{"empty prompt", func(r *GenerateRequest) { r.Prompt = "" }, "prompt"},
		{"whitespace prompt", func(r *GenerateRequest) { r.Prompt = "  \n\t" }, "prompt"},
		{"prompt too long", func(r *GenerateRequest) { r.Prompt = strings.Repeat("a", MaxPromptLength+1) }, "prompt"},
		{"prompt at limit", func(r *GenerateRequest) { r.Prompt = strings.Repeat("a", MaxPromptLength) }, ""},
		{"no models", func(r *GenerateRequest) { r.Models = nil }, "models"},
		{"too many models", func(r *GenerateRequest) { r.Models = make([]string, MaxModels+1) }, "models"},
		{"blank model id", func(r *GenerateRequest) { r.Models = []string{" "} }, "models"},
		{"no temperatures", func(r *GenerateRequest) { r.Temperatures = nil }, "temperatures"},
		{"temperature too high", func(r *GenerateRequest) { r.Temperatures = []float64{2.1} }, "temperatures"},
		{"negative temperature", func(r *GenerateRequest) { r.Temperatures = []float64{-0.1} }, "temperatures"},
		{"temperature bounds", func(r *GenerateRequest) { r.Temperatures = []float64{0, 2} }, ""},
		{"no top_p", func(r *GenerateRequest) { r.TopPs = []float64{} }, "top_ps"},
		{"top_p too high", func(r *GenerateRequest) { r.TopPs = []float64{1.5} }, "top_ps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRequest()
			tt.mutate(&r)
			err := r.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, ve.Field)
			}
		})
	}
}

func TestNetworkError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	tests := []struct {
		name string
		err  *NetworkError
		want string
	}{
		{"explicit message", &NetworkError{Op: "fetch status", Message: "timeout", Err: cause}, "timeout"},
		{"cause only", &NetworkError{Op: "fetch status", Err: cause}, "dial tcp: connection refused"},
		{"status only", &NetworkError{Op: "fetch status", StatusCode: 502}, "fetch status: unexpected status 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	wrapped := &NetworkError{Op: "x", Err: cause}
	if !errors.Is(wrapped, cause) {
		t.Errorf("expected errors.Is to find cause")
	}
	if !IsNetworkError(wrapped) || IsValidationError(wrapped) {
		t.Errorf("classification helpers disagree")
	}
}

func TestProviderDisplayName(t *testing.T) {
	tests := map[string]string{
		"openai":    "OpenAI",
		"llama_cpp": "Llama.cpp",
		"mock":      "Mock",
		"mistral":   "mistral",
		"":          "",
	}
	for in, want := range tests {
		if got := ProviderDisplayName(in); got != want {
			t.Errorf("ProviderDisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProviderNeedsAPIKey(t *testing.T) {
	for _, p := range []string{ProviderOllama, ProviderLlamaCpp, ProviderMock} {
		if ProviderNeedsAPIKey(p) {
			t.Errorf("expected %s to need no key", p)
		}
	}
	for _, p := range []string{ProviderOpenAI, ProviderAnthropic, ProviderOpenRouter} {
		if !ProviderNeedsAPIKey(p) {
			t.Errorf("expected %s to need a key", p)
		}
	}
}

func TestPlot_Points(t *testing.T) {
	p := Plot{Data: []float64{1, 2, 3}, Labels: []string{"a", "b"}}
	points := p.Points()
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[1].Label != "b" || points[1].Value != 2 {
		t.Errorf("unexpected point: %+v", points[1])
	}
}

func TestAPIKey_Masked(t *testing.T) {
	if got := (APIKey{Key: "sk-abcdef1234"}).Masked(); got != "****1234" {
		t.Errorf("Masked() = %q", got)
	}
	if got := (APIKey{Key: "abc"}).Masked(); got != "****" {
		t.Errorf("Masked() short = %q", got)
	}
}
