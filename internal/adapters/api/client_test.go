package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/emiliopalmerini/mlab/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/"}, srv.Client())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestClient_FetchStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/llms/experiment/exp-1/status" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get(requestIDHeader) == "" {
			t.Errorf("expected %s header", requestIDHeader)
		}
		_, _ = w.Write([]byte(`{"id":"exp-1","name":"e","original_message":"hi","status":"running","created_at":"2025-01-01T00:00:00","responses":[]}`))
	})

	status, err := c.FetchStatus(context.Background(), "exp-1")
	if err != nil {
		t.Fatalf("FetchStatus failed: %v", err)
	}
	if status.Status != domain.StatusRunning || status.OriginalMessage != "hi" {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestClient_NetworkErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{"fastapi detail", http.StatusInternalServerError, `{"detail":"Internal server error: boom"}`, "Internal server error: boom"},
		{"validation detail", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","prompt"]}]}`, `[{"loc":["body","prompt"]}]`},
		{"plain text", http.StatusBadGateway, "bad gateway", "request failed: 502 Bad Gateway"},
		{"not found", http.StatusNotFound, `{"detail":""}`, "request failed: 404 Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.FetchStatus(context.Background(), "exp-1")
			var ne *domain.NetworkError
			if !errors.As(err, &ne) {
				t.Fatalf("expected NetworkError, got %v", err)
			}
			if ne.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, ne.StatusCode)
			}
			if ne.Error() != tt.wantMessage {
				t.Errorf("expected message %q, got %q", tt.wantMessage, ne.Error())
			}
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewClient(Config{BaseURL: url}, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = c.FetchStatus(context.Background(), "exp-1")
	if !domain.IsNetworkError(err) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestClient_InvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":`))
	})
	if _, err := c.FetchStatus(context.Background(), "exp-1"); !domain.IsNetworkError(err) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestClient_Generate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/llms/generate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		var req domain.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if req.Prompt != "hello" || len(req.Models) != 2 || !req.SingleLLM || req.APIKeys["openai"] != "sk-1" {
			t.Errorf("unexpected request body: %+v", req)
		}
		_, _ = w.Write([]byte(`{"experiment_id":"exp-9","status":"pending","message":"started"}`))
	})

	resp, err := c.Generate(context.Background(), domain.GenerateRequest{
		Prompt:       "hello",
		Temperatures: []float64{0.1, 0.5},
		TopPs:        []float64{0.9},
		SingleLLM:    true,
		Models:       []string{"gpt-4o", "claude-4"},
		APIKeys:      map[string]string{"openai": "sk-1"},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.ExperimentID != "exp-9" || resp.Status != "pending" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestClient_GenerateMissingExperimentID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"pending"}`))
	})
	if _, err := c.Generate(context.Background(), domain.GenerateRequest{}); !domain.IsNetworkError(err) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestClient_ListModelsDropsInvalidEntries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[
			{"id":"gpt-4o","name":"GPT-4o","provider":"openai"},
			{"id":"llama3:8b","provider":"ollama"},
			{"name":"nameless","provider":"openai"},
			{"id":"orphan","name":"Orphan"}
		]}`))
	})

	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d: %+v", len(models), models)
	}
	if models[1].Name != "llama3:8b" {
		t.Errorf("expected name to default to id, got %q", models[1].Name)
	}
}

func TestClient_ExperimentsAndMetrics(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /experiments", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"experiments":[{"id":"a","name":"A","created_at":"2025-01-01T00:00:00"}]}`))
	})
	mux.HandleFunc("GET /experiments/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"` + r.PathValue("id") + `","name":"A","original_message":"p"}`))
	})
	mux.HandleFunc("GET /metrics/experiments/{id}/quality", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"Readability Ease","description":"d","value":[1,2],"graph":"bar","plot":{"x_axis":"Responses","y_axis":"Ease Score","data":[1,2],"labels":["a","b"]}}]`))
	})
	mux.HandleFunc("POST /llms/experiment/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"cancelled","cancelled":true}`))
	})
	mux.HandleFunc("GET /api-keys/check/{provider}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"provider":"` + r.PathValue("provider") + `","has_key":true}`))
	})
	c := newTestClient(t, mux.ServeHTTP)
	ctx := context.Background()

	list, err := c.ListExperiments(ctx)
	if err != nil || len(list) != 1 || list[0].ID != "a" {
		t.Fatalf("ListExperiments = %+v, %v", list, err)
	}

	detail, err := c.GetExperiment(ctx, "a")
	if err != nil || detail.ID != "a" || detail.Results == nil {
		t.Fatalf("GetExperiment = %+v, %v", detail, err)
	}

	metrics, err := c.QualityMetrics(ctx, "a")
	if err != nil || len(metrics) != 1 || metrics[0].Plot.YAxis != "Ease Score" {
		t.Fatalf("QualityMetrics = %+v, %v", metrics, err)
	}

	cancelResp, err := c.Cancel(ctx, "a")
	if err != nil || !cancelResp.Cancelled {
		t.Fatalf("Cancel = %+v, %v", cancelResp, err)
	}

	hasKey, err := c.CheckAPIKey(ctx, "openai")
	if err != nil || !hasKey {
		t.Fatalf("CheckAPIKey = %v, %v", hasKey, err)
	}
}

func TestClient_GetExperimentBackendPayload(t *testing.T) {
	const payload = `{
		"id": "e1",
		"name": "Capitals",
		"original_message": "Capital of France?",
		"created_at": 1734567890.123,
		"results": [{"id": "r1", "llm_provider": "openai", "response_text": "raw row"}],
		"llm_results": [
			{"provider": "openai", "model": "gpt-4o", "temperature": 0.7, "top_p": 0.9,
			 "response": "Paris", "tokens_used": 12, "execution_time": 1.5, "success": true, "error": null}
		]
	}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	})

	detail, err := c.GetExperiment(context.Background(), "e1")
	if err != nil {
		t.Fatalf("GetExperiment failed: %v", err)
	}
	if len(detail.Results) != 1 || detail.Results[0].Response != "Paris" || detail.Results[0].Model != "gpt-4o" {
		t.Errorf("expected llm_results to be decoded, got %+v", detail.Results)
	}
	if got := detail.CreatedTime(); got.Unix() != 1734567890 || got.Nanosecond() != 123000000 {
		t.Errorf("unexpected created time %v", got)
	}

	empty := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"e2","name":"","original_message":"","created_at":1734567890.123,"results":[],"llm_results":[]}`))
	})
	detail, err = empty.GetExperiment(context.Background(), "e2")
	if err != nil || detail.Results == nil || len(detail.Results) != 0 {
		t.Errorf("GetExperiment = %+v, %v", detail, err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", DefaultBaseURL, false},
		{"http://api.local:8000/", "http://api.local:8000", false},
		{"https://api.example.com/v1", "https://api.example.com/v1", false},
		{"ftp://nope", "", true},
		{"::bad", "", true},
	}
	for _, tt := range tests {
		cfg := Config{BaseURL: tt.in}
		err := cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && cfg.BaseURL != tt.want {
			t.Errorf("Validate(%q) = %q, want %q", tt.in, cfg.BaseURL, tt.want)
		}
	}
}
