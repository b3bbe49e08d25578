package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func init() {
	color.NoColor = true
}

// fakeBackend serves the subset of the experiment API used by the commands.
type fakeBackend struct {
	mu        sync.Mutex
	generated []map[string]any
	cancelled []string
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("GET /llms/providers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"models": []map[string]any{
			{"id": "gpt-4o", "name": "GPT-4o", "provider": "openai"},
			{"id": "mock-llm", "name": "Mock LLM", "provider": "mock"},
		}})
	})
	mux.HandleFunc("POST /llms/generate", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		b.generated = append(b.generated, body)
		b.mu.Unlock()
		writeJSON(w, map[string]any{"experiment_id": "exp-1", "status": "pending"})
	})
	mux.HandleFunc("GET /llms/experiment/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "exp-1" {
			http.Error(w, `{"detail":"Experiment not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{
			"id": "exp-1", "name": "Capitals", "original_message": "Capital of France?", "status": "completed",
			"responses": []map[string]any{{
				"id": "r1", "provider": "mock", "model": "mock-llm", "temperature": 0.1, "top_p": 0.8,
				"response_text": "Paris", "tokens_used": 12, "execution_time": 0.4, "success": true,
			}},
		})
	})
	mux.HandleFunc("POST /llms/experiment/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.cancelled = append(b.cancelled, r.PathValue("id"))
		b.mu.Unlock()
		writeJSON(w, map[string]any{"message": "Experiment cancelled", "cancelled": true})
	})
	mux.HandleFunc("GET /experiments", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"experiments": []map[string]any{
			{"id": "exp-1", "name": "Capitals", "created_at": "2025-01-01T10:00:00"},
			{"id": "exp-2", "name": "Poems", "created_at": "2025-01-02T11:30:00"},
		}})
	})
	mux.HandleFunc("GET /experiments/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id": r.PathValue("id"), "name": "Capitals", "original_message": "Capital of France?",
			"created_at": 1735725600.25,
			"results": []map[string]any{{
				"id": "r1", "llm_provider": "mock", "llm_model": "mock-llm", "response_text": "Paris",
			}},
			"llm_results": []map[string]any{{
				"provider": "mock", "model": "mock-llm", "temperature": 0.1, "top_p": 0.8,
				"response": "Paris", "tokens_used": 12, "execution_time": 0.4, "success": true,
			}},
		})
	})
	mux.HandleFunc("GET /metrics/experiments/{id}/quality", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{
			"name": "Readability", "description": "Flesch score",
			"plot": map[string]any{"x_axis": "response", "y_axis": "score", "data": []float64{61.2}, "labels": []string{"t=0.1"}},
		}})
	})
	mux.HandleFunc("GET /api-keys/check/{provider}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"provider": r.PathValue("provider"), "has_key": r.PathValue("provider") == "openai"})
	})
	return mux
}

// setupEnv points the CLI at a fake backend and a fresh state database.
func setupEnv(t *testing.T) *fakeBackend {
	t.Helper()
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("MLAB_API_URL", srv.URL)
	t.Setenv("MLAB_API_POLL_INTERVAL", "10ms")
	t.Setenv("MLAB_DB_URL", filepath.Join(dir, "state.db"))
	t.Setenv("MLAB_LOG_LEVEL", "error")
	t.Setenv("MLAB_OTEL_ENABLED", "false")
	return backend
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// resetFlags restores every flag to its default so commands do not leak
// values between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			var vals []string
			if def := strings.Trim(f.DefValue, "[]"); def != "" {
				vals = strings.Split(def, ",")
			}
			_ = sv.Replace(vals)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
