package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestHTMX(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{"htmx request", "true", true},
		{"plain request", "", false},
		{"other value", "false", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got bool
			h := HTMX(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = IsHTMX(r)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("HX-Request", tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("IsHTMX() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsHTMX_WithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")
	if !IsHTMX(req) {
		t.Error("expected header fallback")
	}
}

func TestRequestLogger(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	h := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/experiments", nil))
	if e := hook.LastEntry(); e.Level != logrus.InfoLevel || e.Data["status"] != http.StatusOK || e.Data["bytes"] != 2 {
		t.Errorf("unexpected entry %v %v", e.Level, e.Data)
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if e := hook.LastEntry(); e.Level != logrus.DebugLevel {
		t.Errorf("expected debug level for status polls, got %v", e.Level)
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	if e := hook.LastEntry(); e.Level != logrus.ErrorLevel || e.Data["status"] != http.StatusBadGateway {
		t.Errorf("unexpected entry %v %v", e.Level, e.Data)
	}
}
