package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestOllama(t *testing.T, handler http.Handler) *OllamaClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOllamaClient(server.URL, "phi3:3.8b", 5*time.Second, zap.NewNop())
}

func TestGenerate(t *testing.T) {
	client := newTestOllama(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Model != "phi3:3.8b" {
			t.Errorf("model = %q", req.Model)
		}
		if req.Prompt != "the prompt" || req.System != "the system" {
			t.Errorf("request = %+v", req)
		}
		if req.Stream {
			t.Error("streaming must be disabled")
		}
		io.WriteString(w, `{"response":"generated text"}`)
	}))

	got, err := client.Generate(context.Background(), "the prompt", "the system")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "generated text" {
		t.Errorf("response = %q", got)
	}
}

func TestGenerateServerError(t *testing.T) {
	client := newTestOllama(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "model not loaded")
	}))

	if _, err := client.Generate(context.Background(), "p", "s"); err == nil {
		t.Error("expected an error for a 500 response")
	}
}

func TestGenerateEmptyResponseIsError(t *testing.T) {
	client := newTestOllama(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"response":""}`)
	}))

	if _, err := client.Generate(context.Background(), "p", "s"); err == nil {
		t.Error("expected an error for an empty generation")
	}
}
