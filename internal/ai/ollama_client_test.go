package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestOllamaGenerate(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Stream {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "local answer"},
			"done":    true,
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 2, 10*time.Millisecond)
	resp, err := c.Generate(context.Background(), chatRequest())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if resp.Text() != "local answer" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestOllamaRetriesOn5xx(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "ok"},
			"done":    true,
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 2, 10*time.Millisecond)
	resp, err := c.Generate(context.Background(), chatRequest())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if resp.Text() != "ok" || calls != 2 {
		t.Fatalf("resp = %+v, calls = %d", resp, calls)
	}
}

func TestOllamaUnreachable(t *testing.T) {
	// a port nothing listens on
	c := NewOllamaClient("http://127.0.0.1:1", time.Second, 1, 10*time.Millisecond)
	_, err := c.Generate(context.Background(), chatRequest())
	var uerr *UnreachableError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnreachableError, got %v", err)
	}
	if !Recoverable(err) {
		t.Fatal("unreachable endpoints should be recoverable by fallback")
	}
}
