package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server, *[]time.Duration) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "test-model", 5*time.Second, zap.NewNop())
	var delays []time.Duration
	client.sleep = func(d time.Duration) { delays = append(delays, d) }
	return client, server, &delays
}

func TestCompleteSuccess(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("Expected model 'test-model', got %q", req.Model)
		}
		if req.Stream {
			t.Error("Expected stream to be false")
		}
		if req.Options.NumCtx != 4096 {
			t.Errorf("Expected num_ctx 4096, got %d", req.Options.NumCtx)
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "a summary", Done: true})
	})

	text, err := client.Complete(context.Background(), "summarize this",
		Options{Temperature: 0.3, ContextWindow: 4096, MaxOutputTokens: 512})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if text != "a summary" {
		t.Errorf("Expected 'a summary', got %q", text)
	}
}

func TestCompleteRetriesTransientFailures(t *testing.T) {
	var calls int32
	client, _, delays := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "finally", Done: true})
	})

	text, err := client.Complete(context.Background(), "p", Options{})
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if text != "finally" {
		t.Errorf("Expected 'finally', got %q", text)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	if len(*delays) != 2 || (*delays)[0] != 2*time.Second || (*delays)[1] != 4*time.Second {
		t.Errorf("Expected delays [2s 4s], got %v", *delays)
	}
}

func TestCompleteExhaustsRetries(t *testing.T) {
	var calls int32
	client, _, delays := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Complete(context.Background(), "p", Options{})
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
	if len(*delays) != 2 {
		t.Errorf("Expected 2 sleeps, got %d", len(*delays))
	}
}

func TestCompleteRejectionNotRetried(t *testing.T) {
	var calls int32
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "model 'nope' not found"})
	})

	_, err := client.Complete(context.Background(), "p", Options{})
	if err == nil {
		t.Fatal("Expected rejection error")
	}
	if !IsRejected(err) {
		t.Errorf("Expected RejectedError, got %v", err)
	}
	var re *RejectedError
	if errors.As(err, &re) && re.Reason != "model 'nope' not found" {
		t.Errorf("Expected backend reason in error, got %q", re.Reason)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected exactly 1 call for a rejection, got %d", calls)
	}
}

func TestCompleteInBodyError(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Error: "something is wrong"})
	})

	_, err := client.Complete(context.Background(), "p", Options{})
	if !IsRejected(err) {
		t.Errorf("Expected in-body error to be a rejection, got %v", err)
	}
}

func TestCompleteRateLimitRetried(t *testing.T) {
	var calls int32
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "ok", Done: true})
	})

	if _, err := client.Complete(context.Background(), "p", Options{}); err != nil {
		t.Fatalf("Expected 429 to be retried, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestCompleteCancelledContext(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, "p", Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestPing(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("Expected path /api/tags, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Expected ping to succeed, got %v", err)
	}
}

func TestPingUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	client := NewClient(server.URL, "m", time.Second, zap.NewNop())

	err := client.Ping(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable for closed server, got %v", err)
	}
}
