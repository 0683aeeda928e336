package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSendTextPostsReply(t *testing.T) {
	var got ReplyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reply" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTimeout(2*time.Second))
	if err := c.SendText(context.Background(), "room1", "hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if got.Type != "text" || got.Room != "room1" || got.Data != "hello" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestSendImageRetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTimeout(2*time.Second), WithRetry(3))
	if err := c.SendImage(context.Background(), "room1", "aGVsbG8="); err != nil {
		t.Fatalf("SendImage: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("calls = %d, want 2", n)
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetry(3))
	if err := c.SendText(context.Background(), "room1", "x"); err == nil {
		t.Fatal("want error on 400")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	if backoffDuration(1) != 100*time.Millisecond {
		t.Fatalf("attempt 1 = %v", backoffDuration(1))
	}
	if backoffDuration(3) != 400*time.Millisecond {
		t.Fatalf("attempt 3 = %v", backoffDuration(3))
	}
	if backoffDuration(9) != backoffDuration(6) {
		t.Fatal("backoff must cap")
	}
}
