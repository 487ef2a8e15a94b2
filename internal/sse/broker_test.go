package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish("suggestion.surfaced", map[string]string{"conversation_id": "conv-1"})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: suggestion.surfaced") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"conversation_id":"conv-1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestSummaryThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First publish carries a state.updated rollup; an immediate second
	// publish must not.
	b.Publish("suggestion.surfaced", map[string]string{"conversation_id": "conv-1"})
	b.Publish("suggestion.expired", map[string]string{"conversation_id": "conv-1"})

	time.Sleep(50 * time.Millisecond)
	summaryCount := 0
	eventCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			if strings.Contains(string(msg), "state.updated") {
				summaryCount++
			} else {
				eventCount++
			}
		default:
			break loop
		}
	}

	if eventCount != 2 {
		t.Errorf("events = %d, want 2", eventCount)
	}
	if summaryCount != 1 {
		t.Errorf("summaries = %d, want 1 (throttled)", summaryCount)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give the handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish("item.ingested", map[string]string{"item_id": "item-1"})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: item.ingested") {
		t.Errorf("handler output missing event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill the client buffer (capacity 64) and keep going; the broker loop
	// must not block.
	for i := 0; i < 70; i++ {
		b.Publish("test", map[string]string{"i": "x"})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Safe no-ops after close.
	b.Publish("suggestion.surfaced", map[string]string{"conversation_id": "conv-1"})
	b.Unsubscribe(ch)
}
