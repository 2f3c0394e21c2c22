package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/Sahilgupta2175/event-calendar/internal/model"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)

	hub.Broadcast(NewMessage("event", "created", "3f2a9c", map[string]any{"count": float64(5)}))

	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "event_created" {
				t.Errorf("expected type event_created, got %s", got.Type)
			}
			if got.ID != "3f2a9c" {
				t.Errorf("expected id 3f2a9c, got %s", got.ID)
			}
			if got.Extra["count"] != float64(5) {
				t.Errorf("expected count 5, got %v", got.Extra["count"])
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.Broadcast(NewMessage("event", "cleared", "", nil))
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub)
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage("event", "updated", "x", nil))
	}

	// This should drop the message, not panic or block
	hub.Broadcast(NewMessage("event", "deleted", "x", nil))

	if got := hub.Dropped(); got != 1 {
		t.Errorf("dropped = %d, want 1", got)
	}
	if got := len(c.send); got != sendBufferSize {
		t.Errorf("expected %d buffered messages, got %d", sendBufferSize, got)
	}

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("event", "updated", "abc", nil)
	if msg.Type != "event_updated" {
		t.Errorf("expected type event_updated, got %s", msg.Type)
	}
	if msg.Entity != "event" || msg.Action != "updated" || msg.ID != "abc" {
		t.Errorf("unexpected message %+v", msg)
	}

	data, _ := json.Marshal(NewMessage("event", "cleared", "", nil))
	if strings.Contains(string(data), `"id"`) || strings.Contains(string(data), `"extra"`) {
		t.Errorf("empty fields should be omitted: %s", data)
	}
}

func TestCloseAll(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub)
	hub.Register(c)

	hub.CloseAll()
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed")
	}
	// Late unregister from the client's own goroutine must not panic.
	hub.Unregister(c)
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub)
			hub.Register(c)
			hub.Broadcast(NewMessage("event", "created", "c", nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestHandleWebSocketDelivers(t *testing.T) {
	hub := NewHub(slog.Default())
	srv := httptest.NewServer(HandleWebSocket(hub, nil, slog.Default()))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Broadcast(NewMessage("event", "deleted", "abc", map[string]any{"count": 3}))

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "event_deleted" || got.ID != "abc" {
		t.Errorf("got %+v", got)
	}
}

func TestBroadcastCategoryFilter(t *testing.T) {
	hub := NewHub(slog.Default())
	all := mockClient(hub)
	work := mockClient(hub)
	work.Subscribe(model.CategoryWork)
	hub.Register(all)
	hub.Register(work)

	personal := NewMessage("event", "created", "a", nil)
	personal.Category = string(model.CategoryPersonal)
	hub.Broadcast(personal)

	if len(all.send) != 1 {
		t.Errorf("unfiltered client got %d messages, want 1", len(all.send))
	}
	if len(work.send) != 0 {
		t.Errorf("work client got %d messages, want 0", len(work.send))
	}

	// Untagged messages reach everyone.
	hub.Broadcast(Message{Type: "backup_status", Entity: "backup", Action: "idle"})
	if len(work.send) != 1 {
		t.Errorf("work client got %d messages, want 1", len(work.send))
	}
}

func TestHandleControl(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub)

	tests := []struct {
		in   string
		want model.Category
	}{
		{`{"subscribe":"health"}`, model.CategoryHealth},
		{`{"subscribe":"bogus"}`, model.CategoryHealth},
		{`not json`, model.CategoryHealth},
		{`{"subscribe":"all"}`, ""},
		{`{"subscribe":"social"}`, model.CategorySocial},
		{`{}`, ""},
	}
	for _, tt := range tests {
		c.handleControl([]byte(tt.in))
		if c.category != tt.want {
			t.Errorf("after %s category = %q, want %q", tt.in, c.category, tt.want)
		}
	}
}

func TestHandleWebSocketSubscribe(t *testing.T) {
	hub := NewHub(slog.Default())
	srv := httptest.NewServer(HandleWebSocket(hub, nil, slog.Default()))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	if err := conn.Write(ctx, ws.MessageText, []byte(`{"subscribe":"work"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !subscribed(hub, model.CategoryWork) {
		if time.Now().After(deadline) {
			t.Fatal("client never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	skipped := NewMessage("event", "created", "p1", nil)
	skipped.Category = string(model.CategoryPersonal)
	hub.Broadcast(skipped)
	wanted := NewMessage("event", "created", "w1", nil)
	wanted.Category = string(model.CategoryWork)
	hub.Broadcast(wanted)

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != "w1" {
		t.Errorf("first delivered message = %q, want w1", got.ID)
	}
}

func subscribed(hub *Hub, category model.Category) bool {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for c := range hub.clients {
		c.mu.Lock()
		ok := c.category == category
		c.mu.Unlock()
		if ok {
			return true
		}
	}
	return false
}
