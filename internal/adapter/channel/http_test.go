package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"aegis-ai/internal/domain"
	"aegis-ai/internal/infra/config"
)

func startTestChannel(t *testing.T, handler domain.MessageHandler) *HTTPChannel {
	t.Helper()

	h := NewHTTPChannel(config.HTTPConfig{
		Addr:           "127.0.0.1:0",
		RequestsPerMin: 6000,
		Burst:          100,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := h.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		h.Stop(ctx)
	})
	return h
}

func noopHandler(_ context.Context, _ domain.InboundMessage) error { return nil }

func postChat(t *testing.T, addr string, body string) (*http.Response, chatResponse) {
	t.Helper()
	resp, err := http.Post("http://"+addr+"/chat", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST /chat: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func TestChatEndpoint(t *testing.T) {
	var h *HTTPChannel
	h = startTestChannel(t, func(ctx context.Context, msg domain.InboundMessage) error {
		if msg.ChannelName != "http" {
			t.Errorf("channel name = %q", msg.ChannelName)
		}
		return h.Send(ctx, domain.OutboundMessage{SessionID: msg.SessionID, Content: "hi Ryan"})
	})

	resp, out := postChat(t, h.BoundAddr(), `{"session_id":"s1","message":"hello"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out.Reply != "hi Ryan" {
		t.Errorf("reply = %q", out.Reply)
	}
}

func TestChatGeneratesSessionID(t *testing.T) {
	gotID := make(chan string, 1)
	var h *HTTPChannel
	h = startTestChannel(t, func(ctx context.Context, msg domain.InboundMessage) error {
		gotID <- msg.SessionID
		return h.Send(ctx, domain.OutboundMessage{SessionID: msg.SessionID, Content: "ok"})
	})

	resp, _ := postChat(t, h.BoundAddr(), `{"message":"no session"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	select {
	case id := <-gotID:
		if !strings.HasPrefix(id, "http-") {
			t.Errorf("generated session id = %q", id)
		}
	case <-time.After(time.Second):
		t.Fatal("handler never called")
	}
}

func TestChatRejectsBadJSON(t *testing.T) {
	h := startTestChannel(t, noopHandler)

	resp, out := postChat(t, h.BoundAddr(), `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if out.Error == "" {
		t.Error("expected error message")
	}
}

func TestChatRejectsGet(t *testing.T) {
	h := startTestChannel(t, noopHandler)

	resp, err := http.Get("http://" + h.BoundAddr() + "/chat")
	if err != nil {
		t.Fatalf("GET /chat: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestChatHandlerError(t *testing.T) {
	h := startTestChannel(t, func(ctx context.Context, msg domain.InboundMessage) error {
		return fmt.Errorf("assistant unavailable")
	})

	resp, out := postChat(t, h.BoundAddr(), `{"session_id":"s1","message":"hi"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if !strings.Contains(out.Error, "assistant unavailable") {
		t.Errorf("error = %q", out.Error)
	}
}

func TestChatCORSHeaders(t *testing.T) {
	var h *HTTPChannel
	h = startTestChannel(t, func(ctx context.Context, msg domain.InboundMessage) error {
		return h.Send(ctx, domain.OutboundMessage{SessionID: msg.SessionID, Content: "ok"})
	})

	resp, _ := postChat(t, h.BoundAddr(), `{"session_id":"s1","message":"hi"}`)
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}

	req, _ := http.NewRequest(http.MethodOptions, "http://"+h.BoundAddr()+"/chat", nil)
	preflight, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS /chat: %v", err)
	}
	defer preflight.Body.Close()
	if preflight.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", preflight.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	h := startTestChannel(t, noopHandler)

	resp, err := http.Get("http://" + h.BoundAddr() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q", body["status"])
	}
}

func TestSendWithoutPendingRequest(t *testing.T) {
	h := NewHTTPChannel(config.HTTPConfig{Addr: "127.0.0.1:0"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := h.Send(context.Background(), domain.OutboundMessage{SessionID: "nobody", Content: "hi"})
	if err == nil {
		t.Fatal("expected error for unknown pending session")
	}
}
