package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"aegis-ai/internal/domain"
	"aegis-ai/internal/infra/config"
	"aegis-ai/internal/infra/middleware"
)

// HTTPChannel implements domain.Channel for the HTTP API.
type HTTPChannel struct {
	server  *http.Server
	logger  *slog.Logger
	cfg     config.HTTPConfig
	handler domain.MessageHandler

	// Actual bound address (set after Start)
	boundAddr string

	// Per-request response delivery
	mu      sync.Mutex
	pending map[string]chan string

	// Lifecycle management for rate limiter cleanup goroutine
	ctx    context.Context
	cancel context.CancelFunc
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
	Error string `json:"error,omitempty"`
}

// NewHTTPChannel creates the HTTP API channel.
func NewHTTPChannel(cfg config.HTTPConfig, logger *slog.Logger) *HTTPChannel {
	return &HTTPChannel{
		cfg:     cfg,
		logger:  logger,
		pending: make(map[string]chan string),
	}
}

// Start begins the HTTP server. Non-blocking (serves in a goroutine).
func (h *HTTPChannel) Start(ctx context.Context, handler domain.MessageHandler) error {
	h.handler = handler
	h.ctx, h.cancel = context.WithCancel(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/chat", h.handleChat)
	mux.HandleFunc("/healthz", h.handleHealth)

	rpm := h.cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 100
	}
	burst := h.cfg.Burst
	if burst <= 0 {
		burst = 20
	}

	secureHandler := middleware.SecurityHeaders(
		middleware.CORS(
			middleware.RequestID(
				middleware.RateLimit(h.ctx, rpm, burst)(mux),
			),
		),
	)

	h.server = &http.Server{
		Addr:              h.cfg.Addr,
		Handler:           secureHandler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	ln, err := net.Listen("tcp", h.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", h.cfg.Addr, err)
	}
	h.boundAddr = ln.Addr().String()

	go func() {
		h.logger.Info("http channel started", "addr", h.boundAddr)
		if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (h *HTTPChannel) Stop(ctx context.Context) error {
	if h.cancel != nil {
		h.cancel()
	}
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

// Send delivers a reply to a pending request.
func (h *HTTPChannel) Send(ctx context.Context, msg domain.OutboundMessage) error {
	h.mu.Lock()
	ch, ok := h.pending[msg.SessionID]
	h.mu.Unlock()

	if !ok {
		return domain.NewDomainError(
			"HTTPChannel.Send",
			domain.ErrSessionNotFound,
			msg.SessionID,
		)
	}

	select {
	case ch <- msg.Content:
		return nil
	case <-ctx.Done():
		return domain.NewDomainError(
			"HTTPChannel.Send",
			ctx.Err(),
			fmt.Sprintf("context cancelled for session %s", msg.SessionID),
		)
	case <-time.After(5 * time.Second):
		return domain.NewDomainError(
			"HTTPChannel.Send",
			fmt.Errorf("timeout"),
			fmt.Sprintf("timeout sending to session %s", msg.SessionID),
		)
	}
}

// BoundAddr returns the listener address after Start. Intended for testing.
func (h *HTTPChannel) BoundAddr() string { return h.boundAddr }

// Name implements domain.Channel.
func (h *HTTPChannel) Name() string { return "http" }

func (h *HTTPChannel) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	// Limit request body to 1MB
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errMsg := "invalid JSON: " + err.Error()
		if err.Error() == "http: request body too large" {
			errMsg = "request body too large (max 1MB)"
		}
		writeJSON(w, http.StatusBadRequest, chatResponse{Error: errMsg})
		return
	}

	if req.SessionID == "" {
		req.SessionID = fmt.Sprintf("http-%d", time.Now().UnixNano())
	}

	// Register a response channel for this request
	respCh := make(chan string, 1)
	h.mu.Lock()
	h.pending[req.SessionID] = respCh
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.pending, req.SessionID)
		h.mu.Unlock()
	}()

	msg := domain.InboundMessage{
		SessionID:   req.SessionID,
		Content:     req.Message,
		ChannelName: "http",
	}

	if err := h.handler(r.Context(), msg); err != nil {
		h.logger.Error("chat handler failed", "session_id", req.SessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, chatResponse{Error: err.Error()})
		return
	}

	select {
	case reply := <-respCh:
		writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
	case <-r.Context().Done():
		http.Error(w, `{"error":"request cancelled"}`, http.StatusRequestTimeout)
	}
}

func (h *HTTPChannel) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
