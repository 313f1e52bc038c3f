package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"aegis-ai/internal/domain"
	"aegis-ai/internal/infra/tracer"
)

// AssistantDeps holds injected dependencies for the assistant.
type AssistantDeps struct {
	LLM         domain.LLMProvider
	Tools       domain.ToolInvoker
	Locker      *SessionLocker // optional, nil = no per-session locking
	Logger      *slog.Logger
	BasePrompt  string
	Model       string
	Temperature float64
	MaxHistory  int
}

// Assistant orchestrates one conversation turn: parse the mode tag, compose
// the system prompt, call the model, record the exchange.
type Assistant struct {
	deps AssistantDeps
}

// NewAssistant creates an assistant with the given dependencies.
func NewAssistant(deps AssistantDeps) *Assistant {
	if deps.MaxHistory <= 0 {
		deps.MaxHistory = 20
	}
	return &Assistant{deps: deps}
}

// HandleMessage processes a single user message and returns the reply.
// Provider failures are recovered into an apologetic reply string; the only
// error paths out of here are lock acquisition and context cancellation.
func (a *Assistant) HandleMessage(ctx context.Context, session *Session, userMsg string) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "assistant.handle_message",
		trace.WithAttributes(tracer.StringAttr("session.id", session.ID)),
	)
	defer span.End()

	if a.deps.Locker != nil {
		unlock, err := a.deps.Locker.Lock(ctx, session.ID)
		if err != nil {
			tracer.RecordError(span, err)
			return "", err
		}
		defer unlock()
	}

	mode, cleaned, tagged := domain.ParseModeTag(userMsg)
	effective := mode.Normalize()
	if tagged {
		a.deps.Logger.Debug("mode tag parsed",
			"session_id", session.ID,
			"mode", string(mode),
			"effective", string(effective),
		)
	}
	span.SetAttributes(tracer.StringAttr("chat.mode", string(effective)))

	messages := a.buildMessages(session, effective, cleaned)

	reply := a.callLLM(ctx, messages)

	session.AddMessage(domain.Message{Role: domain.RoleUser, Content: cleaned, Timestamp: time.Now()})
	session.AddMessage(domain.Message{Role: domain.RoleAssistant, Content: reply, Timestamp: time.Now()})
	session.Truncate(a.deps.MaxHistory)

	tracer.SetOK(span)
	return reply, nil
}

// buildMessages assembles the outbound list: composed system prompt, the
// last MaxHistory entries of history, then the new user message. The system
// prompt is synthesized per turn and never stored in history.
func (a *Assistant) buildMessages(session *Session, mode domain.Mode, userText string) []domain.Message {
	prompt := a.deps.BasePrompt
	if addendum := ModeAddendum(mode); addendum != "" {
		prompt = prompt + "\n\n" + addendum
	}

	history := session.Messages()
	if len(history) > a.deps.MaxHistory {
		history = history[len(history)-a.deps.MaxHistory:]
	}

	messages := make([]domain.Message, 0, len(history)+2)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: prompt})
	messages = append(messages, history...)
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: userText})
	return messages
}

// callLLM invokes the provider and folds any failure into an apologetic
// reply so a broken upstream never breaks the conversation.
func (a *Assistant) callLLM(ctx context.Context, messages []domain.Message) string {
	resp, err := a.deps.LLM.Chat(ctx, domain.ChatRequest{
		Model:       a.deps.Model,
		Messages:    messages,
		Temperature: a.deps.Temperature,
	})
	if err != nil {
		a.deps.Logger.Error("llm call failed", "error", err)
		return fmt.Sprintf("Sorry, I ran into a problem answering that: %v", err)
	}
	return strings.TrimRight(resp.Message.Content, "\n")
}

// RunTool invokes a registered tool directly, outside the chat loop.
func (a *Assistant) RunTool(ctx context.Context, name, input string) string {
	return a.deps.Tools.Invoke(ctx, name, input)
}
