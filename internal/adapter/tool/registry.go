package tool

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"aegis-ai/internal/domain"
	"aegis-ai/internal/infra/tracer"
)

// Registry holds named tools.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]domain.Tool
	logger *slog.Logger
}

var _ domain.ToolInvoker = (*Registry)(nil)

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]domain.Tool),
		logger: logger,
	}
}

// Register adds a tool. Returns error if name already registered.
func (r *Registry) Register(t domain.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	r.tools[name] = t
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (domain.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, domain.NewDomainError("Registry.Get", domain.ErrToolNotFound, name)
	}
	return t, nil
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []domain.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]domain.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// Invoke runs the named tool and always returns a result string. Lookup and
// execution failures are folded into the string so callers can hand the
// outcome straight back to the conversation.
func (r *Registry) Invoke(ctx context.Context, name, input string) string {
	ctx, span := tracer.StartSpan(ctx, "tool.invoke",
		trace.WithAttributes(tracer.StringAttr("tool.name", name)),
	)
	defer span.End()

	t, err := r.Get(name)
	if err != nil {
		tracer.RecordError(span, err)
		return fmt.Sprintf("unknown tool: %s", name)
	}

	out, err := t.Run(ctx, input)
	if err != nil {
		tracer.RecordError(span, err)
		if r.logger != nil {
			r.logger.Warn("tool failed", "tool", name, "error", err)
		}
		return fmt.Sprintf("%s error: %v", name, err)
	}
	tracer.SetOK(span)
	return out
}
