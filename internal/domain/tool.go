package domain

import "context"

// Tool is the interface every tool must implement. Tools are stateless
// text-in, text-out utilities invoked synchronously by name.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, input string) (string, error)
}

// ToolInvoker abstracts tool lookup and execution. Invoke never fails:
// unknown tools and tool errors are recovered into descriptive strings.
type ToolInvoker interface {
	Invoke(ctx context.Context, name, input string) string
	List() []Tool
}
