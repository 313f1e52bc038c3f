package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateAgent(cfg, ve)
	validateLLM(cfg, ve)
	validateHTTP(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateAgent(cfg *Config, ve *ValidationError) {
	if cfg.Agent.MaxHistory <= 0 {
		ve.Add("agent.max_history must be > 0")
	}
	if cfg.Agent.Timeout <= 0 {
		ve.Add("agent.timeout must be > 0")
	}
	if cfg.Agent.PromptVersion == "" && cfg.Agent.SystemPrompt == "" {
		ve.Add("agent.prompt_version or agent.system_prompt must be set")
	}
}

func validateLLM(cfg *Config, ve *ValidationError) {
	p := cfg.LLM.Provider
	if p.Model == "" {
		ve.Add("llm.provider.model must not be empty")
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		ve.Add("llm.provider.temperature must be in [0, 2], got %v", p.Temperature)
	}
	if p.BaseURL != "" && !strings.HasPrefix(p.BaseURL, "http://") && !strings.HasPrefix(p.BaseURL, "https://") {
		ve.Add("llm.provider.base_url must be an http(s) URL, got %q", p.BaseURL)
	}
	cb := cfg.LLM.CircuitBreaker
	if cb.Enabled && cb.MaxFailures == 0 {
		ve.Add("llm.circuit_breaker.max_failures must be > 0 when enabled")
	}
}

func validateHTTP(cfg *Config, ve *ValidationError) {
	if cfg.HTTP.Addr == "" {
		ve.Add("http.addr must not be empty")
		return
	}
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		ve.Add("http.addr %q is not host:port: %v", cfg.HTTP.Addr, err)
	}
	if cfg.HTTP.RequestsPerMin < 0 || cfg.HTTP.Burst < 0 {
		ve.Add("http rate limit settings must not be negative")
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		ve.Add("logger.level %q is not one of debug/info/warn/error", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "text", "json", "":
	default:
		ve.Add("logger.format %q is not text or json", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	switch cfg.Tracer.Exporter {
	case "stdout", "noop", "":
	default:
		ve.Add("tracer.exporter %q is not stdout or noop", cfg.Tracer.Exporter)
	}
}
