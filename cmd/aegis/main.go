package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aegis-ai/internal/adapter/channel"
	"aegis-ai/internal/adapter/llm"
	"aegis-ai/internal/adapter/tool"
	"aegis-ai/internal/domain"
	"aegis-ai/internal/infra/config"
	"aegis-ai/internal/infra/logger"
	"aegis-ai/internal/infra/tracer"
	"aegis-ai/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	// 1. Config
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// 2. Logger & tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx := context.Background()
	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(ctx)

	// 3. LLM provider
	var provider domain.LLMProvider = llm.NewOpenAIProvider(cfg.LLM.Provider, log)
	if cfg.LLM.CircuitBreaker.Enabled {
		provider = llm.NewCircuitBreakerProvider(provider, cfg.LLM.CircuitBreaker, log)
	}

	// 4. Tools
	registry := tool.NewRegistry(log)
	if err := registry.Register(tool.NewCalculator()); err != nil {
		return fmt.Errorf("tools: %w", err)
	}

	// 5. Prompt
	basePrompt := cfg.Agent.SystemPrompt
	if basePrompt == "" {
		basePrompt, err = usecase.BasePrompt(cfg.Agent.PromptVersion)
		if err != nil {
			return fmt.Errorf("prompt: %w", err)
		}
	}

	// 6. Assistant and sessions
	sessions := usecase.NewSessionManager()
	assistant := usecase.NewAssistant(usecase.AssistantDeps{
		LLM:         provider,
		Tools:       registry,
		Locker:      usecase.NewSessionLocker(),
		Logger:      log,
		BasePrompt:  basePrompt,
		Model:       cfg.LLM.Provider.Model,
		Temperature: cfg.LLM.Provider.Temperature,
		MaxHistory:  cfg.Agent.MaxHistory,
	})

	// 7. HTTP channel
	httpChannel := channel.NewHTTPChannel(cfg.HTTP, log)

	handler := func(ctx context.Context, msg domain.InboundMessage) error {
		turnCtx := ctx
		if cfg.Agent.Timeout > 0 {
			var cancel context.CancelFunc
			turnCtx, cancel = context.WithTimeout(ctx, cfg.Agent.Timeout)
			defer cancel()
		}

		session := sessions.GetOrCreate(msg.SessionID)
		reply, err := assistant.HandleMessage(turnCtx, session, msg.Content)
		if err != nil {
			return err
		}
		return httpChannel.Send(ctx, domain.OutboundMessage{
			SessionID: msg.SessionID,
			Content:   reply,
		})
	}

	// 8. Graceful shutdown on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := httpChannel.Start(ctx, handler); err != nil {
		return fmt.Errorf("http channel: %w", err)
	}

	log.Info("aegis started",
		"addr", cfg.HTTP.Addr,
		"model", cfg.LLM.Provider.Model,
		"prompt_version", cfg.Agent.PromptVersion,
	)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpChannel.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("stopped", "sessions", sessions.Count())
	return nil
}
