package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"Gin_postgres_redis_lending/reports"
)

var ErrUnavailable = errors.New("no AI provider configured")

// order is the fallback order when the preferred provider has no key.
var order = []string{"gemini", "openai", "huggingface"}

type Config struct {
	Preferred      string
	GeminiKey      string
	OpenAIKey      string
	HuggingFaceKey string
}

type Service struct {
	providers map[string]Provider
	preferred string
	log       *slog.Logger
}

func NewService(cfg Config, log *slog.Logger) *Service {
	client := &http.Client{Timeout: DefaultTimeout}
	return NewServiceWith(cfg.Preferred, log,
		NewGemini(cfg.GeminiKey, "", client),
		NewOpenAI(cfg.OpenAIKey, "", client),
		NewHuggingFace(cfg.HuggingFaceKey, "", client),
	)
}

func NewServiceWith(preferred string, log *slog.Logger, providers ...Provider) *Service {
	if preferred == "" {
		preferred = "gemini"
	}
	if log == nil {
		log = slog.Default()
	}
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Service{providers: m, preferred: preferred, log: log}
}

// Active returns the preferred provider when configured, else the first configured one.
func (s *Service) Active() Provider {
	if p, ok := s.providers[s.preferred]; ok && p.Available() {
		return p
	}
	for _, name := range order {
		if p, ok := s.providers[name]; ok && p.Available() {
			return p
		}
	}
	for _, p := range s.providers {
		if p.Available() {
			return p
		}
	}
	return nil
}

func (s *Service) Available() bool { return s.Active() != nil }

func (s *Service) run(ctx context.Context, kind, prompt string, fallback func() string) (string, error) {
	p := s.Active()
	if p == nil {
		return "", ErrUnavailable
	}
	text, err := p.Complete(ctx, prompt)
	if err != nil {
		s.log.Warn("ai provider failed, using rule-based analysis",
			"provider", p.Name(), "analysis", kind, "err", err)
		return fallback(), nil
	}
	return text, nil
}

func (s *Service) AnalyzeInventory(ctx context.Context, d reports.InventoryData) (string, error) {
	return s.run(ctx, "inventory", InventoryPrompt(d), func() string { return InventoryFallback(d) })
}

func (s *Service) AnalyzeBorrowPatterns(ctx context.Context, d reports.BorrowData) (string, error) {
	return s.run(ctx, "borrow_patterns", BorrowPatternsPrompt(d), func() string { return BorrowFallback(d) })
}

func (s *Service) AnalyzeUserBehavior(ctx context.Context, data map[string]any) (string, error) {
	return s.run(ctx, "user_behavior", UserBehaviorPrompt(data), func() string { return GenericFallback(data) })
}

func (s *Service) CustomAnalysis(ctx context.Context, analysisType string, data map[string]any) (string, error) {
	return s.run(ctx, analysisType, CustomPrompt(analysisType, data), func() string { return GenericFallback(data) })
}
