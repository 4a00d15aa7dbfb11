// Package ai expands a goal or a spoken transcript into task drafts using an
// external completion service.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tasklane/tasklane-backend/config"
	"github.com/tasklane/tasklane-backend/internal/logging"
	"github.com/tasklane/tasklane-backend/internal/metrics"
	"github.com/tasklane/tasklane-backend/internal/todo/domain"
)

const (
	sourceGoal       = "goal"
	sourceTranscript = "transcript"
)

type Option func(*Generator)

func WithPrompts(p Prompts) Option {
	return func(g *Generator) { g.prompts = p }
}

func WithLimiter(l *UserLimiter) Option {
	return func(g *Generator) { g.limiter = l }
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// Generator turns free text into task drafts. A Generator without a
// completer fails every call with ConfigurationError.
type Generator struct {
	completer Completer
	configErr error
	prompts   Prompts
	limiter   *UserLimiter
	now       func() time.Time
}

func NewGenerator(c Completer, opts ...Option) *Generator {
	g := &Generator{
		completer: c,
		prompts:   DefaultPrompts(),
		now:       time.Now,
	}
	if c == nil {
		g.configErr = &ConfigurationError{Reason: "no completion service"}
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// New builds the process-wide generator from configuration. A missing API key
// is not an error here: the generator is returned permanently disabled.
func New(ctx context.Context, cfg config.AIConfig) (*Generator, error) {
	logger := logging.For("ai")

	prompts, err := LoadPrompts(cfg.PromptsFile)
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithPrompts(prompts),
		WithLimiter(NewUserLimiter(cfg.RatePerMinute, cfg.Burst)),
	}

	completer, err := NewGeminiCompleter(ctx, cfg.APIKey, cfg.Model)
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		logger.LogWarnf("init", "API key not found, AI features disabled")
		g := NewGenerator(nil, opts...)
		g.configErr = cfgErr
		return g, nil
	}
	if err != nil {
		return nil, err
	}

	logger.LogInfof("init", "model=%s rate_per_minute=%d burst=%d", cfg.Model, cfg.RatePerMinute, cfg.Burst)
	return NewGenerator(completer, opts...), nil
}

// Available reports whether calls can reach the completion service at all.
func (g *Generator) Available() bool {
	return g.configErr == nil
}

func (g *Generator) GenerateFromGoal(ctx context.Context, goal string) ([]domain.TaskDraft, error) {
	return g.run(ctx, sourceGoal, goal)
}

func (g *Generator) ParseFromTranscript(ctx context.Context, transcript string) ([]domain.TaskDraft, error) {
	return g.run(ctx, sourceTranscript, transcript)
}

// For returns a view of g whose calls count against uid's rate limit.
func (g *Generator) For(uid string) *UserGenerator {
	return &UserGenerator{g: g, uid: uid}
}

// Forget releases uid's rate limit state.
func (g *Generator) Forget(uid string) {
	if g.limiter != nil {
		g.limiter.Forget(uid)
	}
}

func (g *Generator) run(ctx context.Context, source, input string) ([]domain.TaskDraft, error) {
	if g.configErr != nil {
		return nil, g.configErr
	}
	if err := domain.RequireText(source, input); err != nil {
		return nil, err
	}

	logger := logging.New(ctx, "ai")
	start := time.Now()

	prompt := g.prompts.Goal
	message := goalFailureMessage
	if source == sourceTranscript {
		prompt = g.prompts.Transcript
		message = transcriptFailureMessage
	}

	raw, err := g.completer.Complete(ctx, render(prompt, input))
	if err != nil {
		metrics.ObserveCompletion(source, "error", start)
		logger.LogErrorf(source, "completion failed: %v", err)
		return nil, &GenerationError{Message: message, Err: err}
	}

	tasks, err := decodeTasks(raw)
	if err != nil {
		metrics.ObserveCompletion(source, "invalid", start)
		logger.LogErrorf(source, "bad completion response: %v", err)
		return nil, &GenerationError{Message: message, Err: err}
	}

	now := g.now().UTC()
	drafts := make([]domain.TaskDraft, 0, len(tasks))
	for _, t := range tasks {
		if domain.Blank(t) {
			continue
		}
		drafts = append(drafts, domain.NewDraft(strings.TrimSpace(t), now))
	}

	metrics.ObserveCompletion(source, "ok", start)
	logger.LogInfof(source, "drafts=%d duration=%s", len(drafts), time.Since(start))
	return drafts, nil
}

// decodeTasks accepts only an object whose "tasks" member is an array of
// strings. An empty array is valid.
func decodeTasks(raw string) ([]string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &obj); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	field, ok := obj["tasks"]
	if !ok {
		return nil, errors.New(`response has no "tasks" field`)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(field)), "[") {
		return nil, errors.New(`"tasks" is not an array`)
	}
	var tasks []string
	if err := json.Unmarshal(field, &tasks); err != nil {
		return nil, fmt.Errorf(`"tasks" is not an array of strings: %w`, err)
	}
	return tasks, nil
}

// UserGenerator is a Generator bound to one user's rate limit.
type UserGenerator struct {
	g   *Generator
	uid string
}

func (u *UserGenerator) Available() bool {
	return u.g.Available()
}

// Blank input is rejected before it can spend a rate limit token.
func (u *UserGenerator) GenerateFromGoal(ctx context.Context, goal string) ([]domain.TaskDraft, error) {
	if err := domain.RequireText(sourceGoal, goal); err != nil {
		return nil, err
	}
	if err := u.allow(); err != nil {
		return nil, err
	}
	return u.g.GenerateFromGoal(ctx, goal)
}

func (u *UserGenerator) ParseFromTranscript(ctx context.Context, transcript string) ([]domain.TaskDraft, error) {
	if err := domain.RequireText(sourceTranscript, transcript); err != nil {
		return nil, err
	}
	if err := u.allow(); err != nil {
		return nil, err
	}
	return u.g.ParseFromTranscript(ctx, transcript)
}

func (u *UserGenerator) allow() error {
	if u.g.configErr != nil || u.g.limiter == nil {
		return nil
	}
	if !u.g.limiter.Allow(u.uid) {
		return ErrRateLimited
	}
	return nil
}
