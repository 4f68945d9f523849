package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/nikishkaa/docx-bot/internal/config"
)

// ErrBusy is returned by Generate while another generation is in flight.
var ErrBusy = errors.New("inference busy")

// LoadFunc creates the provider when the adapter is first used.
type LoadFunc func(ctx context.Context) (Provider, error)

// Adapter owns the provider lifecycle: loaded on first use, shared by every
// chat in AI mode, unloaded when the last one leaves or on Close.
// At most one generation runs at a time.
type Adapter struct {
	load         LoadFunc
	systemPrompt string
	log          *slog.Logger

	mu       sync.Mutex
	provider Provider
	refs     int

	gen sync.Mutex
}

// NewAdapter creates an unloaded adapter.
func NewAdapter(load LoadFunc, systemPrompt string, log *slog.Logger) *Adapter {
	return &Adapter{load: load, systemPrompt: systemPrompt, log: log}
}

// NewFromConfig selects the provider named by cfg.Provider.
func NewFromConfig(cfg config.InferenceConfig, log *slog.Logger) (*Adapter, error) {
	var load LoadFunc
	switch cfg.Provider {
	case "", "echo":
		load = func(context.Context) (Provider, error) { return EchoProvider{}, nil }
	case "openai":
		load = func(context.Context) (Provider, error) { return NewOpenAIProvider(cfg) }
	default:
		return nil, fmt.Errorf("unknown inference provider %q", cfg.Provider)
	}
	return NewAdapter(load, cfg.SystemPrompt, log), nil
}

// Load creates the provider if it is not loaded yet.
func (a *Adapter) Load(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := a.loadLocked(ctx)
	return err
}

func (a *Adapter) loadLocked(ctx context.Context) (Provider, error) {
	if a.provider != nil {
		return a.provider, nil
	}
	p, err := a.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	a.provider = p
	a.log.Info("model loaded", "provider", p.Name())
	return p, nil
}

// Acquire loads the provider and takes a reference on it.
func (a *Adapter) Acquire(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.loadLocked(ctx); err != nil {
		return err
	}
	a.refs++
	return nil
}

// Release drops a reference; the provider is unloaded when none remain.
func (a *Adapter) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.refs == 0 {
		return
	}
	a.refs--
	if a.refs == 0 {
		if err := a.unloadLocked(); err != nil {
			a.log.Warn("model unload failed", "error", err)
		}
	}
}

// Close unloads the provider regardless of outstanding references.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refs = 0
	return a.unloadLocked()
}

func (a *Adapter) unloadLocked() error {
	if a.provider == nil {
		return nil
	}
	p := a.provider
	a.provider = nil
	a.log.Info("model unloaded", "provider", p.Name())
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Loaded reports whether a provider is currently loaded.
func (a *Adapter) Loaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.provider != nil
}

// Refs returns the number of outstanding references.
func (a *Adapter) Refs() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refs
}

// Generate answers prompt. It fails fast with ErrBusy if a generation is
// already running and imposes no timeout of its own.
func (a *Adapter) Generate(ctx context.Context, prompt string) (string, error) {
	if !a.gen.TryLock() {
		return "", ErrBusy
	}
	defer a.gen.Unlock()

	a.mu.Lock()
	p, err := a.loadLocked(ctx)
	a.mu.Unlock()
	if err != nil {
		return "", err
	}

	msgs := make([]Message, 0, 2)
	if a.systemPrompt != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: a.systemPrompt})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: prompt})
	return p.Chat(ctx, msgs)
}
