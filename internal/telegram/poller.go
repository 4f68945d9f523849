package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nikishkaa/docx-bot/internal/config"
)

// ErrGaveUp is returned by Poller.Run once consecutive polling failures exhaust the reconnect budget.
var ErrGaveUp = errors.New("telegram: polling gave up")

// Updater is the inbound side of the Bot API.
type Updater interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
}

// Handler processes one update. Updates are delivered one at a time.
type Handler func(ctx context.Context, u Update)

// Poller drives long polling and hands updates to a Handler.
type Poller struct {
	src      Updater
	timeout  time.Duration
	attempts int
	delay    time.Duration
	log      *slog.Logger

	offset int64
}

// NewPoller constructs a Poller from the bot settings.
func NewPoller(src Updater, cfg config.BotConfig, log *slog.Logger) *Poller {
	attempts := cfg.ReconnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Poller{
		src:      src,
		timeout:  cfg.PollTimeout,
		attempts: attempts,
		delay:    cfg.ReconnectDelay,
		log:      log,
	}
}

// Run polls until ctx is cancelled, returning nil, or until the reconnect
// budget is spent, returning an error wrapping ErrGaveUp.
func (p *Poller) Run(ctx context.Context, h Handler) error {
	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := p.src.GetUpdates(ctx, p.offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			if failures >= p.attempts {
				return fmt.Errorf("%w after %d attempts: %w", ErrGaveUp, failures, err)
			}
			p.log.Warn("polling failed, reconnecting",
				"attempt", failures,
				"max_attempts", p.attempts,
				"delay", p.delay.String(),
				"error", err,
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.delay):
			}
			continue
		}

		if failures > 0 {
			p.log.Info("polling recovered", "after_failures", failures)
		}
		failures = 0

		for _, u := range updates {
			if u.UpdateID >= p.offset {
				p.offset = u.UpdateID + 1
			}
			h(ctx, u)
		}
	}
}

// Offset is the next update id the poller will ask for.
func (p *Poller) Offset() int64 {
	return p.offset
}
