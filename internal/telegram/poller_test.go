package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikishkaa/docx-bot/internal/config"
	"github.com/nikishkaa/docx-bot/internal/logging"
)

type pollResult struct {
	updates []Update
	err     error
}

// scriptedUpdater replays results in order and cancels once they run out.
type scriptedUpdater struct {
	results []pollResult
	offsets []int64
	cancel  context.CancelFunc
}

func (s *scriptedUpdater) GetUpdates(_ context.Context, offset int64, _ time.Duration) ([]Update, error) {
	s.offsets = append(s.offsets, offset)
	if len(s.results) == 0 {
		s.cancel()
		return nil, context.Canceled
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r.updates, r.err
}

func pollerConfig(attempts int) config.BotConfig {
	return config.BotConfig{PollTimeout: time.Second, ReconnectAttempts: attempts, ReconnectDelay: time.Millisecond}
}

func TestPoller_DeliversInOrderAndAdvancesOffset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &scriptedUpdater{cancel: cancel, results: []pollResult{
		{updates: []Update{{UpdateID: 5}, {UpdateID: 6}}},
		{updates: []Update{{UpdateID: 7}}},
	}}
	p := NewPoller(src, pollerConfig(3), logging.Discard())

	var seen []int64
	err := p.Run(ctx, func(_ context.Context, u Update) { seen = append(seen, u.UpdateID) })

	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6, 7}, seen)
	assert.Equal(t, []int64{0, 7, 8}, src.offsets)
	assert.Equal(t, int64(8), p.Offset())
}

func TestPoller_GivesUpAfterConsecutiveFailures(t *testing.T) {
	boom := errors.New("connection refused")
	src := &scriptedUpdater{cancel: func() {}, results: []pollResult{
		{err: boom}, {err: boom}, {err: boom},
	}}
	p := NewPoller(src, pollerConfig(3), logging.Discard())

	err := p.Run(context.Background(), func(context.Context, Update) {})

	require.ErrorIs(t, err, ErrGaveUp)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, src.offsets, 3)
}

func TestPoller_SuccessResetsFailureCount(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("timeout")
	src := &scriptedUpdater{cancel: cancel, results: []pollResult{
		{err: boom}, {err: boom},
		{updates: []Update{{UpdateID: 1}}},
		{err: boom}, {err: boom},
	}}
	p := NewPoller(src, pollerConfig(3), logging.Discard())

	delivered := 0
	err := p.Run(ctx, func(context.Context, Update) { delivered++ })

	assert.NoError(t, err)
	assert.Equal(t, 1, delivered)
}

func TestPoller_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &scriptedUpdater{cancel: cancel}
	p := NewPoller(src, pollerConfig(1), logging.Discard())

	assert.NoError(t, p.Run(ctx, func(context.Context, Update) {}))
	assert.Empty(t, src.offsets)
}
