package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuietSide() (*SideChannel, func() []Warning) {
	var (
		mu   sync.Mutex
		seen []Warning
	)
	side := NewSideChannel(slog.New(slog.NewTextHandler(io.Discard, nil)), 50*time.Millisecond)
	side.OnWarning = func(w Warning) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, w)
	}
	return side, func() []Warning {
		mu.Lock()
		defer mu.Unlock()
		return append([]Warning(nil), seen...)
	}
}

func TestSideChannelDoReports(t *testing.T) {
	side, warnings := newQuietSide()

	require.NoError(t, side.Do(context.Background(), "ok", "s1", func(context.Context) error { return nil }))
	assert.Empty(t, warnings())

	boom := errors.New("boom")
	err := side.Do(context.Background(), "append_user_turn", "s1", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	got := warnings()
	require.Len(t, got, 1)
	assert.Equal(t, "append_user_turn", got[0].Op)
	assert.Equal(t, "s1", got[0].SessionID)
}

func TestSideChannelDoRecoversPanics(t *testing.T) {
	side, warnings := newQuietSide()

	err := side.Do(context.Background(), "touch_session", "s2", func(context.Context) error { panic("nil map") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil map")
	assert.Len(t, warnings(), 1)
}

func TestSideChannelGoOutlivesCaller(t *testing.T) {
	side, warnings := newQuietSide()
	ctx, cancel := context.WithCancel(context.Background())

	ran := make(chan error, 1)
	side.Go(ctx, "touch_session", "s3", func(ctx context.Context) error {
		ran <- ctx.Err()
		return nil
	})
	cancel()
	side.Wait()

	assert.NoError(t, <-ran)
	assert.Empty(t, warnings())
}

func TestSideChannelGoTimesOut(t *testing.T) {
	side, warnings := newQuietSide()

	side.Go(context.Background(), "slow", "s4", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	side.Wait()

	got := warnings()
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0].Err, context.DeadlineExceeded)
}

func TestPrice(t *testing.T) {
	prices := PriceTable{ChatBase: 1, WebSearch: 2}
	assert.Equal(t, int64(1), prices.Price(Features{}))
	assert.Equal(t, int64(3), prices.Price(Features{WebSearch: true}))
	assert.Equal(t, int64(0), PriceTable{}.Price(Features{WebSearch: true}))
}
