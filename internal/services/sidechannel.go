package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Warning is emitted whenever a best-effort operation fails.
type Warning struct {
	Op        string
	SessionID string
	Err       error
}

// SideChannel runs writes that must never fail the request that triggered
// them. Failures are logged as best_effort_failed and reported to OnWarning.
type SideChannel struct {
	log       *slog.Logger
	timeout   time.Duration
	OnWarning func(Warning)

	wg sync.WaitGroup
}

func NewSideChannel(log *slog.Logger, timeout time.Duration) *SideChannel {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SideChannel{log: log, timeout: timeout}
}

// Do runs fn inline and returns its error after reporting it.
func (c *SideChannel) Do(ctx context.Context, op, sessionID string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			c.report(op, sessionID, err)
		}
	}()
	return fn(ctx)
}

// Go runs fn in the background on a context detached from ctx's cancellation.
func (c *SideChannel) Go(ctx context.Context, op, sessionID string, fn func(context.Context) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		_ = c.Do(bg, op, sessionID, fn)
	}()
}

// Wait blocks until every Go task has finished.
func (c *SideChannel) Wait() {
	c.wg.Wait()
}

func (c *SideChannel) report(op, sessionID string, err error) {
	c.log.Warn("best_effort_failed", "op", op, "session_id", sessionID, "error", err)
	if c.OnWarning != nil {
		c.OnWarning(Warning{Op: op, SessionID: sessionID, Err: err})
	}
}
