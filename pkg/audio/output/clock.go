// ABOUTME: Headless clock-driven audio output sink
// ABOUTME: Pulls one period per tick and discards it, for hosts without a sound card
package output

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Clock is a sink that consumes audio in real time without playing it
type Clock struct {
	mu     sync.Mutex
	done   chan struct{}
	wg     sync.WaitGroup
	pulled atomic.Int64
}

// NewClock creates a new Clock sink
func NewClock() *Clock {
	return &Clock{}
}

// Open starts a ticker that invokes the callback once per period
func (c *Clock) Open(cfg Config) error {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		return fmt.Errorf("clock sink already open")
	}

	period := time.Duration(cfg.PeriodFrames) * time.Second / time.Duration(cfg.Format.SampleRate)
	buf := make([]int32, cfg.PeriodFrames*cfg.Format.Channels)
	done := make(chan struct{})
	c.done = done

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				cfg.Callback(buf)
				c.pulled.Add(int64(cfg.PeriodFrames))
			}
		}
	}()

	cfg.Logger.Info("Audio output initialized",
		"backend", BackendClock,
		"sample_rate", cfg.Format.SampleRate,
		"channels", cfg.Format.Channels,
		"period", period)
	return nil
}

// Pulled returns the number of sample frames consumed since creation
func (c *Clock) Pulled() int64 {
	return c.pulled.Load()
}

// Close stops the ticker and waits for the last callback to return
func (c *Clock) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done == nil {
		return nil
	}
	close(c.done)
	c.wg.Wait()
	c.done = nil
	return nil
}
