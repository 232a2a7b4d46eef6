// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"time"
)

func (cfg TimeConfiguration) frameTimeout() time.Duration {
	if cfg.FrameTimeout <= 0 {
		return time.Second
	}
	return cfg.FrameTimeout
}

// NewTime creates a new time service
func NewTime(cfg TimeConfiguration) *Time {
	var interval time.Duration
	if cfg.FramesPerSecond == 0 {
		interval = time.Nanosecond
	} else {
		interval = time.Second / (time.Duration)(cfg.FramesPerSecond)
	}

	pollDelay := time.Duration(cfg.EventPollDelay) * time.Millisecond
	if pollDelay <= 0 {
		pollDelay = time.Millisecond
	}

	return &Time{
		fps:            cfg.FramesPerSecond,
		fpsTicker:      time.NewTicker(interval),
		eventPollDelay: cfg.EventPollDelay,
		eventTicker:    time.NewTicker(pollDelay),
		frameTimeout:   cfg.frameTimeout(),
		start:          time.Now(),
	}
}

// Time contains all the time services and tickers
type Time struct {
	fps       int
	fpsTicker *time.Ticker

	eventPollDelay int
	eventTicker    *time.Ticker

	frameTimeout time.Duration
	start        time.Time
}

// Fps gets the set frames per second
func (t *Time) Fps() int {
	return t.fps
}

// FpsTicker gets the initialized fps ticker
func (t *Time) FpsTicker() *time.Ticker {
	return t.fpsTicker
}

// EventTicker gets the initialized event ticker for the event loop
func (t *Time) EventTicker() *time.Ticker {
	return t.eventTicker
}

// FrameTimeout is how long a surface waits for the previous frame.
func (t *Time) FrameTimeout() time.Duration {
	return t.frameTimeout
}

// Elapsed returns the time since the service started.
func (t *Time) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Stop stops all tickers.
func (t *Time) Stop() {
	t.fpsTicker.Stop()
	t.eventTicker.Stop()
}
