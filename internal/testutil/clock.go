package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start of a StepClock: a fixed, readable instant.
var Epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// StepClock hands out message timestamps that advance by a fixed step.
//
// It replaces the wall clock in tests so session timeouts are exercised
// without sleeping.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewStepClock creates a clock at start. Each Tick advances by step.
// A zero start means Epoch.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	if start.IsZero() {
		start = Epoch
	}
	return &StepClock{now: start, step: step}
}

// Now returns the current time without advancing.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Tick advances by one step and returns the new time.
func (c *StepClock) Tick() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

// Advance moves the clock forward by d.
func (c *StepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *StepClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
