package chrono

import (
	"context"
	"time"
)

// API is the clock used for fixed grace delays, so code that pauses can be
// tested without actually pausing.
type API interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type StandardImpl struct{}

func (StandardImpl) Now() time.Time {
	return time.Now()
}

func (StandardImpl) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FakeImpl records sleeps instead of performing them.
type FakeImpl struct {
	Current time.Time
	Slept   []time.Duration
}

func (f *FakeImpl) Now() time.Time {
	return f.Current
}

func (f *FakeImpl) Sleep(ctx context.Context, d time.Duration) error {
	f.Slept = append(f.Slept, d)
	f.Current = f.Current.Add(d)
	return ctx.Err()
}
