package llm

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrInjectedFault is returned by a FaultInjector when it drops a call.
var ErrInjectedFault = errors.New("injected provider fault")

// FaultConfig controls the faults a FaultInjector adds.
type FaultConfig struct {
	// ErrorRate is the probability [0,1] of failing a call with ErrInjectedFault.
	ErrorRate float64
	// LatencyJitter adds a random delay in [0, LatencyJitter) before each call.
	LatencyJitter time.Duration
	// TruncateContent cuts successful responses in half, breaking JSON bodies.
	TruncateContent bool
}

// FaultInjector wraps a Provider and injects configurable faults. It is used
// to rehearse advice generation against a flaky upstream.
type FaultInjector struct {
	inner Provider
	cfg   FaultConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewFaultInjector creates a FaultInjector with a time-based seed.
func NewFaultInjector(inner Provider, cfg FaultConfig) *FaultInjector {
	return NewFaultInjectorWithSeed(inner, cfg, time.Now().UnixNano())
}

// NewFaultInjectorWithSeed creates a FaultInjector with a deterministic seed.
func NewFaultInjectorWithSeed(inner Provider, cfg FaultConfig, seed int64) *FaultInjector {
	return &FaultInjector{
		inner: inner,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(seed)), //nolint:gosec
	}
}

func (f *FaultInjector) Name() string         { return "fault:" + f.inner.Name() }
func (f *FaultInjector) DefaultModel() string { return f.inner.DefaultModel() }

func (f *FaultInjector) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	f.mu.Lock()
	roll := f.rng.Float64()
	var jitter time.Duration
	if f.cfg.LatencyJitter > 0 {
		jitter = time.Duration(f.rng.Int63n(int64(f.cfg.LatencyJitter)))
	}
	f.mu.Unlock()

	if jitter > 0 {
		select {
		case <-time.After(jitter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.cfg.ErrorRate > 0 && roll < f.cfg.ErrorRate {
		return nil, ErrInjectedFault
	}

	resp, err := f.inner.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	if f.cfg.TruncateContent && len(resp.Content) > 1 {
		cut := *resp
		cut.Content = resp.Content[:len(resp.Content)/2]
		return &cut, nil
	}
	return resp, nil
}
