// Package mocks provides shared test doubles for vitestprovider packages.
package mocks

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/AndreyAkinshin/vitestprovider/internal/engine"
)

// Engine stands in for the engine invoker in provider tests.
// Use NewEngine() to create instances with a fluent builder API.
type Engine struct {
	run   *engine.Run
	err   error
	panic any

	// InvokeFunc is called by Invoke when set, replacing the canned outcome.
	InvokeFunc func(ctx context.Context, files []string) (*engine.Run, error)

	// Call tracking (thread-safe)
	callCount int32
	mu        sync.Mutex
	calls     [][]string
}

// NewEngine creates a mock engine that returns an empty run.
func NewEngine() *Engine {
	return &Engine{run: &engine.Run{}}
}

// WithRun makes Invoke return run.
func (m *Engine) WithRun(run *engine.Run) *Engine {
	m.run = run
	m.err = nil
	return m
}

// WithError makes Invoke fail with err.
func (m *Engine) WithError(err error) *Engine {
	m.run = nil
	m.err = err
	return m
}

// WithPanic makes Invoke panic with v.
func (m *Engine) WithPanic(v any) *Engine {
	m.panic = v
	return m
}

// WithInvokeFunc sets a custom Invoke implementation.
func (m *Engine) WithInvokeFunc(fn func(ctx context.Context, files []string) (*engine.Run, error)) *Engine {
	m.InvokeFunc = fn
	return m
}

func (m *Engine) Invoke(ctx context.Context, files []string) (*engine.Run, error) {
	atomic.AddInt32(&m.callCount, 1)
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), files...))
	m.mu.Unlock()

	if m.panic != nil {
		panic(m.panic)
	}
	if m.InvokeFunc != nil {
		return m.InvokeFunc(ctx, files)
	}
	return m.run, m.err
}

// Test inspection methods

// CallCount returns the number of times Invoke was called.
func (m *Engine) CallCount() int32 {
	return atomic.LoadInt32(&m.callCount)
}

// Calls returns the file lists passed to Invoke, in call order.
func (m *Engine) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([][]string, len(m.calls))
	copy(result, m.calls)
	return result
}

// Reset clears call tracking state.
func (m *Engine) Reset() {
	atomic.StoreInt32(&m.callCount, 0)
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}
