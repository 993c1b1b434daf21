// Package testing provides test utilities for bucketry.
package testing

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zoobzio/bucketry"
	"github.com/zoobzio/capitan"
)

// MockProvider is an in-memory implementation of bucketry.BucketProvider for testing.
type MockProvider struct {
	data map[string][]byte
	info map[string]bucketry.ObjectInfo
	errs map[string]error
	mu   sync.RWMutex
}

// NewMockProvider creates a new in-memory provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		data: make(map[string][]byte),
		info: make(map[string]bucketry.ObjectInfo),
		errs: make(map[string]error),
	}
}

// FailOn makes every operation on key return err. A nil err clears it.
func (m *MockProvider) FailOn(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.errs, key)
		return
	}
	m.errs[key] = err
}

// Get retrieves the object at key.
func (m *MockProvider) Get(_ context.Context, key string) ([]byte, *bucketry.ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.errs[key]; err != nil {
		return nil, nil, err
	}
	data, ok := m.data[key]
	if !ok {
		return nil, nil, bucketry.ErrNotFound
	}

	// Return a copy to prevent mutation
	result := make([]byte, len(data))
	copy(result, data)
	info := m.info[key]
	return result, &info, nil
}

// Put stores data at key.
func (m *MockProvider) Put(_ context.Context, key string, data []byte, info *bucketry.ObjectInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.errs[key]; err != nil {
		return err
	}

	// Store a copy to prevent mutation
	stored := make([]byte, len(data))
	copy(stored, data)
	m.data[key] = stored

	stat := bucketry.ObjectInfo{Key: key, Size: int64(len(data))}
	if info != nil {
		stat.ContentType = info.ContentType
		stat.Metadata = info.Metadata
	}
	m.info[key] = stat
	return nil
}

// Delete removes the object at key.
func (m *MockProvider) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.errs[key]; err != nil {
		return err
	}
	if _, ok := m.data[key]; !ok {
		return bucketry.ErrNotFound
	}
	delete(m.data, key)
	delete(m.info, key)
	return nil
}

// Exists checks whether a key exists.
func (m *MockProvider) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.errs[key]; err != nil {
		return false, err
	}
	_, ok := m.data[key]
	return ok, nil
}

// List returns object info for keys with prefix, in key order.
// Limit of 0 means no limit.
func (m *MockProvider) List(_ context.Context, prefix string, limit int) ([]bucketry.ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	result := make([]bucketry.ObjectInfo, len(keys))
	for i, k := range keys {
		result[i] = m.info[k]
	}
	return result, nil
}

// Keys returns every stored key in order.
func (m *MockProvider) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reset clears all data and injected failures.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string][]byte)
	m.info = make(map[string]bucketry.ObjectInfo)
	m.errs = make(map[string]error)
}

// Ensure MockProvider implements bucketry.BucketProvider.
var _ bucketry.BucketProvider = (*MockProvider)(nil)

// CapturedEvent represents an event captured during testing.
type CapturedEvent struct {
	Signal    capitan.Signal
	Fields    []capitan.Field
	Timestamp time.Time
}

// EventCapture captures bucketry events for verification in tests.
type EventCapture struct {
	events []CapturedEvent
	mu     sync.Mutex
}

// NewEventCapture creates a new event capture utility.
func NewEventCapture() *EventCapture {
	return &EventCapture{
		events: make([]CapturedEvent, 0),
	}
}

// Handler returns a capitan.EventCallback that captures events.
func (c *EventCapture) Handler() capitan.EventCallback {
	return func(_ context.Context, e *capitan.Event) {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.events = append(c.events, CapturedEvent{
			Signal:    e.Signal(),
			Fields:    e.Fields(),
			Timestamp: time.Now(),
		})
	}
}

// Hook attaches the capture to signals. The returned func drains pending
// events and detaches.
func (c *EventCapture) Hook(signals ...capitan.Signal) func(context.Context) {
	handler := c.Handler()
	closers := make([]func(context.Context), 0, len(signals))
	for _, sig := range signals {
		l := capitan.Hook(sig, handler)
		closers = append(closers, func(ctx context.Context) {
			_ = l.Drain(ctx)
			l.Close()
		})
	}
	return func(ctx context.Context) {
		for _, fn := range closers {
			fn(ctx)
		}
	}
}

// Events returns a copy of all captured events.
func (c *EventCapture) Events() []CapturedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]CapturedEvent, len(c.events))
	copy(result, c.events)
	return result
}

// Count returns the number of captured events.
func (c *EventCapture) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.events)
}

// Reset clears all captured events.
func (c *EventCapture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = make([]CapturedEvent, 0)
}

// WaitForCount blocks until the specified number of events are captured or timeout.
func (c *EventCapture) WaitForCount(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.Count() >= n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return c.Count() >= n
}

// EventsBySignal returns events filtered by signal.
func (c *EventCapture) EventsBySignal(sig capitan.Signal) []CapturedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]CapturedEvent, 0)
	for _, e := range c.events {
		if e.Signal == sig {
			result = append(result, e)
		}
	}
	return result
}
