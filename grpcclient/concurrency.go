/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package grpcclient

import (
	"sync"

	"go.uber.org/atomic"
)

// ConcurrencyKey returns the key identifying a service method.
func ConcurrencyKey(serviceName, methodName string) string {
	return serviceName + ":" + methodName
}

// ConcurrencyTracker keeps the number of in-flight calls per service method.
// Counters are created on first use and live as long as the tracker.
type ConcurrencyTracker struct {
	counters sync.Map // string -> *atomic.Int32
}

// NewConcurrencyTracker creates a new ConcurrencyTracker.
func NewConcurrencyTracker() *ConcurrencyTracker {
	return &ConcurrencyTracker{}
}

// CounterFor returns the counter of the service method, creating it if needed.
// Concurrent first calls for the same key get the same counter.
func (t *ConcurrencyTracker) CounterFor(serviceName, methodName string) *atomic.Int32 {
	key := ConcurrencyKey(serviceName, methodName)
	if c, ok := t.counters.Load(key); ok {
		return c.(*atomic.Int32)
	}
	c, _ := t.counters.LoadOrStore(key, atomic.NewInt32(0))
	return c.(*atomic.Int32)
}

// Value returns the current number of in-flight calls of the service method.
func (t *ConcurrencyTracker) Value(serviceName, methodName string) int32 {
	if c, ok := t.counters.Load(ConcurrencyKey(serviceName, methodName)); ok {
		return c.(*atomic.Int32).Load()
	}
	return 0
}
