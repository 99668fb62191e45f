package api

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const debounceCapacity = 10_000

// VerifyDebouncer drops repeated verify clicks for the same problem within a
// short window. It is per process; the store is what prevents double credit.
type VerifyDebouncer struct {
	mu     sync.Mutex
	recent *expirable.LRU[string, struct{}]
}

func NewVerifyDebouncer(window time.Duration) *VerifyDebouncer {
	return &VerifyDebouncer{
		recent: expirable.NewLRU[string, struct{}](debounceCapacity, nil, window),
	}
}

// Allow reports whether key was not seen within the window and records it
func (d *VerifyDebouncer) Allow(key string) bool {
	if d == nil {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.recent.Contains(key) {
		return false
	}
	d.recent.Add(key, struct{}{})
	return true
}
