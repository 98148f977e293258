// Package likes counts likes per post slug.
package likes

import (
	"context"
	"errors"
	"sync"
)

// ErrEmptySlug is returned when a like is recorded without a slug.
var ErrEmptySlug = errors.New("likes: slug is required")

// Store keeps a like counter per slug. Counters never go below zero and the
// value returned by Add is the value stored.
type Store interface {
	Count(ctx context.Context, slug string) (int64, error)
	Add(ctx context.Context, slug string, delta int64) (int64, error)
	Close() error
}

// Memory is a Store that lives only as long as the process.
type Memory struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemory() *Memory {
	return &Memory{counts: make(map[string]int64)}
}

func (m *Memory) Count(ctx context.Context, slug string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[slug], nil
}

func (m *Memory) Add(ctx context.Context, slug string, delta int64) (int64, error) {
	if slug == "" {
		return 0, ErrEmptySlug
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := floor(m.counts[slug] + delta)
	m.counts[slug] = n
	return n, nil
}

func (m *Memory) Close() error { return nil }

func floor(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
