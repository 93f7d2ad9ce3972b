// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package memo provides TTL memoization for expensive data-source calls.
//
// The cache keys each call by operation name plus a digest of its
// arguments, deduplicates concurrent identical computations with
// singleflight, and stores serialized results in a pluggable Store.
// Two stores ship with the package: an in-memory map (default, used in
// tests) and a Badger-backed store for deployments that want cached
// datasets to survive restarts.
package memo

import (
	"strings"
	"sync"
	"time"
)

// Store is the persistence contract for cached entries.
//
// Implementations must be safe for concurrent use. Expiry is handled by
// the store: Get must not return entries whose TTL has elapsed.
type Store interface {
	// Get returns the value for key, or found=false when absent or expired.
	Get(key string) (value []byte, found bool, err error)

	// Set writes value under key with the given TTL.
	// A non-positive TTL means the entry does not expire.
	Set(key string, value []byte, ttl time.Duration) error

	// DeletePrefix removes every entry whose key starts with prefix.
	// An empty prefix removes all entries.
	DeletePrefix(prefix string) error

	// Close releases store resources.
	Close() error
}

// =============================================================================
// MemoryStore
// =============================================================================

// memoryEntry is a value with its absolute expiry time.
type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is a process-local Store backed by a map.
//
// Expired entries are dropped lazily on Get. There is no background
// sweeper; the working set is a handful of dataset-sized entries.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the value for key if present and unexpired.
func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set writes value under key with the given TTL.
func (s *MemoryStore) Set(key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

// DeletePrefix removes every entry whose key starts with prefix.
func (s *MemoryStore) DeletePrefix(prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prefix == "" {
		s.entries = make(map[string]memoryEntry)
		return nil
	}
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of entries, including not-yet-swept expired ones.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
