package config

import "sync/atomic"

// Store holds the current configuration snapshot. Event handlers take
// exactly one Snapshot per event and pass it down; Replace swaps in a
// whole new Config on reload, so a handler in flight never observes a
// half-updated configuration.
type Store struct {
	current atomic.Pointer[Config]
}

// NewStore creates a Store seeded with cfg.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.current.Store(cfg)
	return s
}

// Snapshot returns the current configuration. The returned Config must
// be treated as read-only.
func (s *Store) Snapshot() *Config {
	return s.current.Load()
}

// Replace atomically installs cfg as the current configuration.
func (s *Store) Replace(cfg *Config) {
	s.current.Store(cfg)
}
