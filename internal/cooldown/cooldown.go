// Package cooldown remembers credentials that recently failed with a
// credential-fatal error so concurrent cascades can skip them for a while.
package cooldown

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Memory is a process-local skip-list with per-entry expiry.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	until map[string]time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, until: make(map[string]time.Time)}
}

// Active reports whether the credential is still cooling down.
func (m *Memory) Active(_ context.Context, credential string) bool {
	key := Fingerprint(credential)
	m.mu.Lock()
	defer m.mu.Unlock()
	deadline, ok := m.until[key]
	if !ok {
		return false
	}
	if !m.now().Before(deadline) {
		delete(m.until, key)
		return false
	}
	return true
}

// Mark starts (or restarts) the cooldown window for a credential.
func (m *Memory) Mark(_ context.Context, credential string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.until[Fingerprint(credential)] = m.now().Add(m.ttl)
	m.sweepLocked()
}

// Len returns the number of credentials currently tracked, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.until)
}

func (m *Memory) sweepLocked() {
	now := m.now()
	for k, deadline := range m.until {
		if !now.Before(deadline) {
			delete(m.until, k)
		}
	}
}

// Fingerprint identifies a credential without keeping the secret itself.
func Fingerprint(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:8])
}
