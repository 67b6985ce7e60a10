package cache

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/prezenta-go-api/internal/models"
)

type memoryEntry struct {
	record    models.QRToken
	expiresAt time.Time
}

// MemoryTokenCache is an in-process TokenCache.
type MemoryTokenCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryTokenCache builds a cache whose entries live for ttl.
func NewMemoryTokenCache(ttl time.Duration) *MemoryTokenCache {
	return &MemoryTokenCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryTokenCache) Get(_ context.Context, token string) (models.QRToken, bool) {
	c.mu.RLock()
	entry, ok := c.entries[token]
	c.mu.RUnlock()
	if !ok {
		return models.QRToken{}, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		if current, still := c.entries[token]; still && current.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, token)
		}
		c.mu.Unlock()
		return models.QRToken{}, false
	}
	return entry.record, true
}

func (c *MemoryTokenCache) Put(_ context.Context, record models.QRToken) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked(now)
	c.entries[record.Token] = memoryEntry{record: record, expiresAt: now.Add(c.ttl)}
}

// Len reports the number of live entries.
func (c *MemoryTokenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(c.now())
	return len(c.entries)
}

func (c *MemoryTokenCache) pruneLocked(now time.Time) {
	for token, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, token)
		}
	}
}

type codeEntry struct {
	token     string
	expiresAt time.Time
}

// DisplayCodes maps short numeric display codes to the token they stand for.
// The index only lives in process memory and is rebuilt by token rotation.
type DisplayCodes struct {
	mu    sync.Mutex
	codes map[string]codeEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewDisplayCodes builds an index whose entries live for ttl.
func NewDisplayCodes(ttl time.Duration) *DisplayCodes {
	return &DisplayCodes{
		codes: make(map[string]codeEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Put maps code to token, replacing any previous mapping for the code.
func (d *DisplayCodes) Put(code, token string) {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	for existing, entry := range d.codes {
		if !now.Before(entry.expiresAt) {
			delete(d.codes, existing)
		}
	}
	d.codes[code] = codeEntry{token: token, expiresAt: now.Add(d.ttl)}
}

// Lookup returns the token currently mapped to code.
func (d *DisplayCodes) Lookup(code string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.codes[code]
	if !ok {
		return "", false
	}
	if !d.now().Before(entry.expiresAt) {
		delete(d.codes, code)
		return "", false
	}
	return entry.token, true
}
