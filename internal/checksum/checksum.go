// Package checksum fingerprints file contents so unchanged files are not
// uploaded twice.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Set remembers the last checksum recorded per key. It is safe for
// concurrent use.
type Set struct {
	mu   sync.Mutex
	sums map[string]string
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{sums: make(map[string]string)}
}

// Changed reports whether sum differs from the one recorded for key.
func (s *Set) Changed(key, sum string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sums[key] != sum
}

// Record stores sum for key.
func (s *Set) Record(key, sum string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sums[key] = sum
}

// Len returns the number of recorded keys.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sums)
}
