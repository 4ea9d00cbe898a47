// Package cache memoizes grading results outside the grading core.
//
// A [Cache] maps a [Key] (track, reference, hypothesis and the options that
// influence the result) to an opaque JSON payload. Two implementations are
// provided:
//
//   - [MemCache]: a bounded in-memory map, evicting the oldest entry first.
//   - [PostgresCache]: a grading_results table accessed through pgx.
//
// Both are safe for concurrent use.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrMiss is returned by [Cache.Get] when no entry exists for the key.
var ErrMiss = errors.New("cache: miss")

// Track names the grading operation a cached result belongs to.
type Track string

const (
	TrackKorean        Track = "korean"
	TrackFrench        Track = "french"
	TrackPronunciation Track = "pronunciation"
)

// Key identifies one cached result.
type Key struct {
	Track      Track
	Reference  string
	Hypothesis string

	// Options is a canonical encoding of the settings that change the
	// result, such as "substring=true".
	Options string
}

// Digest returns a stable hex digest of the key, suitable as a primary key.
func (k Key) Digest() string {
	h := sha256.New()
	for _, part := range []string{string(k.Track), k.Reference, k.Hypothesis, k.Options} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Cache stores grading results.
//
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the payload stored for key, or [ErrMiss].
	Get(ctx context.Context, key Key) ([]byte, error)

	// Put stores payload for key, replacing any previous entry.
	Put(ctx context.Context, key Key, payload []byte) error
}
