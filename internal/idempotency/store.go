package idempotency

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

const (
	StateProcessing = "processing"
	StateCompleted  = "completed"

	DefaultTTL = 24 * time.Hour
)

// ErrNotFound is returned by Get when no entry exists for the key.
var ErrNotFound = errors.New("idempotency key not found")

// Entry is what the store keeps per Idempotency-Key.
type Entry struct {
	State           string          `json:"state"`
	RequestBodyHash string          `json:"request_body_hash"`
	StatusCode      int             `json:"status_code,omitempty"`
	Response        json.RawMessage `json:"response,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (e *Entry) Completed() bool { return e != nil && e.State == StateCompleted }

type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	// Reserve stores a processing entry only when the key is unused. It reports whether it did.
	Reserve(ctx context.Context, key, bodyHash string, ttl time.Duration) (bool, error)
	Put(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	Release(ctx context.Context, key string) error
	Close() error
}

// Fingerprint hashes a request body with BLAKE2b-256. Leading and trailing whitespace is ignored.
func Fingerprint(body []byte) string {
	sum := blake2b.Sum256([]byte(strings.TrimSpace(string(body))))
	return hex.EncodeToString(sum[:])
}

// CacheKey namespaces a client key by resource.
func CacheKey(resource, key string) string {
	return "idem:" + resource + ":" + strings.TrimSpace(key)
}
