package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"intentrouter/internal/domain"
)

// Cache memoizes decision lists. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]domain.Decision, bool, error)
	Set(ctx context.Context, key string, decisions []domain.Decision) error
}

// Key hashes a classifier fingerprint, a role and a message into a cache
// key. The role is compared case-insensitively, the text exactly.
func Key(fingerprint, role, text string) string {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(role))))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func encode(decisions []domain.Decision) ([]byte, error) { return json.Marshal(decisions) }

func decode(data []byte) ([]domain.Decision, error) {
	var out []domain.Decision
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]domain.Decision, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, []domain.Decision) error          { return nil }
