package auth

import (
	"errors"

	"sarinfer/internal/utils"
)

// ErrMsgInvalidAPIKey is the fixed message of every authorization failure.
const ErrMsgInvalidAPIKey = "Authorization failed, invalid API key."

// ErrUnauthorized is returned for any key outside the allow-list, including
// an empty key.
var ErrUnauthorized = errors.New(ErrMsgInvalidAPIKey)

// Gate validates API keys against a fixed allow-list. The list is taken
// from configuration at construction and never re-read; a Gate is safe for
// concurrent use because it is never mutated after NewGate returns.
type Gate struct {
	// hash(API key) -> present
	keys map[string]struct{}
}

// NewGate builds a gate from plaintext keys. Blank entries are ignored, so
// an empty list rejects every key.
func NewGate(keys []string) *Gate {
	g := &Gate{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		if k == "" {
			continue
		}
		g.keys[utils.HashString(k)] = struct{}{}
	}
	return g
}

// Validate returns nil if key is in the allow-list and ErrUnauthorized
// otherwise.
func (g *Gate) Validate(key string) error {
	if key == "" {
		return ErrUnauthorized
	}
	if _, ok := g.keys[utils.HashString(key)]; !ok {
		return ErrUnauthorized
	}
	return nil
}

// ValidateHash is Validate for a key already reduced by utils.HashString,
// such as the subject of an issued token.
func (g *Gate) ValidateHash(hash string) error {
	if hash == "" {
		return ErrUnauthorized
	}
	if _, ok := g.keys[hash]; !ok {
		return ErrUnauthorized
	}
	return nil
}

// Len returns the number of distinct keys in the allow-list.
func (g *Gate) Len() int {
	return len(g.keys)
}
