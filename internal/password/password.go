// Package password is the credential store: memory-hard password hashing and
// the breach-corpus strength check.
package password

import (
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/veletic/gatehouse/pkg/config"
)

type Hasher struct {
	params *argon2id.Params
}

func NewHasher(cfg config.AuthConfig) *Hasher {
	params := *argon2id.DefaultParams
	if cfg.HashMemoryKiB > 0 {
		params.Memory = cfg.HashMemoryKiB
	}
	if cfg.HashIterations > 0 {
		params.Iterations = cfg.HashIterations
	}
	if cfg.HashParallelism > 0 {
		params.Parallelism = cfg.HashParallelism
	}
	return &Hasher{params: &params}
}

func (h *Hasher) Hash(plaintext string) (string, error) {
	hash, err := argon2id.CreateHash(plaintext, h.params)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

func (h *Hasher) Verify(hash, plaintext string) (bool, error) {
	match, err := argon2id.ComparePasswordAndHash(plaintext, hash)
	if err != nil {
		return false, fmt.Errorf("failed to verify password: %w", err)
	}
	return match, nil
}
