package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"authgate/pkg/cache"
)

const (
	codeLedgerPrefix = "authgate:google:code:"
	codeLedgerTTL    = 10 * time.Minute
)

// CodeLedger remembers authorization codes that have been presented so a
// replayed code is refused before Google is contacted.
type CodeLedger interface {
	// Claim reports false when code was already claimed.
	Claim(ctx context.Context, code string) (bool, error)
}

type cacheLedger struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewCacheLedger(c cache.Cache) CodeLedger {
	return &cacheLedger{cache: c, ttl: codeLedgerTTL}
}

func (l *cacheLedger) Claim(ctx context.Context, code string) (bool, error) {
	sum := sha256.Sum256([]byte(code))
	key := codeLedgerPrefix + hex.EncodeToString(sum[:])

	ok, err := l.cache.SetNX(ctx, key, "1", l.ttl)
	if err != nil {
		return false, fmt.Errorf("claim authorization code: %w", err)
	}
	return ok, nil
}
