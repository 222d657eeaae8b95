package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/siherrmann/causemap/core/embedding"
)

// Cached memoizes embed by text so unchanged entities are not embedded twice
// within ttl. Failures are not cached. Callers get their own copy of a vector.
func Cached(embed embedding.EmbedFunc, ttl time.Duration) embedding.EmbedFunc {
	store := cache.New(ttl, 2*ttl)

	return func(ctx context.Context, text string) ([]float32, error) {
		sum := sha256.Sum256([]byte(text))
		key := hex.EncodeToString(sum[:])

		if cached, ok := store.Get(key); ok {
			return slices.Clone(cached.([]float32)), nil
		}

		vector, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		store.Set(key, slices.Clone(vector), cache.DefaultExpiration)
		return vector, nil
	}
}
