// Package providers holds the external data sources behind read-only chat
// intents and the cache layer they share.
package providers

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/store"
)

// CachePolicy controls how long fetched data is served and how far past
// expiry it may be used when the upstream fails. A negative MaxStale allows
// any age.
type CachePolicy struct {
	TTL      time.Duration
	MaxStale time.Duration
}

// Fetch runs fetch through the cache at key. Fresh hits skip the upstream.
// Stale entries are served only when the upstream is unavailable or rate
// limited and the entry is within the stale budget.
func Fetch[T any](ctx context.Context, s store.TTLStore, log *zap.Logger, key string, policy CachePolicy, fetch func(context.Context) (T, error)) (T, error) {
	if s == nil || policy.TTL <= 0 {
		return fetch(ctx)
	}
	if log == nil {
		log = zap.NewNop()
	}

	var stale *T
	entry, err := s.Lookup(ctx, key, policy.MaxStale)
	if err != nil {
		log.Debug("cache lookup failed", zap.String("key", key), zap.Error(err))
	} else if entry.Hit {
		var cached T
		if err := json.Unmarshal(entry.Value, &cached); err == nil {
			if !entry.Stale {
				return cached, nil
			}
			if !entry.TooStale {
				stale = &cached
			}
		}
	}

	fresh, err := fetch(ctx)
	if err != nil {
		if stale != nil && staleFallbackAllowed(err) {
			log.Warn("upstream fetch failed; serving stale data", zap.String("key", key), zap.Error(err))
			return *stale, nil
		}
		return fresh, err
	}
	if payload, err := json.Marshal(fresh); err == nil {
		if err := s.SetTTL(ctx, key, payload, policy.TTL); err != nil {
			log.Debug("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return fresh, nil
}

func staleFallbackAllowed(err error) bool {
	cErr, ok := clierr.As(err)
	if !ok {
		return false
	}
	return cErr.Code == clierr.CodeUnavailable || cErr.Code == clierr.CodeRateLimited
}
