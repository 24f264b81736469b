package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cached implements read-through caching with safe degradation.
//
// When the manager reports an unhealthy store (or mgr is nil), the cache is
// skipped and fetch is called directly. On a hit the stored JSON is decoded
// and returned without calling fetch; an undecodable entry counts as a miss.
// On a miss the fetched value is written back best-effort: a failed write is
// logged and swallowed.
//
// Errors from fetch propagate unchanged. No caller ever fails solely because
// the cache store is unavailable or slow to write.
func Cached[T any](ctx context.Context, mgr *Manager, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	var store Store
	if mgr != nil {
		store = mgr.Client()
	}
	if store == nil {
		bypasses.Inc()
	} else {
		data, err := store.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var v T
			if jerr := json.Unmarshal(data, &v); jerr == nil {
				hits.Inc()
				return v, nil
			}
			// Treat an undecodable entry as a miss; the write below
			// overwrites it with a fresh value.
			slog.Warn("cache entry undecodable, refetching", "key", key)
		case errors.Is(err, redis.Nil):
			// miss
		default:
			slog.Warn("cache read failed", "key", key, "error", err)
			if !callerCanceled(err) {
				mgr.ReportFailure(err)
			}
			store = nil
		}
		misses.Inc()
	}

	v, err := fetch(ctx)
	if err != nil {
		return zero, err
	}

	if store != nil {
		if data, merr := json.Marshal(v); merr == nil {
			if serr := store.Set(ctx, key, data, ttl).Err(); serr != nil {
				slog.Warn("cache write failed", "key", key, "error", serr)
				if !callerCanceled(serr) {
					mgr.ReportFailure(serr)
				}
			}
		}
	}

	return v, nil
}

// callerCanceled reports whether an error stems from the caller's own context
// rather than from store I/O. An aborted request must not tear down the
// shared connection for everyone else.
func callerCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
