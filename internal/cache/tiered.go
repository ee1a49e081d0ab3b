package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"afasrapport/internal/log"
)

// Tiered reads from primary and falls back to secondary when primary misses
// or fails. Writes go to both tiers.
type Tiered struct {
	primary   Backend
	secondary Backend
	logger    *log.Logger
}

var _ Backend = (*Tiered)(nil)

// NewTiered composes two backends. Either may be nil, in which case the
// other is used alone.
func NewTiered(primary, secondary Backend, logger *log.Logger) *Tiered {
	return &Tiered{
		primary:   primary,
		secondary: secondary,
		logger:    logger.WithComponent(log.ComponentCache),
	}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, error) {
	if t.primary != nil {
		v, err := t.primary.Get(ctx, key)
		switch {
		case err == nil:
			return v, nil
		case !errors.Is(err, ErrMiss):
			t.logger.WarnContext(ctx, "Primary cache unavailable, using fallback",
				log.FieldCacheKey, key, log.FieldError, err)
		}
	}
	if t.secondary == nil {
		return nil, ErrMiss
	}
	return t.secondary.Get(ctx, key)
}

// Set writes through to both tiers. It fails only when no tier accepted
// the value.
func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return t.each(ctx, "set", false, func(b Backend) error { return b.Set(ctx, key, value, ttl) })
}

// Delete removes key from both tiers. Unlike Set it fails when any tier
// failed; that tier may still hold the value.
func (t *Tiered) Delete(ctx context.Context, key string) error {
	return t.each(ctx, "delete", true, func(b Backend) error { return b.Delete(ctx, key) })
}

// DeletePrefix removes matching keys from both tiers and fails when any
// tier failed.
func (t *Tiered) DeletePrefix(ctx context.Context, prefix string) error {
	return t.each(ctx, "delete prefix", true, func(b Backend) error { return b.DeletePrefix(ctx, prefix) })
}

// CleanExpired forwards to tiers that support cleanup.
func (t *Tiered) CleanExpired(ctx context.Context) (int, error) {
	var (
		total int
		errs  []error
	)
	for _, b := range []Backend{t.primary, t.secondary} {
		if c, ok := b.(Cleaner); ok {
			n, err := c.CleanExpired(ctx)
			total += n
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

// each runs fn on every configured tier. With strict set any failing tier
// fails the call; otherwise it fails only when no tier succeeded.
func (t *Tiered) each(ctx context.Context, op string, strict bool, fn func(Backend) error) error {
	var (
		errs []error
		ok   int
	)
	for i, b := range []Backend{t.primary, t.secondary} {
		if b == nil {
			continue
		}
		if err := fn(b); err != nil {
			t.logger.WarnContext(ctx, "Cache tier write failed",
				log.FieldOperation, op, log.FieldCacheTier, i, log.FieldError, err)
			errs = append(errs, err)
			continue
		}
		ok++
	}
	if len(errs) > 0 && (strict || ok == 0) {
		return fmt.Errorf("cache %s: %w", op, errors.Join(errs...))
	}
	return nil
}
