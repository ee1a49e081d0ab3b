package cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Encode serializes v as gzip-compressed JSON.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(v); err != nil {
		return nil, fmt.Errorf("encode cache value: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress cache value: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode into v.
func Decode(data []byte, v any) error {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decompress cache value: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("decompress cache value: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode cache value: %w", err)
	}
	return nil
}

// GetJSON loads key from b into v. It returns ErrMiss for absent keys and
// also for entries that no longer decode, after deleting them.
func GetJSON(ctx context.Context, b Backend, key string, v any) error {
	data, err := b.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := Decode(data, v); err != nil {
		_ = b.Delete(ctx, key)
		return ErrMiss
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, b Backend, key string, v any, ttl time.Duration) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	return b.Set(ctx, key, data, ttl)
}
