// Package gencache caches backend completions in a local bbolt database
// so a re-run does not pay for prompts it has already answered.
package gencache

import (
	"context"
	"crypto/sha256"
	"fmt"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"bookbrief/internal/generate"
)

var bucketName = []byte("completions")

// Cache wraps a Generator and memoizes completions keyed by model,
// options, and prompt. A cache hit skips the backend entirely.
type Cache struct {
	db     *bolt.DB
	model  string
	inner  generate.Generator
	logger *zap.Logger
}

func Open(path, model string, inner generate.Generator, logger *zap.Logger) (*Cache, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("gencache: failed to open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("gencache: failed to create bucket: %w", err)
	}

	return &Cache{db: db, model: model, inner: inner, logger: logger}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) Complete(ctx context.Context, prompt string, opts generate.Options) (string, error) {
	key := c.key(prompt, opts)

	var cached []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketName).Get(key); v != nil {
			cached = append([]byte(nil), v...)
		}
		return nil
	})
	if err == nil && cached != nil {
		c.logger.Debug("completion cache hit")
		return string(cached), nil
	}

	text, err := c.inner.Complete(ctx, prompt, opts)
	if err != nil {
		return "", err
	}

	if err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, []byte(text))
	}); err != nil {
		c.logger.Warn("failed to store completion in cache", zap.Error(err))
	}

	return text, nil
}

func (c *Cache) key(prompt string, opts generate.Options) []byte {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%.2f|%d|%d|%s",
		c.model, opts.Temperature, opts.ContextWindow, opts.MaxOutputTokens, prompt))
	return sum[:]
}
