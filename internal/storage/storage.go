// Package storage provides the local asset cache.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Store caches fetched asset payloads and small metadata values.
type Store interface {
	Close() error
	GetAsset(path string) ([]byte, bool, error)
	PutAsset(path string, data []byte) error
	Meta(key string) (string, bool, error)
	SetMeta(key, value string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	AssetTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultAssetTTL        = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.AssetTTL <= 0 {
		opts.AssetTTL = defaultAssetTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                          { return nil }
func (noopStore) GetAsset(string) ([]byte, bool, error) { return nil, false, nil }
func (noopStore) PutAsset(string, []byte) error         { return nil }
func (noopStore) Meta(string) (string, bool, error)     { return "", false, nil }
func (noopStore) SetMeta(string, string) error          { return nil }
