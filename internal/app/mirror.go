package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/O-Isaac/kamihama-server/internal/config"
	"github.com/O-Isaac/kamihama-server/internal/logger"
	"github.com/O-Isaac/kamihama-server/internal/storage"
	"github.com/O-Isaac/kamihama-server/pkg/assets"
	"github.com/O-Isaac/kamihama-server/pkg/publishers"
)

const metaLatestVersion = "latest_version"

// Mirror wires the upstream asset client to the local cache and the version
// notification publishers.
type Mirror struct {
	cfg           *config.Config
	client        *assets.Client
	versions      *assets.VersionChecker
	store         storage.Store
	notifier      *publishers.Notifier
	checkInterval time.Duration
	prefetchDelay time.Duration
	log           logger.Logger
}

// VersionCheck is the outcome of one CheckVersion call.
type VersionCheck struct {
	Latest   string
	Previous string
	Changed  bool
}

// PrefetchSummary counts the outcomes of a Prefetch run.
type PrefetchSummary struct {
	Requested   int
	Succeeded   int
	Cached      int
	NotFound    int
	Failed      int
	FailedItems []string
}

// NewMirror builds a mirror runtime from config.
func NewMirror(ctx context.Context, cfg *config.Config, log logger.Logger) (*Mirror, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts := []assets.Option{assets.WithLogger(log)}
	if zl, ok := log.(*logger.ZapLogger); ok {
		opts = append(opts, assets.WithTransportLogger(zl.Sugar()))
	}

	settings := cfg.MagiRecoServer.AssetSettings()
	client, err := assets.New(settings, opts...)
	if err != nil {
		return nil, fmt.Errorf("init asset client: %w", err)
	}
	versions, err := assets.NewVersionChecker(settings, cfg.MagiRecoServer.VersionURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("init version checker: %w", err)
	}
	log.InfoObj("asset client initialized", "client_config", map[string]any{
		"client_id":   client.ID().String(),
		"asset_base":  client.BaseURL(),
		"proxy":       client.ProxyURL(),
		"version_url": versions.URL(),
		"timeout":     cfg.MagiRecoServer.Timeout.String(),
	})

	notifier, err := publishers.Build(ctx, cfg.Publishers, log)
	if err != nil {
		return nil, fmt.Errorf("init publishers: %w", err)
	}
	if notifier.Len() > 0 {
		log.InfoObj("publishers initialized", "publishers_meta", map[string]any{
			"count":   notifier.Len(),
			"targets": notifier.Targets(),
		})
	}

	storeOpts := storage.Options{
		AssetTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"asset_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &Mirror{
		cfg:           cfg,
		client:        client,
		versions:      versions,
		store:         store,
		notifier:      notifier,
		checkInterval: cfg.VersionCheckInterval,
		prefetchDelay: cfg.PrefetchDelay,
		log:           log,
	}, nil
}

// Client exposes the underlying asset client.
func (m *Mirror) Client() *assets.Client { return m.client }

// Asset serves item from the local cache, falling back to the upstream and
// caching successful downloads. Cache errors are logged and never fail the call.
func (m *Mirror) Asset(ctx context.Context, item string) assets.Result {
	res, _ := m.asset(ctx, item)
	return res
}

func (m *Mirror) asset(ctx context.Context, item string) (assets.Result, bool) {
	key := strings.TrimPrefix(item, "/")

	data, ok, err := m.store.GetAsset(key)
	switch {
	case err != nil:
		m.log.WarnObj("asset cache read failed", "cache_error", map[string]any{
			"item":  key,
			"error": err.Error(),
		})
	case ok:
		m.log.DebugObj("asset served from cache", "cache_hit", map[string]any{
			"item":  key,
			"bytes": len(data),
		})
		return assets.Result{Type: assets.ResultSuccess, Data: data}, true
	}

	res := m.client.FetchAsset(ctx, key)
	if res.OK() {
		if err := m.store.PutAsset(key, res.Data); err != nil {
			m.log.WarnObj("asset cache write failed", "cache_error", map[string]any{
				"item":  key,
				"error": err.Error(),
			})
		}
	}
	return res, false
}

// MasterJSON fetches a master JSON document without interpreting it.
func (m *Mirror) MasterJSON(ctx context.Context, endpoint string) (json.RawMessage, error) {
	return assets.GetMasterJSON[json.RawMessage](ctx, m.client, endpoint)
}

// AdditionalJSON fetches an auxiliary JSON document as text.
func (m *Mirror) AdditionalJSON(ctx context.Context, item string) (string, error) {
	return m.client.GetAdditionalJSON(ctx, item)
}

// CheckVersion compares the store's latest version with the app store and
// announces changes to every publisher. The first observation counts as a change.
func (m *Mirror) CheckVersion(ctx context.Context) (VersionCheck, error) {
	raw, err := m.versions.LatestVersion(ctx)
	if err != nil {
		return VersionCheck{}, err
	}
	latest := strings.TrimSpace(raw)
	if latest == "" {
		return VersionCheck{}, errors.New("version endpoint returned an empty body")
	}

	previous, found, err := m.store.Meta(metaLatestVersion)
	if err != nil {
		return VersionCheck{}, fmt.Errorf("read stored version: %w", err)
	}
	check := VersionCheck{Latest: latest, Previous: previous}
	if found && previous == latest {
		return check, nil
	}
	check.Changed = true

	if err := m.store.SetMeta(metaLatestVersion, latest); err != nil {
		return check, fmt.Errorf("store latest version: %w", err)
	}
	m.log.InfoObj("new app version detected", "version_change", map[string]any{
		"previous": previous,
		"latest":   latest,
	})

	evt := publishers.NewVersionEvent(m.client.ID().String(), previous, latest)
	delivered, err := m.notifier.Notify(ctx, evt)
	if err != nil {
		m.log.ErrorObj("version event publish failed", "publish_error", map[string]any{
			"delivered": delivered,
			"error":     err.Error(),
		})
	}
	return check, nil
}

// Watch checks the app version immediately and then on every interval tick
// until the context is cancelled.
func (m *Mirror) Watch(ctx context.Context) error {
	if m == nil || m.versions == nil {
		return fmt.Errorf("mirror is not initialized")
	}
	if m.checkInterval <= 0 {
		return fmt.Errorf("version check interval must be positive")
	}

	m.log.InfoObj("version watch starting", "watch_state", map[string]any{
		"publishers_count": m.notifier.Len(),
		"check_interval":   m.checkInterval.String(),
	})

	m.runCheck(ctx)

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.InfoObj("version watch exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			m.runCheck(ctx)
		}
	}
}

func (m *Mirror) runCheck(ctx context.Context) {
	check, err := m.CheckVersion(ctx)
	if err != nil {
		m.log.ErrorObj("version check failed", "error", err)
		return
	}
	m.log.DebugObj("version check completed", "version_check", map[string]any{
		"latest":  check.Latest,
		"changed": check.Changed,
	})
}

// Prefetch downloads items one by one, pausing between upstream requests, and
// stops early when ctx ends.
func (m *Mirror) Prefetch(ctx context.Context, items []string) (PrefetchSummary, error) {
	summary := PrefetchSummary{Requested: len(items)}
	start := time.Now()

	for i, item := range items {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		res, cached := m.asset(ctx, item)
		switch res.Type {
		case assets.ResultSuccess:
			summary.Succeeded++
			if cached {
				summary.Cached++
			}
		case assets.ResultNotFound:
			summary.NotFound++
		default:
			summary.Failed++
			summary.FailedItems = append(summary.FailedItems, item)
		}

		if cached || m.prefetchDelay <= 0 || i == len(items)-1 {
			continue
		}
		timer := time.NewTimer(m.prefetchDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return summary, ctx.Err()
		case <-timer.C:
		}
	}

	m.log.InfoObj("prefetch completed", "prefetch_summary", map[string]any{
		"requested":  summary.Requested,
		"succeeded":  summary.Succeeded,
		"cached":     summary.Cached,
		"not_found":  summary.NotFound,
		"failed":     summary.Failed,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return summary, nil
}

// Close releases the cache.
func (m *Mirror) Close() error {
	if m == nil || m.store == nil {
		return nil
	}
	if err := m.store.Close(); err != nil {
		m.log.ErrorObj("storage close failed", "error", err)
		return err
	}
	return nil
}
