package assets

import (
	"context"
	"fmt"
	"strings"

	"github.com/O-Isaac/kamihama-server/pkg/httpclient"
)

// DefaultVersionURL looks up the latest Google Play release of the game.
const DefaultVersionURL = "https://gplay-ver.atlasacademy.workers.dev/?id=com.aniplex.magireco"

// VersionChecker queries the app store version endpoint. It shares the proxy,
// user agent and timeout of the asset client settings.
type VersionChecker struct {
	http httpclient.Client
	url  string
	log  Logger
}

// NewVersionChecker builds a checker for versionURL (DefaultVersionURL when empty).
// Only Proxy, UserAgent and Timeout are read from s.
func NewVersionChecker(s Settings, versionURL string, opts ...Option) (*VersionChecker, error) {
	versionURL = strings.TrimSpace(versionURL)
	if versionURL == "" {
		versionURL = DefaultVersionURL
	}
	if err := checkAbsoluteURL(versionURL); err != nil {
		return nil, &ConfigurationError{Key: "MagiRecoServer:VersionURL", Reason: err.Error()}
	}
	proxy := strings.TrimSpace(s.Proxy)
	if proxy != "" {
		if err := checkAbsoluteURL(proxy); err != nil {
			return nil, &ConfigurationError{Key: KeyProxy, Reason: err.Error()}
		}
	}

	o := buildOptions(opts)
	transport := o.http
	if transport == nil {
		rc, err := httpclient.New(httpclient.Options{
			Proxy:     proxy,
			UserAgent: s.UserAgent,
			Timeout:   s.Timeout,
			Logger:    o.transportLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("init version transport: %w", err)
		}
		transport = rc
	}

	return &VersionChecker{http: transport, url: versionURL, log: o.log}, nil
}

// URL returns the endpoint being queried.
func (v *VersionChecker) URL() string { return v.url }

// LatestVersion returns the raw body of the version endpoint. A non-2xx status
// still returns the body, together with a *StatusError.
func (v *VersionChecker) LatestVersion(ctx context.Context) (string, error) {
	resp, err := v.http.Get(ctx, v.url, nil)
	if err != nil {
		v.log.WarnObj("unable to get latest version", "version_error", map[string]any{
			"url":   v.url,
			"error": err.Error(),
		})
		return "", fmt.Errorf("get latest version: %w", err)
	}

	body := resp.Body()
	if !successful(resp.StatusCode()) {
		v.log.WarnObj("unable to get latest version", "version_error", map[string]any{
			"url":     v.url,
			"status":  resp.StatusCode(),
			"content": bodySnippet(body),
		})
		return string(body), &StatusError{StatusCode: resp.StatusCode(), Path: v.url, Body: bodySnippet(body)}
	}
	return string(body), nil
}
