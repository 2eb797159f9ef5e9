package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/O-Isaac/kamihama-server/pkg/httpclient"
)

// Configuration keys consumed by the client.
const (
	KeyAssetBase = "MagiRecoServer:AssetBase"
	KeyProxy     = "MagiRecoServer:Proxy"
)

const resourcePrefix = "resource/"

// Settings is the MagiRecoServer configuration section.
type Settings struct {
	AssetBase string
	Proxy     string
	UserAgent string
	Timeout   time.Duration
}

// Client fetches master JSON, auxiliary JSON and binary assets from the
// upstream game server. It is safe for concurrent use.
type Client struct {
	id      uuid.UUID
	http    httpclient.Client
	log     Logger
	now     func() time.Time
	baseURL string
}

type options struct {
	id              uuid.UUID
	http            httpclient.Client
	log             Logger
	now             func() time.Time
	transportLogger resty.Logger
}

// Option customizes a Client or VersionChecker.
type Option func(*options)

// WithLogger injects the logger failures are reported to.
func WithLogger(log Logger) Option {
	return func(o *options) { o.log = log }
}

// WithID fixes the client identifier instead of generating one.
func WithID(id uuid.UUID) Option {
	return func(o *options) { o.id = id }
}

// WithHTTPClient replaces the resty transport. Relative paths are passed as-is.
func WithHTTPClient(c httpclient.Client) Option {
	return func(o *options) { o.http = c }
}

// WithClock overrides the time source used for cache-busting timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTransportLogger routes resty's internal messages to log.
func WithTransportLogger(log resty.Logger) Option {
	return func(o *options) { o.transportLogger = log }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	o.log = ensureLogger(o.log)
	if o.now == nil {
		o.now = time.Now
	}
	if o.id == uuid.Nil {
		o.id = uuid.New()
	}
	return o
}

// New validates settings and builds a Client. A missing or malformed base URL
// or proxy yields a *ConfigurationError.
func New(s Settings, opts ...Option) (*Client, error) {
	base := strings.TrimSpace(s.AssetBase)
	if base == "" {
		return nil, &ConfigurationError{Key: KeyAssetBase, Reason: "missing"}
	}
	if err := checkAbsoluteURL(base); err != nil {
		return nil, &ConfigurationError{Key: KeyAssetBase, Reason: err.Error()}
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
			BaseURL:   base,
			Proxy:     proxy,
			UserAgent: s.UserAgent,
			Timeout:   s.Timeout,
			Logger:    o.transportLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("init transport: %w", err)
		}
		transport = rc
	}

	return &Client{
		id:      o.id,
		http:    transport,
		log:     o.log,
		now:     o.now,
		baseURL: base,
	}, nil
}

func checkAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is malformed: %v", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("is not an absolute url: %q", raw)
	}
	return nil
}

// ID returns the identifier generated for this client instance.
func (c *Client) ID() uuid.UUID { return c.id }

// BaseURL returns the configured asset base.
func (c *Client) BaseURL() string { return c.baseURL }

// ProxyURL reports the proxy the transport routes through, if the transport exposes it.
func (c *Client) ProxyURL() string {
	if p, ok := c.http.(interface{ ProxyURL() string }); ok {
		return p.ProxyURL()
	}
	return ""
}

// cacheBusted appends the current unix time as a bare query so CDNs never serve a stale copy.
func (c *Client) cacheBusted(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strconv.FormatInt(c.now().Unix(), 10)
}

// GetMasterJSON fetches endpoint with a cache-busting timestamp and decodes it
// into T. Any failure is logged and T's zero value is returned with the error.
func GetMasterJSON[T any](ctx context.Context, c *Client, endpoint string) (T, error) {
	var zero T
	body, err := c.masterJSON(ctx, endpoint)
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		c.log.WarnObj("unable to decode master json", "master_json_error", map[string]any{
			"client_id": c.id.String(),
			"endpoint":  endpoint,
			"error":     err.Error(),
			"content":   bodySnippet(body),
		})
		return zero, fmt.Errorf("decode master json %s: %w", endpoint, err)
	}
	return out, nil
}

func (c *Client) masterJSON(ctx context.Context, endpoint string) ([]byte, error) {
	resp, err := c.http.Get(ctx, c.cacheBusted(endpoint), nil)
	if err != nil {
		c.log.WarnObj("unable to get master json", "master_json_error", map[string]any{
			"client_id": c.id.String(),
			"endpoint":  endpoint,
			"status":    "transport_error",
			"error":     err.Error(),
		})
		return nil, fmt.Errorf("get master json %s: %w", endpoint, err)
	}

	body := resp.Body()
	if !successful(resp.StatusCode()) {
		c.log.WarnObj("unable to get master json", "master_json_error", map[string]any{
			"client_id": c.id.String(),
			"endpoint":  endpoint,
			"status":    resp.StatusCode(),
			"error":     http.StatusText(resp.StatusCode()),
			"content":   bodySnippet(body),
		})
		return nil, &StatusError{StatusCode: resp.StatusCode(), Path: endpoint, Body: bodySnippet(body)}
	}
	return body, nil
}

// GetAdditionalJSON fetches item with a cache-busting timestamp and returns the
// body text whatever the status. A non-2xx status is also reported as a
// *StatusError; a transport failure returns an empty body.
func (c *Client) GetAdditionalJSON(ctx context.Context, item string) (string, error) {
	resp, err := c.http.Get(ctx, c.cacheBusted(item), nil)
	if err != nil {
		c.log.WarnObj("unable to get additional json", "additional_json_error", map[string]any{
			"client_id": c.id.String(),
			"item":      item,
			"error":     err.Error(),
		})
		return "", fmt.Errorf("get additional json %s: %w", item, err)
	}

	body := resp.Body()
	if !successful(resp.StatusCode()) {
		return string(body), &StatusError{StatusCode: resp.StatusCode(), Path: item, Body: bodySnippet(body)}
	}
	return string(body), nil
}

// FetchAsset downloads resource/<item>. A 404 or an HTML page maps to
// ResultNotFound, other 2xx responses to ResultSuccess with the exact bytes,
// and everything else to ResultFailed.
func (c *Client) FetchAsset(ctx context.Context, item string) Result {
	path := resourcePrefix + strings.TrimPrefix(item, "/")

	resp, err := c.http.Get(ctx, path, nil)
	if err != nil {
		status := "transport_error"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = "cancelled"
		}
		c.log.WarnObj("asset fetch failed", "asset_error", map[string]any{
			"client_id": c.id.String(),
			"item":      item,
			"status":    status,
			"error":     err.Error(),
		})
		return failed(fmt.Errorf("fetch asset %s: %w", item, err))
	}

	code := resp.StatusCode()
	contentType := resp.Header().Get("Content-Type")
	html := isHTML(contentType)
	if code == http.StatusNotFound || html {
		meta := map[string]any{
			"client_id":    c.id.String(),
			"item":         item,
			"status":       code,
			"content_type": contentType,
		}
		if html {
			meta["page_title"] = pageTitle(resp.Body())
		}
		c.log.DebugObj("asset not found upstream", "asset_not_found", meta)
		return notFound()
	}

	if !successful(code) {
		body := bodySnippet(resp.Body())
		c.log.WarnObj("asset fetch failed", "asset_error", map[string]any{
			"client_id": c.id.String(),
			"item":      item,
			"status":    code,
			"content":   body,
		})
		return failed(&StatusError{StatusCode: code, Path: path, Body: body})
	}

	return success(resp.Body())
}

func successful(code int) bool { return code >= 200 && code <= 299 }
