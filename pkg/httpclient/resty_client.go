package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Options configures a RestyClient. Zero values leave resty defaults in place.
type Options struct {
	BaseURL   string
	Proxy     string
	UserAgent string
	Timeout   time.Duration
	Logger    resty.Logger
}

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// New builds a RestyClient bound to opts.BaseURL and, when set, routed through
// opts.Proxy. Without opts.UserAgent requests carry no User-Agent header.
func New(opts Options) (*RestyClient, error) {
	c := newRestyBaseClient(opts.Timeout)

	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		if _, err := parseAbsoluteURL(base); err != nil {
			return nil, fmt.Errorf("base url: %w", err)
		}
		c.SetBaseURL(base)
	}
	if proxy := strings.TrimSpace(opts.Proxy); proxy != "" {
		if _, err := parseAbsoluteURL(proxy); err != nil {
			return nil, fmt.Errorf("proxy url: %w", err)
		}
		c.SetProxy(proxy)
	}
	if opts.UserAgent != "" {
		c.SetHeader("User-Agent", opts.UserAgent)
	} else {
		// resty fills in its own agent; an empty value makes net/http omit the header.
		c.SetPreRequestHook(func(_ *resty.Client, req *http.Request) error {
			req.Header.Set("User-Agent", "")
			return nil
		})
	}
	if opts.Logger != nil {
		c.SetLogger(opts.Logger)
	}

	return &RestyClient{client: c}, nil
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return c
}

func parseAbsoluteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute url", raw)
	}
	return u, nil
}

// BaseURL returns the base URL relative requests resolve against.
func (r *RestyClient) BaseURL() string { return r.client.BaseURL }

// ProxyURL returns the proxy all traffic is routed through, or "" when direct.
func (r *RestyClient) ProxyURL() string {
	if !r.client.IsProxySet() {
		return ""
	}
	transport, ok := r.client.GetClient().Transport.(*http.Transport)
	if !ok || transport.Proxy == nil {
		return ""
	}
	req, err := http.NewRequest(http.MethodGet, "http://upstream.invalid/", nil)
	if err != nil {
		return ""
	}
	u, err := transport.Proxy(req)
	if err != nil || u == nil {
		return ""
	}
	return u.String()
}

// Get performs an HTTP GET request with the specified context, URL, and headers.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte        { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int     { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Header() http.Header { return r.resp.Header() }
