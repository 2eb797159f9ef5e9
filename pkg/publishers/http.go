package publishers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/O-Isaac/kamihama-server/pkg/httpclient"
)

const webhookSnippetBytes = 512

// httpPublisher posts events to a webhook.
type httpPublisher struct {
	id     string
	hook   WebhookSink
	client *resty.Client
	log    Logger
}

func newHTTPPublisher(s Sink, log Logger) (Publisher, error) {
	if s.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", s.ID)
	}
	hook := *s.HTTP

	client := httpclient.NewRestyHTTPClient(time.Duration(hook.TimeoutSeconds) * time.Second)
	client.SetHeaders(hook.Headers)
	client.SetHeader("Content-Type", "application/json")

	return &httpPublisher{
		id:     s.ID,
		hook:   hook,
		client: client,
		log:    ensureLogger(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

// Publish sends evt as the JSON request body. Any non-2xx answer is an error.
func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(evt).
		Execute(h.hook.Method, h.hook.URL)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook answered %d: %s", resp.StatusCode(), httpclient.Snippet(resp.Body(), webhookSnippetBytes))
	}

	h.log.DebugObj("webhook accepted version event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"status":       resp.StatusCode(),
		"latest":       evt.LatestVersion,
	})
	return nil
}
