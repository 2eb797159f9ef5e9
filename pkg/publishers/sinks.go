package publishers

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Supported publisher types.
const (
	TypeSQS  = "sqs"
	TypeHTTP = "http"
)

const (
	defaultWebhookMethod         = "POST"
	defaultWebhookTimeoutSeconds = 5
)

// Sink is one entry of the Publishers section of appsettings. Only the block
// matching Type is read.
type Sink struct {
	ID      string       `mapstructure:"id"`
	Type    string       `mapstructure:"type"`
	Enabled *bool        `mapstructure:"enabled"`
	HTTP    *WebhookSink `mapstructure:"http"`
	SQS     *QueueSink   `mapstructure:"sqs"`
}

// WebhookSink receives version events as a JSON request body.
type WebhookSink struct {
	URL            string            `mapstructure:"url"`
	Method         string            `mapstructure:"method"`
	Headers        map[string]string `mapstructure:"headers"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds"`
}

// QueueSink receives version events as SQS messages. Setting MessageGroupID
// marks the queue as FIFO.
type QueueSink struct {
	QueueURL       string `mapstructure:"uri"`
	Region         string `mapstructure:"region"`
	MessageGroupID string `mapstructure:"message_group_id"`
}

// IsEnabled reports whether the sink is switched on. Sinks are on unless
// explicitly disabled.
func (s Sink) IsEnabled() bool { return s.Enabled == nil || *s.Enabled }

// Prepare normalizes sinks and returns the enabled ones in order. Disabled
// entries are not validated, but their ids still have to be unique.
func Prepare(sinks []Sink) ([]Sink, error) {
	out := make([]Sink, 0, len(sinks))
	owner := make(map[string]int, len(sinks))
	var errs []error

	for i, s := range sinks {
		s = s.normalized()
		if first, taken := owner[s.ID]; taken && s.ID != "" {
			errs = append(errs, fmt.Errorf("publishers[%d]: id %q already used by publishers[%d]", i, s.ID, first))
			continue
		}
		owner[s.ID] = i

		if !s.IsEnabled() {
			continue
		}
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("publishers[%d]: %w", i, err))
			continue
		}
		out = append(out, s)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s Sink) normalized() Sink {
	s.ID = strings.TrimSpace(s.ID)
	s.Type = strings.ToLower(strings.TrimSpace(s.Type))

	if s.HTTP != nil {
		hook := *s.HTTP
		hook.URL = strings.TrimSpace(hook.URL)
		hook.Method = strings.ToUpper(strings.TrimSpace(hook.Method))
		if hook.Method == "" {
			hook.Method = defaultWebhookMethod
		}
		if hook.TimeoutSeconds <= 0 {
			hook.TimeoutSeconds = defaultWebhookTimeoutSeconds
		}
		headers := make(map[string]string, len(hook.Headers))
		for k, v := range hook.Headers {
			if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
				headers[k] = v
			}
		}
		hook.Headers = headers
		s.HTTP = &hook
	}
	if s.SQS != nil {
		queue := *s.SQS
		queue.QueueURL = strings.TrimSpace(queue.QueueURL)
		queue.Region = strings.TrimSpace(queue.Region)
		queue.MessageGroupID = strings.TrimSpace(queue.MessageGroupID)
		s.SQS = &queue
	}
	return s
}

func (s Sink) validate() error {
	if s.ID == "" {
		return errors.New("id is required")
	}

	switch s.Type {
	case TypeHTTP:
		if s.HTTP == nil {
			return fmt.Errorf("publisher %q needs an http block", s.ID)
		}
		u, err := url.Parse(s.HTTP.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("publisher %q http.url must be an absolute http(s) url, got %q", s.ID, s.HTTP.URL)
		}
	case TypeSQS:
		if s.SQS == nil {
			return fmt.Errorf("publisher %q needs an sqs block", s.ID)
		}
		if s.SQS.QueueURL == "" || s.SQS.Region == "" {
			return fmt.Errorf("publisher %q needs sqs.uri and sqs.region", s.ID)
		}
	case "":
		return fmt.Errorf("publisher %q has no type", s.ID)
	default:
		return fmt.Errorf("publisher %q has unsupported type %q (expected %s or %s)", s.ID, s.Type, TypeHTTP, TypeSQS)
	}
	return nil
}
