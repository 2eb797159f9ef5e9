package assets

import (
	"fmt"

	"github.com/O-Isaac/kamihama-server/pkg/httpclient"
)

// ConfigurationError reports a missing or malformed setting at construction time.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s config entry %s", e.Key, e.Reason)
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d body: %s", e.Path, e.StatusCode, e.Body)
}

const snippetBytes = 512

func bodySnippet(body []byte) string {
	if s := httpclient.Snippet(body, snippetBytes); s != "" {
		return s
	}
	return "<empty>"
}
