package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// HTTPConfig controls how generated requests are sent: where they go,
// how long to wait, and how the batch is paced. A zero request delay
// with sequential execution off allows the executor's worker pool to
// run requests concurrently.
type HTTPConfig struct {
	Scheme              string            `json:"scheme"`
	BaseURL             string            `json:"base_url"`
	Timeout             float64           `json:"timeout"`
	FollowRedirects     bool              `json:"follow_redirects"`
	VerifySSL           bool              `json:"verify_ssl"`
	AdditionalHeaders   map[string]string `json:"additional_headers"`
	SequentialExecution bool              `json:"sequential_execution"`
	RequestDelay        float64           `json:"request_delay"`
}

// DefaultHTTPConfig returns the executor defaults applied when a request
// omits http_config or leaves fields unset.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Scheme:              "http",
		BaseURL:             "localhost:8000",
		Timeout:             30,
		FollowRedirects:     true,
		VerifySSL:           false,
		AdditionalHeaders:   map[string]string{},
		SequentialExecution: false,
		RequestDelay:        0,
	}
}

// UnmarshalJSON merges the document over the defaults and rejects
// unknown keys so that a typo like "bas_url" fails loudly instead of
// silently targeting the default host.
func (c *HTTPConfig) UnmarshalJSON(data []byte) error {
	merged := DefaultHTTPConfig()

	type alias HTTPConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode((*alias)(&merged)); err != nil {
		return err
	}
	if merged.AdditionalHeaders == nil {
		merged.AdditionalHeaders = map[string]string{}
	}
	*c = merged
	return nil
}

// Validate checks field ranges after unmarshalling.
func (c *HTTPConfig) Validate() error {
	if c.Scheme != "http" && c.Scheme != "https" {
		return NewInvalidInput("scheme must be http or https, got %q", c.Scheme)
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return NewInvalidInput("base_url must not be empty")
	}
	if c.Timeout <= 0 {
		return NewInvalidInput("timeout must be positive, got %v", c.Timeout)
	}
	if c.RequestDelay < 0 {
		return NewInvalidInput("request_delay must not be negative, got %v", c.RequestDelay)
	}
	return nil
}
