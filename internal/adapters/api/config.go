package api

import (
	"fmt"
	"net/url"
	"strings"
)

const DefaultBaseURL = "http://localhost:8000"

// Config holds backend API client configuration.
type Config struct {
	BaseURL string
}

// Validate normalises BaseURL and rejects values that cannot be requested.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid API base URL %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid API base URL %q: scheme must be http or https", c.BaseURL)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}
