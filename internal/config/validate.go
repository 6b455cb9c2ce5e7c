package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validation error codes (E200-E299)
const (
	ErrMissingToken  = "E201" // webhook mode needs a bot token
	ErrBadURL        = "E202" // app or api url is not absolute http(s)
	ErrBadDuration   = "E203" // timeout is zero or negative
	ErrBadBackend    = "E204" // unknown session backend
	ErrBadQuality    = "E205" // jpeg quality outside 1..100
	ErrBadLimit      = "E206" // negative retry count or download limit
	ErrBadLogSetting = "E207" // unknown log level or format
	ErrMissingAppURL = "E208" // webhook mode needs a public url
	ErrMissingAddr   = "E209" // webhook mode needs a listen address
)

// ValidationError represents a configuration problem.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks settings every command depends on.
// Returns all errors found (does not fail-fast).
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.Telegram.APIURL != "" && !isHTTPURL(c.Telegram.APIURL) {
		errs = append(errs, ValidationError{
			Field:   "telegram.api_url",
			Message: fmt.Sprintf("%q is not an http(s) url", c.Telegram.APIURL),
			Code:    ErrBadURL,
		})
	}
	if c.Telegram.AppURL != "" && !isHTTPURL(c.Telegram.AppURL) {
		errs = append(errs, ValidationError{
			Field:   "telegram.app_url",
			Message: fmt.Sprintf("%q is not an http(s) url", c.Telegram.AppURL),
			Code:    ErrBadURL,
		})
	}
	if c.Telegram.MaxRetries < 0 {
		errs = append(errs, ValidationError{
			Field:   "telegram.max_retries",
			Message: fmt.Sprintf("must not be negative, got %d", c.Telegram.MaxRetries),
			Code:    ErrBadLimit,
		})
	}

	durations := []struct {
		field string
		value int64
	}{
		{"telegram.timeout", int64(c.Telegram.Timeout)},
		{"server.read_timeout", int64(c.Server.ReadTimeout)},
		{"server.write_timeout", int64(c.Server.WriteTimeout)},
		{"session.timeout", int64(c.Session.Timeout)},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errs = append(errs, ValidationError{
				Field:   d.field,
				Message: "must be positive",
				Code:    ErrBadDuration,
			})
		}
	}

	switch strings.ToLower(c.Session.Backend) {
	case "memory", "sqlite":
	default:
		errs = append(errs, ValidationError{
			Field:   "session.backend",
			Message: fmt.Sprintf("unknown backend %q (want memory or sqlite)", c.Session.Backend),
			Code:    ErrBadBackend,
		})
	}

	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		errs = append(errs, ValidationError{
			Field:   "output.jpeg_quality",
			Message: fmt.Sprintf("must be between 1 and 100, got %d", c.Output.JPEGQuality),
			Code:    ErrBadQuality,
		})
	}
	if c.Output.MaxDownloadBytes <= 0 {
		errs = append(errs, ValidationError{
			Field:   "output.max_download_bytes",
			Message: fmt.Sprintf("must be positive, got %d", c.Output.MaxDownloadBytes),
			Code:    ErrBadLimit,
		})
	}

	if _, ok := parseLevel(c.Log.Level); !ok {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown level %q", c.Log.Level),
			Code:    ErrBadLogSetting,
		})
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("unknown format %q (want text or json)", c.Log.Format),
			Code:    ErrBadLogSetting,
		})
	}

	return errs
}

// ValidateServe runs Validate plus the checks only the webhook server
// needs.
func (c *Config) ValidateServe() []ValidationError {
	errs := c.Validate()

	if c.Telegram.Token == "" {
		errs = append(errs, ValidationError{
			Field:   "telegram.token",
			Message: "bot token is required (POLYBOT_TELEGRAM_TOKEN or TELEGRAM_TOKEN)",
			Code:    ErrMissingToken,
		})
	}
	if c.Telegram.AppURL == "" {
		errs = append(errs, ValidationError{
			Field:   "telegram.app_url",
			Message: "public url is required (POLYBOT_TELEGRAM_APP_URL or TELEGRAM_APP_URL)",
			Code:    ErrMissingAppURL,
		})
	}
	if c.Server.Addr == "" {
		errs = append(errs, ValidationError{
			Field:   "server.addr",
			Message: "listen address is required",
			Code:    ErrMissingAddr,
		})
	}

	return errs
}

// WebhookURL is the url Telegram posts updates to: the app url followed
// by the token path segment.
func (c *Config) WebhookURL() string {
	return strings.TrimRight(c.Telegram.AppURL, "/") + "/" + c.Telegram.Token + "/"
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
