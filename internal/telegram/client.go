package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ParseModeMarkdownV2 is the parse mode every bot reply uses.
const ParseModeMarkdownV2 = "MarkdownV2"

const (
	// DefaultAPIURL is the public Bot API endpoint.
	DefaultAPIURL = "https://api.telegram.org"
	// DefaultMaxRetries bounds retries per call.
	DefaultMaxRetries = 3
	// DefaultMaxDownloadBytes matches the Bot API download limit.
	DefaultMaxDownloadBytes = 20 << 20
)

// APIError is a failed Bot API call.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram %s: http %d", e.Method, e.StatusCode)
	}
	return fmt.Sprintf("telegram %s: http %d: %s", e.Method, e.StatusCode, e.Description)
}

// Temporary reports whether retrying may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ErrFileTooLarge is returned by Download when the file exceeds the limit.
var ErrFileTooLarge = errors.New("telegram file too large")

// Client calls the Bot API.
type Client struct {
	http       *http.Client
	baseURL    string
	token      string
	maxRetries uint64
	initial    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithBaseURL points the client at another API server.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithRetries sets the retry budget and the first backoff interval.
func WithRetries(max int, initial time.Duration) ClientOption {
	return func(c *Client) {
		if max < 0 {
			max = 0
		}
		c.maxRetries = uint64(max)
		c.initial = initial
	}
}

// NewClient creates a client for token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		http:       &http.Client{Timeout: 60 * time.Second},
		baseURL:    DefaultAPIURL,
		token:      token,
		maxRetries: DefaultMaxRetries,
		initial:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)
}

// retry runs op until it succeeds, fails permanently or the budget runs
// out. A 429 waits at least the server's retry_after.
func (c *Client) retry(ctx context.Context, op func() error) error {
	b := c.newBackoff(ctx)
	return backoff.RetryNotify(func() error {
		err := op()
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if !apiErr.Temporary() {
				return backoff.Permanent(err)
			}
			if apiErr.RetryAfter > 0 {
				select {
				case <-time.After(apiErr.RetryAfter):
				case <-ctx.Done():
					return backoff.Permanent(ctx.Err())
				}
			}
		}
		return err
	}, b, nil)
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// call posts a JSON (or multipart) body to method and decodes the result
// into out, retrying transient failures.
func (c *Client) call(ctx context.Context, method string, body func() (io.Reader, string, error), out any) error {
	return c.retry(ctx, func() error {
		var r io.Reader
		contentType := ""
		if body != nil {
			var err error
			r, contentType, err = body()
			if err != nil {
				return backoff.Permanent(err)
			}
		}
		httpMethod := http.MethodGet
		if r != nil {
			httpMethod = http.MethodPost
		}
		req, err := http.NewRequestWithContext(ctx, httpMethod, c.methodURL(method), r)
		if err != nil {
			return backoff.Permanent(err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		raw, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return decodeResponse(method, resp.StatusCode, raw, out)
	})
}

func decodeResponse(method string, status int, raw []byte, out any) error {
	var ar apiResponse
	if err := json.Unmarshal(raw, &ar); err != nil {
		if status < 200 || status >= 300 {
			return &APIError{Method: method, StatusCode: status, Description: strings.TrimSpace(string(raw))}
		}
		return backoff.Permanent(fmt.Errorf("telegram %s: decode response: %w", method, err))
	}
	if status < 200 || status >= 300 || !ar.OK {
		apiErr := &APIError{Method: method, StatusCode: status, Description: ar.Description}
		if ar.ErrorCode != 0 {
			apiErr.StatusCode = ar.ErrorCode
		}
		if ar.Parameters != nil && ar.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(ar.Parameters.RetryAfter) * time.Second
		}
		return apiErr
	}
	if out == nil || len(ar.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(ar.Result, out); err != nil {
		return backoff.Permanent(fmt.Errorf("telegram %s: decode result: %w", method, err))
	}
	return nil
}

func jsonBody(v any) func() (io.Reader, string, error) {
	return func() (io.Reader, string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(b), "application/json", nil
	}
}

// GetMe returns the bot's own account.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, "getMe", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetWebhook registers url as the update endpoint.
func (c *Client) SetWebhook(ctx context.Context, webhookURL string) error {
	return c.call(ctx, "setWebhook", jsonBody(setWebhookRequest{URL: webhookURL}), nil)
}

// DeleteWebhook removes any registered webhook.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", jsonBody(struct{}{}), nil)
}

// GetFile resolves a file id to a downloadable path.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil, fmt.Errorf("missing file_id")
	}
	var f File
	method := "getFile?file_id=" + url.QueryEscape(fileID)
	if err := c.call(ctx, method, nil, &f); err != nil {
		return nil, err
	}
	if strings.TrimSpace(f.FilePath) == "" {
		return nil, fmt.Errorf("telegram getFile: missing file_path")
	}
	return &f, nil
}

// Download fetches a file's bytes. maxBytes <= 0 means the Bot API limit.
func (c *Client) Download(ctx context.Context, filePath string, maxBytes int64) ([]byte, error) {
	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return nil, fmt.Errorf("missing file_path")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDownloadBytes
	}
	fileURL := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, strings.TrimLeft(filePath, "/"))

	var data []byte
	err := c.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return &APIError{Method: "download", StatusCode: resp.StatusCode, Description: strings.TrimSpace(string(raw))}
		}
		data, err = io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
		if err != nil {
			return err
		}
		if int64(len(data)) > maxBytes {
			return backoff.Permanent(fmt.Errorf("%w (>%d bytes)", ErrFileTooLarge, maxBytes))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// SendMessage sends text as a reply to replyTo (0 for none).
func (c *Client) SendMessage(ctx context.Context, chatID, replyTo int64, text, parseMode string) error {
	return c.call(ctx, "sendMessage", jsonBody(sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             parseMode,
		ReplyToMessageID:      replyTo,
		DisableWebPagePreview: true,
	}), nil)
}

// SendPhoto uploads an encoded image as a reply to replyTo (0 for none).
func (c *Client) SendPhoto(ctx context.Context, chatID, replyTo int64, data []byte, filename, caption, parseMode string) error {
	return c.call(ctx, "sendPhoto", func() (io.Reader, string, error) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fields := [][2]string{
			{"chat_id", strconv.FormatInt(chatID, 10)},
			{"caption", caption},
			{"parse_mode", parseMode},
		}
		if replyTo != 0 {
			fields = append(fields, [2]string{"reply_to_message_id", strconv.FormatInt(replyTo, 10)})
		}
		for _, f := range fields {
			if f[1] == "" {
				continue
			}
			if err := mw.WriteField(f[0], f[1]); err != nil {
				return nil, "", err
			}
		}
		part, err := mw.CreateFormFile("photo", filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
		if err := mw.Close(); err != nil {
			return nil, "", err
		}
		return &buf, mw.FormDataContentType(), nil
	}, nil)
}
