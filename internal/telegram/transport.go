package telegram

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/polybot/internal/imaging"
	"github.com/roach88/polybot/internal/ir"
)

// Transport adapts a Client to the bot's transport interface.
type Transport struct {
	client      *Client
	maxBytes    int64
	jpegQuality int
}

// NewTransport wraps c. maxBytes caps downloads; jpegQuality is used when
// encoding results.
func NewTransport(c *Client, maxBytes int64, jpegQuality int) *Transport {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = 90
	}
	return &Transport{client: c, maxBytes: maxBytes, jpegQuality: jpegQuality}
}

// FetchImage downloads and decodes a photo.
func (t *Transport) FetchImage(ctx context.Context, ref ir.ImageRef) (*imaging.Buffer, error) {
	f, err := t.client.GetFile(ctx, ref.FileID)
	if err != nil {
		return nil, err
	}
	data, err := t.client.Download(ctx, f.FilePath, t.maxBytes)
	if err != nil {
		return nil, err
	}
	b, format, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.FilePath, err)
	}
	slog.Debug("image downloaded",
		"file_id", ref.FileID,
		"format", format,
		"bytes", len(data),
		"width", b.Width(),
		"height", b.Height(),
	)
	return b, nil
}

// SendText sends a MarkdownV2 reply.
func (t *Transport) SendText(ctx context.Context, chatID, replyTo int64, text string) error {
	return t.client.SendMessage(ctx, chatID, replyTo, text, ParseModeMarkdownV2)
}

// SendPhoto encodes img as JPEG and sends it with a MarkdownV2 caption.
func (t *Transport) SendPhoto(ctx context.Context, chatID, replyTo int64, img *imaging.Buffer, caption string) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.FormatJPEG, t.jpegQuality); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return t.client.SendPhoto(ctx, chatID, replyTo, buf.Bytes(), "result.jpg", caption, ParseModeMarkdownV2)
}
