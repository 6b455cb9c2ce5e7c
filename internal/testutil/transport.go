package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/polybot/internal/imaging"
	"github.com/roach88/polybot/internal/ir"
)

// Reply kinds recorded by RecordingTransport.
const (
	ReplyText  = "text"
	ReplyPhoto = "photo"
)

// Reply is one message the bot sent.
type Reply struct {
	Kind    string
	ChatID  int64
	ReplyTo int64
	Text    string
	Image   *imaging.Buffer
}

// RecordingTransport serves images from memory and records every reply.
//
// Thread-safety: safe for concurrent use.
type RecordingTransport struct {
	mu      sync.Mutex
	images  map[string]*imaging.Buffer
	replies []Reply
	fetches []string

	// FailFetch, when set, is returned by every FetchImage call.
	FailFetch error
}

// NewRecordingTransport creates an empty transport.
func NewRecordingTransport() *RecordingTransport {
	return &RecordingTransport{images: make(map[string]*imaging.Buffer)}
}

// AddImage registers the buffer served for fileID.
func (t *RecordingTransport) AddImage(fileID string, b *imaging.Buffer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.images[fileID] = b
}

// FetchImage returns a copy of the registered buffer.
func (t *RecordingTransport) FetchImage(_ context.Context, ref ir.ImageRef) (*imaging.Buffer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fetches = append(t.fetches, ref.FileID)
	if t.FailFetch != nil {
		return nil, t.FailFetch
	}
	b, ok := t.images[ref.FileID]
	if !ok {
		return nil, fmt.Errorf("unknown file %q", ref.FileID)
	}
	return b.Clone(), nil
}

// SendText records a text reply.
func (t *RecordingTransport) SendText(_ context.Context, chatID, replyTo int64, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies = append(t.replies, Reply{Kind: ReplyText, ChatID: chatID, ReplyTo: replyTo, Text: text})
	return nil
}

// SendPhoto records a photo reply.
func (t *RecordingTransport) SendPhoto(_ context.Context, chatID, replyTo int64, img *imaging.Buffer, caption string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies = append(t.replies, Reply{Kind: ReplyPhoto, ChatID: chatID, ReplyTo: replyTo, Text: caption, Image: img.Clone()})
	return nil
}

// Replies returns the recorded replies in order.
func (t *RecordingTransport) Replies() []Reply {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Reply(nil), t.replies...)
}

// Fetches returns the file ids requested so far.
func (t *RecordingTransport) Fetches() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.fetches...)
}

// Reset forgets recorded replies and fetches; registered images stay.
func (t *RecordingTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies = nil
	t.fetches = nil
}
