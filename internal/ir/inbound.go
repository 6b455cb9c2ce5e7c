package ir

import "time"

// ImageRef points at image bytes held by the transport.
type ImageRef struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// Inbound is one message as delivered by the transport. MessageID is
// monotonic per sender; GroupID is empty unless the image is part of an
// album.
type Inbound struct {
	SenderID   int64     `json:"sender_id"`
	ChatID     int64     `json:"chat_id"`
	MessageID  int64     `json:"message_id"`
	Date       time.Time `json:"date"`
	HasCaption bool      `json:"has_caption"`
	Caption    string    `json:"caption,omitempty"`
	GroupID    string    `json:"group_id,omitempty"`
	Photo      *ImageRef `json:"photo,omitempty"`
	Document   bool      `json:"document,omitempty"`
	HasText    bool      `json:"has_text"`
	Text       string    `json:"text,omitempty"`
}

// IsPhoto reports whether the message carries a compressed photo.
func (m Inbound) IsPhoto() bool { return m.Photo != nil }

// Grouped reports whether the message belongs to an album.
func (m Inbound) Grouped() bool { return m.GroupID != "" }
