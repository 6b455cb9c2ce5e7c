package telegram

import (
	"time"

	"github.com/roach88/polybot/internal/ir"
)

// ToInbound converts an update into the bot's message model. It returns
// false for updates the bot ignores: anything without a new message, or a
// message without a sender.
func ToInbound(u Update) (ir.Inbound, bool) {
	m := u.Message
	if m == nil || m.From == nil {
		return ir.Inbound{}, false
	}

	in := ir.Inbound{
		SenderID:  m.From.ID,
		MessageID: m.MessageID,
		Date:      time.Unix(m.Date, 0).UTC(),
		GroupID:   m.MediaGroupID,
		Document:  m.Document != nil,
	}
	if m.Chat != nil {
		in.ChatID = m.Chat.ID
	} else {
		in.ChatID = m.From.ID
	}
	if m.Caption != nil {
		in.HasCaption = true
		in.Caption = *m.Caption
	}
	if m.Text != nil {
		in.HasText = true
		in.Text = *m.Text
	}
	if p, ok := largestPhoto(m.Photo); ok {
		in.Photo = &ir.ImageRef{
			FileID:       p.FileID,
			FileUniqueID: p.FileUniqueID,
			Width:        p.Width,
			Height:       p.Height,
			FileSize:     p.FileSize,
		}
	}
	return in, true
}

// largestPhoto picks the size with the most pixels; Telegram lists sizes
// smallest first, so ties go to the later entry.
func largestPhoto(sizes []PhotoSize) (PhotoSize, bool) {
	if len(sizes) == 0 {
		return PhotoSize{}, false
	}
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height >= best.Width*best.Height {
			best = s
		}
	}
	return best, true
}
