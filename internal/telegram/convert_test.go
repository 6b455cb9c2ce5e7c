package telegram

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/polybot/internal/ir"
)

func decodeUpdate(t *testing.T, raw string) Update {
	t.Helper()
	var u Update
	require.NoError(t, json.Unmarshal([]byte(raw), &u))
	return u
}

func TestToInbound_CaptionedAlbumPhoto(t *testing.T) {
	u := decodeUpdate(t, `{
		"update_id": 1,
		"message": {
			"message_id": 10,
			"from": {"id": 7, "first_name": "Ada"},
			"chat": {"id": 70, "type": "private"},
			"date": 1700000000,
			"caption": "Blur 8",
			"media_group_id": "g1",
			"photo": [
				{"file_id": "small", "width": 90, "height": 60},
				{"file_id": "large", "width": 1280, "height": 853, "file_size": 99},
				{"file_id": "medium", "width": 320, "height": 213}
			]
		}
	}`)

	in, ok := ToInbound(u)
	require.True(t, ok)
	assert.Equal(t, ir.Inbound{
		SenderID:   7,
		ChatID:     70,
		MessageID:  10,
		Date:       time.Unix(1700000000, 0).UTC(),
		HasCaption: true,
		Caption:    "Blur 8",
		GroupID:    "g1",
		Photo:      &ir.ImageRef{FileID: "large", Width: 1280, Height: 853, FileSize: 99},
	}, in)
	assert.True(t, in.IsPhoto())
	assert.True(t, in.Grouped())
}

func TestToInbound_EmptyCaptionIsStillACaption(t *testing.T) {
	u := decodeUpdate(t, `{"message": {"message_id": 1, "from": {"id": 7}, "chat": {"id": 7}, "date": 0,
		"caption": "", "photo": [{"file_id": "a", "width": 1, "height": 1}]}}`)

	in, ok := ToInbound(u)
	require.True(t, ok)
	assert.True(t, in.HasCaption)
	assert.Empty(t, in.Caption)
}

func TestToInbound_TextAndDocument(t *testing.T) {
	text, ok := ToInbound(decodeUpdate(t, `{"message": {"message_id": 2, "from": {"id": 7}, "chat": {"id": 70}, "date": 5, "text": "help blur"}}`))
	require.True(t, ok)
	assert.True(t, text.HasText)
	assert.Equal(t, "help blur", text.Text)
	assert.Nil(t, text.Photo)

	doc, ok := ToInbound(decodeUpdate(t, `{"message": {"message_id": 3, "from": {"id": 7}, "date": 5, "document": {"file_id": "d"}}}`))
	require.True(t, ok)
	assert.True(t, doc.Document)
	assert.Equal(t, int64(7), doc.ChatID, "chat falls back to the sender")
}

func TestToInbound_Ignored(t *testing.T) {
	_, ok := ToInbound(Update{UpdateID: 1})
	assert.False(t, ok)

	_, ok = ToInbound(decodeUpdate(t, `{"edited_message": {"message_id": 1, "from": {"id": 7}}}`))
	assert.False(t, ok)

	_, ok = ToInbound(decodeUpdate(t, `{"message": {"message_id": 1}}`))
	assert.False(t, ok)
}

func TestLargestPhoto(t *testing.T) {
	_, ok := largestPhoto(nil)
	assert.False(t, ok)

	p, ok := largestPhoto([]PhotoSize{{FileID: "a", Width: 2, Height: 2}, {FileID: "b", Width: 4, Height: 1}})
	require.True(t, ok)
	assert.Equal(t, "b", p.FileID, "ties go to the later size")
}
