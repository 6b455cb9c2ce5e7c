package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/polybot/internal/engine"
	"github.com/roach88/polybot/internal/imaging"
	"github.com/roach88/polybot/internal/ir"
	"github.com/roach88/polybot/internal/replies"
	"github.com/roach88/polybot/internal/session"
	"github.com/roach88/polybot/internal/testutil"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

const (
	sender = int64(7)
	chat   = int64(70)
)

type fixture struct {
	bot       *Bot
	transport *testutil.RecordingTransport
	sessions  session.Cache
	clock     *testutil.StepClock
	src       *imaging.Buffer
	other     *imaging.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tr := testutil.NewRecordingTransport()
	src := testutil.Gradient(4, 3)
	other := testutil.Solid(2, 3, imaging.Pixel{R: 9, G: 9, B: 9})
	tr.AddImage("src", src)
	tr.AddImage("other", other)

	sessions := session.NewMemory()
	b := New(tr, sessions, WithTimeout(30*time.Second), WithClock(engine.NewClock()))
	return &fixture{
		bot:       b,
		transport: tr,
		sessions:  sessions,
		clock:     testutil.NewStepClock(time.Time{}, time.Second),
		src:       src,
		other:     other,
	}
}

func (f *fixture) photo(id int64, fileID, group string, caption ...string) ir.Inbound {
	msg := ir.Inbound{
		SenderID:  sender,
		ChatID:    chat,
		MessageID: id,
		Date:      f.clock.Tick(),
		GroupID:   group,
		Photo:     &ir.ImageRef{FileID: fileID},
	}
	if len(caption) > 0 {
		msg.HasCaption = true
		msg.Caption = caption[0]
	}
	return msg
}

func (f *fixture) text(id int64, text string) ir.Inbound {
	return ir.Inbound{SenderID: sender, ChatID: chat, MessageID: id, Date: f.clock.Tick(), HasText: true, Text: text}
}

func (f *fixture) handle(t *testing.T, msg ir.Inbound) {
	t.Helper()
	require.NoError(t, f.bot.HandleMessage(context.Background(), msg))
}

func errorText(body string) string {
	return replies.Default().ErrorText(body)
}

func render(category, key string, args ...any) string {
	return replies.Default().Render(category, key, args...)
}

func TestHandleMessage_SinglePhoto(t *testing.T) {
	f := newFixture(t)
	f.handle(t, f.photo(1, "src", "", "Grayscale, rotate"))

	got := f.transport.Replies()
	require.Len(t, got, 2)

	assert.Equal(t, testutil.Reply{
		Kind: testutil.ReplyText, ChatID: chat, ReplyTo: 1,
		Text: render(replies.Photo, replies.KeyProcessing),
	}, got[0])

	assert.Equal(t, testutil.ReplyPhoto, got[1].Kind)
	assert.Equal(t, int64(1), got[1].ReplyTo)
	assert.Equal(t, render(replies.Photo, replies.KeySend), got[1].Text)

	want := imaging.Rotate(imaging.Grayscale(f.src), 90)
	assert.True(t, want.Equal(got[1].Image), "got %s", got[1].Image)
}

func TestHandleMessage_ArgumentError(t *testing.T) {
	f := newFixture(t)
	f.handle(t, f.photo(1, "src", "", "blur 40"))

	got := f.transport.Replies()
	require.Len(t, got, 1)
	assert.Equal(t, errorText("Errors in *blur 40*:\n40: *blur 40*: must be between 1 and 32, got 40\\."), got[0].Text)
	assert.Empty(t, f.transport.Fetches(), "rejected captions never download")
}

func TestHandleMessage_UnknownEffect(t *testing.T) {
	f := newFixture(t)
	f.handle(t, f.photo(1, "src", "", "blurr"))

	got := f.transport.Replies()
	require.Len(t, got, 1)
	assert.Equal(t, errorText("Effect *blurr* was not found\\.\nDid you mean *blur*?"), got[0].Text)
}

func TestHandleMessage_NoCaption(t *testing.T) {
	f := newFixture(t)
	f.handle(t, f.photo(1, "src", ""))
	f.handle(t, f.photo(2, "src", "", "   "))

	want := errorText(render(replies.Photo, string(ir.ProblemNoCaption)))
	got := f.transport.Replies()
	require.Len(t, got, 2)
	assert.Equal(t, want, got[0].Text)
	assert.Equal(t, want, got[1].Text)
}

func TestHandleMessage_MultiImageWithoutAlbum(t *testing.T) {
	f := newFixture(t)
	f.handle(t, f.photo(1, "src", "", "concat"))

	got := f.transport.Replies()
	require.Len(t, got, 1)
	assert.Equal(t, errorText(render(replies.Photo, string(ir.ProblemMissingSecondImage), "concat")), got[0].Text)
}

func TestHandleMessage_AlbumPairing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.handle(t, f.photo(1, "src", "g1", "concat"))
	assert.Empty(t, f.transport.Replies(), "first photo waits silently")

	n, err := f.sessions.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f.handle(t, f.photo(2, "other", "g1"))

	got := f.transport.Replies()
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ReplyTo)
	assert.Equal(t, testutil.ReplyPhoto, got[1].Kind)
	assert.Equal(t, 6, got[1].Image.Width())
	assert.Equal(t, 3, got[1].Image.Height())
	assert.Equal(t, []string{"src", "other"}, f.transport.Fetches())

	// Redelivery of either photo must not execute again.
	f.handle(t, f.photo(2, "other", "g1"))
	f.handle(t, f.photo(1, "src", "g1", "concat"))
	f.handle(t, f.photo(3, "other", "g1"))
	assert.Len(t, f.transport.Replies(), 2)
}

func TestHandleMessage_AlbumWithSingleImageEffects(t *testing.T) {
	f := newFixture(t)

	f.handle(t, f.photo(1, "src", "g1", "grayscale"))
	f.handle(t, f.photo(2, "other", "g1"))

	got := f.transport.Replies()
	require.Len(t, got, 3)
	assert.Equal(t, testutil.ReplyPhoto, got[1].Kind)
	assert.Equal(t, int64(1), got[1].ReplyTo)
	assert.Equal(t, errorText(render(replies.Photo, string(ir.ProblemNoCaption))), got[2].Text)
	assert.Equal(t, int64(2), got[2].ReplyTo)
}

func TestHandleMessage_TooManyMultiImageEffects(t *testing.T) {
	f := newFixture(t)

	f.handle(t, f.photo(1, "src", "g1", "concat, multiply"))
	f.handle(t, f.photo(2, "other", "g1"))

	got := f.transport.Replies()
	require.Len(t, got, 1, "the partner photo is dropped")
	assert.Equal(t, errorText(render(replies.Photo, string(ir.ProblemTooManyMultiImage), "concat\nmultiply")), got[0].Text)
}

func TestHandleMessage_EmptyResult(t *testing.T) {
	tests := []struct {
		caption string
		effect  string
	}{
		{"canvas-resize 0 5", "canvas-resize"},
		{"blur 4", "blur"},
		{"rotate, canvas-resize 3 0", "canvas-resize"},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			f := newFixture(t)
			f.handle(t, f.photo(1, "src", "", tt.caption))

			got := f.transport.Replies()
			require.Len(t, got, 2)
			assert.Equal(t, render(replies.Photo, replies.KeyProcessing), got[0].Text)
			assert.Equal(t, errorText(render(replies.Photo, replies.KeyEmptyResult, tt.effect)), got[1].Text)
			assert.Equal(t, int64(1), got[1].ReplyTo)
		})
	}
}

func TestHandleMessage_AlbumWithTwoMultiImageCaptions(t *testing.T) {
	backends := []string{session.BackendMemory, session.BackendSQLite}
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			sessions, err := session.Open(backend)
			require.NoError(t, err)
			t.Cleanup(func() { sessions.Close() })

			f := newFixture(t)
			f.bot = New(f.transport, sessions)

			f.handle(t, f.photo(1, "src", "g1", "concat"))
			f.handle(t, f.photo(2, "other", "g1", "concat vertical"))
			f.handle(t, f.photo(3, "other", "g1"))

			got := f.transport.Replies()
			require.Len(t, got, 1, "reported once, later album photos are dropped")
			assert.Equal(t, int64(2), got[0].ReplyTo)
			assert.Equal(t, errorText(render(replies.Photo, string(ir.ProblemTooManyMultiImage), "concat\nconcat")), got[0].Text)
			assert.Empty(t, f.transport.Fetches())
		})
	}
}

func TestHandleMessage_AlbumCaptionsMixMultiImageEffects(t *testing.T) {
	f := newFixture(t)

	f.handle(t, f.photo(1, "src", "g1", "concat"))
	f.handle(t, f.photo(2, "other", "g1", "Multiply, rotate"))

	got := f.transport.Replies()
	require.Len(t, got, 1)
	assert.Equal(t, errorText(render(replies.Photo, string(ir.ProblemTooManyMultiImage), "concat\nmultiply")), got[0].Text)
}

func TestHandleMessage_AlbumPartnerWithOwnCaption(t *testing.T) {
	f := newFixture(t)

	f.handle(t, f.photo(1, "src", "g1", "concat"))
	f.handle(t, f.photo(2, "other", "g1", "grayscale"))
	f.handle(t, f.photo(3, "other", "g1"))

	got := f.transport.Replies()
	require.Len(t, got, 3)

	assert.Equal(t, int64(1), got[0].ReplyTo)
	assert.Equal(t, errorText(render(replies.Photo, string(ir.ProblemMissingSecondImage), "concat")), got[0].Text)

	assert.Equal(t, int64(2), got[1].ReplyTo)
	assert.Equal(t, testutil.ReplyPhoto, got[2].Kind)
	assert.Equal(t, int64(2), got[2].ReplyTo)
	assert.True(t, imaging.Grayscale(f.other).Equal(got[2].Image))
	assert.Equal(t, []string{"other"}, f.transport.Fetches())
}

func TestHandleMessage_AlbumPartnerWithRejectedCaption(t *testing.T) {
	f := newFixture(t)

	f.handle(t, f.photo(1, "src", "g1", "concat"))
	f.handle(t, f.photo(2, "other", "g1", "blurr"))

	got := f.transport.Replies()
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ReplyTo)
	assert.Equal(t, errorText(render(replies.Photo, string(ir.ProblemMissingSecondImage), "concat")), got[0].Text)
	assert.Equal(t, int64(2), got[1].ReplyTo)
	assert.Equal(t, errorText("Effect *blurr* was not found\\.\nDid you mean *blur*?"), got[1].Text)
}

func TestHandleMessage_AlbumRedeliveryWithLowerID(t *testing.T) {
	f := newFixture(t)

	f.handle(t, f.photo(10, "src", "g1", "concat"))
	f.handle(t, f.photo(11, "other", "g1"))
	require.Len(t, f.transport.Replies(), 2)

	f.handle(t, f.photo(9, "other", "g1"))
	f.handle(t, f.photo(9, "src", "g1", "concat"))
	assert.Len(t, f.transport.Replies(), 2)
	assert.Len(t, f.transport.Fetches(), 2)
}

func TestHandleMessage_SessionSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.handle(t, f.photo(1, "src", "g1", "concat"))
	first, ok, err := f.sessions.Get(ctx, sender)
	require.NoError(t, err)
	require.True(t, ok)

	f.handle(t, f.photo(2, "other", "g1", "concat"))
	marker, ok, err := f.sessions.Get(ctx, sender)
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, marker.Consumed)
	assert.Equal(t, int64(2), marker.MessageID)
	assert.Greater(t, marker.Seq, first.Seq)
}

func TestHandleMessage_SessionTimeout(t *testing.T) {
	f := newFixture(t)

	f.handle(t, f.photo(1, "src", "g1", "multiply"))
	f.clock.Advance(31 * time.Second)
	f.handle(t, f.photo(2, "other", "g1"))

	got := f.transport.Replies()
	require.Len(t, got, 1)
	assert.Equal(t, errorText(render(replies.Photo, string(ir.ProblemNoCaption))), got[0].Text)

	n, err := f.sessions.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandleMessage_OtherSenderCannotPair(t *testing.T) {
	f := newFixture(t)

	f.handle(t, f.photo(1, "src", "g1", "concat"))
	stranger := f.photo(2, "other", "g1")
	stranger.SenderID = sender + 1
	f.handle(t, stranger)

	got := f.transport.Replies()
	require.Len(t, got, 1)
	assert.Equal(t, errorText(render(replies.Photo, string(ir.ProblemNoCaption))), got[0].Text)
}

func TestHandleMessage_Document(t *testing.T) {
	f := newFixture(t)
	f.handle(t, ir.Inbound{SenderID: sender, ChatID: chat, MessageID: 1, Date: f.clock.Tick(), Document: true})

	got := f.transport.Replies()
	require.Len(t, got, 1)
	assert.Equal(t, errorText(render(replies.Photo, replies.KeyDocument)), got[0].Text)
}

func TestHandleMessage_Help(t *testing.T) {
	s := replies.Default()
	tests := []struct {
		text string
		want string
	}{
		{"help", s.Help("")},
		{"  HELP  ", s.Help("")},
		{"help salt-n-pepper", s.Help("salt_n_pepper")},
		{"help sharpen", s.Help("sharpen")},
		{"help blurr", s.Help("blurr") + "\n" + s.Render(replies.Photo, replies.KeyDidYouMean, "blur")},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			f := newFixture(t)
			f.handle(t, f.text(1, tt.text))

			got := f.transport.Replies()
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Text)
		})
	}
}

func TestHandleMessage_Text(t *testing.T) {
	f := newFixture(t)
	f.handle(t, f.text(1, "hi"))
	f.handle(t, f.text(2, "what?"))

	got := f.transport.Replies()
	require.Len(t, got, 2)
	assert.Equal(t, replies.Default().Text("hi"), got[0].Text)
	assert.Equal(t, replies.Default().Text(""), got[1].Text)
}

func TestHandleMessage_FetchFailure(t *testing.T) {
	f := newFixture(t)
	f.transport.FailFetch = errors.New("telegram down")

	err := f.bot.HandleMessage(context.Background(), f.photo(1, "src", "", "grayscale"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram down")

	got := f.transport.Replies()
	require.Len(t, got, 2)
	assert.Equal(t, errorText(render(replies.Photo, replies.KeyProcessingFailed)), got[1].Text)
}

func TestHandleMessage_ShapeDefect(t *testing.T) {
	f := newFixture(t)
	f.transport.AddImage("broken", &imaging.Buffer{})

	err := f.bot.HandleMessage(context.Background(), f.photo(1, "broken", "", "grayscale"))
	require.Error(t, err)

	var shape *imaging.ShapeError
	require.True(t, errors.As(err, &shape))
	assert.False(t, shape.Empty)

	got := f.transport.Replies()
	require.Len(t, got, 2)
	assert.Equal(t, errorText(render(replies.Photo, replies.KeyProcessingFailed)), got[1].Text)
}

func TestHandleMessage_SQLiteSessions(t *testing.T) {
	sessions, err := session.Open(session.BackendSQLite)
	require.NoError(t, err)
	t.Cleanup(func() { sessions.Close() })

	f := newFixture(t)
	f.bot = New(f.transport, sessions)

	f.handle(t, f.photo(1, "src", "g1", "multiply"))
	f.handle(t, f.photo(2, "other", "g1"))
	f.handle(t, f.photo(2, "other", "g1"))

	got := f.transport.Replies()
	require.Len(t, got, 2)
	assert.Equal(t, testutil.ReplyPhoto, got[1].Kind)
	assert.Equal(t, 4, got[1].Image.Width())
}
