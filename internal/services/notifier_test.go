package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"event-gallery-backend/internal/messaging"
	"event-gallery-backend/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	Channel messaging.Channel
	From    string
	To      string
	Body    string
}

type fakeTransport struct {
	sent []sentMessage
	err  error
}

func (f *fakeTransport) Send(ctx context.Context, channel messaging.Channel, from, to, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{Channel: channel, From: from, To: to, Body: body})
	return nil
}

func testNotifierConfig() NotifierConfig {
	return NotifierConfig{
		SMSFrom:        "+15550001111",
		WhatsAppFrom:   "+14155238886",
		GalleryBaseURL: "https://gallery.example.com/",
	}
}

func TestComposeChoosesChannelByPrefix(t *testing.T) {
	n, err := NewNotifier(testNotifierConfig(), nil, zerolog.Nop())
	require.NoError(t, err)
	event := models.Event{Name: "Summer Fest"}

	msg, err := n.Compose(models.Participant{Phone: "+5511988887777", GalleryToken: "tok1"}, event)
	require.NoError(t, err)
	assert.Equal(t, messaging.ChannelWhatsApp, msg.Channel)
	assert.Equal(t, "whatsapp:+5511988887777", msg.To)
	assert.Equal(t, "whatsapp:+14155238886", msg.From)
	assert.Contains(t, msg.Body, "Summer Fest")
	assert.Contains(t, msg.Body, "https://gallery.example.com/gallery/tok1")

	msg, err = n.Compose(models.Participant{Phone: "+15551234567", GalleryToken: "tok2"}, event)
	require.NoError(t, err)
	assert.Equal(t, messaging.ChannelSMS, msg.Channel)
	assert.Equal(t, "+15551234567", msg.To)
	assert.Equal(t, "+15550001111", msg.From)
	assert.Contains(t, msg.Body, "https://gallery.example.com/gallery/tok2")
}

func TestComposeCustomTemplates(t *testing.T) {
	cfg := testNotifierConfig()
	cfg.RichPrefix = "+44"
	cfg.SMSTemplate = "sms {{.EventName}}"
	cfg.WhatsAppTemplate = "wa {{.GalleryURL}}"
	n, err := NewNotifier(cfg, nil, zerolog.Nop())
	require.NoError(t, err)

	msg, err := n.Compose(models.Participant{Phone: "+447700900000", GalleryToken: "t"}, models.Event{Name: "E"})
	require.NoError(t, err)
	assert.Equal(t, messaging.ChannelWhatsApp, msg.Channel)
	assert.Equal(t, "wa https://gallery.example.com/gallery/t", msg.Body)

	msg, err = n.Compose(models.Participant{Phone: "+5511988887777"}, models.Event{Name: "E"})
	require.NoError(t, err)
	assert.Equal(t, messaging.ChannelSMS, msg.Channel)
	assert.Equal(t, "sms E", msg.Body)
}

func TestNewNotifierRejectsBadTemplate(t *testing.T) {
	cfg := testNotifierConfig()
	cfg.SMSTemplate = "{{.EventName"
	_, err := NewNotifier(cfg, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestNotifyWithoutTransportLogs(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewNotifier(testNotifierConfig(), nil, zerolog.New(&buf))
	require.NoError(t, err)

	n.Notify(context.Background(),
		models.Participant{ID: "p1", Phone: "+15551234567", GalleryToken: "tok"},
		models.Event{Name: "Summer Fest"},
		models.Upload{ID: "u1"})

	out := buf.String()
	assert.Contains(t, out, "transport unconfigured")
	assert.Contains(t, out, `"channel":"sms"`)
	assert.Contains(t, out, `"upload_id":"u1"`)
	assert.Contains(t, out, "gallery/tok")
}

func TestNotifySendsThroughTransport(t *testing.T) {
	transport := &fakeTransport{}
	n, err := NewNotifier(testNotifierConfig(), transport, zerolog.Nop())
	require.NoError(t, err)

	n.Notify(context.Background(),
		models.Participant{ID: "p1", Phone: "+5511988887777", GalleryToken: "tok"},
		models.Event{Name: "Summer Fest"},
		models.Upload{ID: "u1"})

	require.Len(t, transport.sent, 1)
	assert.Equal(t, messaging.ChannelWhatsApp, transport.sent[0].Channel)
	assert.Equal(t, "whatsapp:+5511988887777", transport.sent[0].To)
}

func TestNotifySwallowsTransportFailure(t *testing.T) {
	var buf bytes.Buffer
	transport := &fakeTransport{err: errors.New("rejected")}
	n, err := NewNotifier(testNotifierConfig(), transport, zerolog.New(&buf))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		n.Notify(context.Background(),
			models.Participant{ID: "p1", Phone: "+15551234567"},
			models.Event{Name: "E"},
			models.Upload{ID: "u1"})
	})
	assert.Contains(t, buf.String(), "Failed to send media notification")
}
