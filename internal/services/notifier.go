package services

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"event-gallery-backend/internal/messaging"
	"event-gallery-backend/internal/models"

	"github.com/rs/zerolog"
)

const (
	defaultRichPrefix       = "+55"
	defaultSMSTemplate      = "Olá! Suas fotos e vídeos do evento '{{.EventName}}' estão disponíveis. Acesse sua galeria: {{.GalleryURL}}"
	defaultWhatsAppTemplate = "🎉 Olá! Encontramos novas fotos/vídeos para você no evento '{{.EventName}}'. Veja sua galeria completa: {{.GalleryURL}}"
	whatsAppAddressPrefix   = "whatsapp:"
)

// NotifierConfig holds the channel rule, sender addresses and templates
type NotifierConfig struct {
	RichPrefix       string
	SMSFrom          string
	WhatsAppFrom     string
	GalleryBaseURL   string
	SMSTemplate      string
	WhatsAppTemplate string
}

// Message is a composed notification ready for a transport
type Message struct {
	Channel messaging.Channel
	From    string
	To      string
	Body    string
}

type templateData struct {
	EventName  string
	GalleryURL string
}

// Notifier tells participants that new media of them is available.
// Delivery is best effort: failures are logged and never returned.
type Notifier struct {
	cfg       NotifierConfig
	transport messaging.Transport
	sms       *template.Template
	whatsApp  *template.Template
	log       zerolog.Logger
}

// NewNotifier creates a notifier. A nil transport makes every
// notification go to the logger instead.
func NewNotifier(cfg NotifierConfig, transport messaging.Transport, logger zerolog.Logger) (*Notifier, error) {
	if cfg.RichPrefix == "" {
		cfg.RichPrefix = defaultRichPrefix
	}
	if cfg.SMSTemplate == "" {
		cfg.SMSTemplate = defaultSMSTemplate
	}
	if cfg.WhatsAppTemplate == "" {
		cfg.WhatsAppTemplate = defaultWhatsAppTemplate
	}
	cfg.GalleryBaseURL = strings.TrimRight(cfg.GalleryBaseURL, "/")

	sms, err := template.New("sms").Parse(cfg.SMSTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sms template: %w", err)
	}
	whatsApp, err := template.New("whatsapp").Parse(cfg.WhatsAppTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse whatsapp template: %w", err)
	}

	return &Notifier{
		cfg:       cfg,
		transport: transport,
		sms:       sms,
		whatsApp:  whatsApp,
		log:       logger,
	}, nil
}

// GalleryURL returns the public gallery link of a participant
func (n *Notifier) GalleryURL(participant models.Participant) string {
	return n.cfg.GalleryBaseURL + "/gallery/" + participant.GalleryToken
}

// Compose picks the channel for the participant's phone and renders
// the matching template
func (n *Notifier) Compose(participant models.Participant, event models.Event) (Message, error) {
	data := templateData{
		EventName:  event.Name,
		GalleryURL: n.GalleryURL(participant),
	}

	msg := Message{
		Channel: messaging.ChannelSMS,
		From:    n.cfg.SMSFrom,
		To:      participant.Phone,
	}
	tmpl := n.sms
	if strings.HasPrefix(participant.Phone, n.cfg.RichPrefix) {
		msg.Channel = messaging.ChannelWhatsApp
		msg.From = withWhatsAppPrefix(n.cfg.WhatsAppFrom)
		msg.To = withWhatsAppPrefix(participant.Phone)
		tmpl = n.whatsApp
	}

	var body strings.Builder
	if err := tmpl.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s template: %w", msg.Channel, err)
	}
	msg.Body = body.String()
	return msg, nil
}

// Notify composes and sends the new-media message for one match
func (n *Notifier) Notify(ctx context.Context, participant models.Participant, event models.Event, upload models.Upload) {
	msg, err := n.Compose(participant, event)
	if err != nil {
		n.log.Error().
			Err(err).
			Str("participant_id", participant.ID).
			Msg("Failed to compose notification")
		return
	}

	if n.transport == nil {
		n.log.Info().
			Str("channel", string(msg.Channel)).
			Str("to", msg.To).
			Str("upload_id", upload.ID).
			Str("body", msg.Body).
			Msg("Notification not sent, transport unconfigured")
		return
	}

	if err := n.transport.Send(ctx, msg.Channel, msg.From, msg.To, msg.Body); err != nil {
		n.log.Error().
			Err(err).
			Str("channel", string(msg.Channel)).
			Str("participant_id", participant.ID).
			Str("upload_id", upload.ID).
			Msg("Failed to send media notification")
		return
	}

	n.log.Info().
		Str("channel", string(msg.Channel)).
		Str("participant_id", participant.ID).
		Str("upload_id", upload.ID).
		Msg("Media notification sent")
}

func withWhatsAppPrefix(addr string) string {
	if addr == "" || strings.HasPrefix(addr, whatsAppAddressPrefix) {
		return addr
	}
	return whatsAppAddressPrefix + addr
}
