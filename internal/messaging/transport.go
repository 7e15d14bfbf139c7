package messaging

import (
	"context"
	"errors"
)

// Channel is the delivery channel of a message
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// ErrTransport wraps every delivery failure
var ErrTransport = errors.New("transport error")

// Transport delivers a text message to a phone address
type Transport interface {
	Send(ctx context.Context, channel Channel, from, to, body string) error
}
