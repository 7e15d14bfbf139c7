package messaging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTwilioBaseURL = "https://api.twilio.com"

// Twilio sends SMS and WhatsApp messages through the Twilio REST API.
// WhatsApp addressing ("whatsapp:" prefixes) is the caller's concern.
type Twilio struct {
	accountSID string
	authToken  string
	baseURL    string
	client     *http.Client
}

// NewTwilio creates a Twilio transport. An empty baseURL uses the
// public API endpoint.
func NewTwilio(accountSID, authToken, baseURL string) *Twilio {
	if baseURL == "" {
		baseURL = defaultTwilioBaseURL
	}
	return &Twilio{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts a message resource
func (t *Twilio) Send(ctx context.Context, channel Channel, from, to, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, url.PathEscape(t.accountSID))

	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: failed to build %s request: %w", ErrTransport, channel, err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to send %s message: %w", ErrTransport, channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s message rejected with status %d: %s",
			ErrTransport, channel, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
