package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Channel names a delivery route for a stored notification
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelRealtime Channel = "realtime"
)

// Message is a stored notification resolved against its recipient, ready to
// be pushed out on a channel
type Message struct {
	NotificationID int64     `json:"notification_id"`
	RecipientID    int64     `json:"recipient_id"`
	RecipientName  string    `json:"-"`
	RecipientEmail string    `json:"-"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Body           string    `json:"message"`
	EntityType     string    `json:"entity_type"`
	EntityID       int64     `json:"entity_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Sender is the interface for notification senders
type Sender interface {
	Send(ctx context.Context, msg *Message) error
	Channel() Channel
	Validate(msg *Message) error
}

// EmailConfig configures the email sender
type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	// ShadowAddress, when set, receives every email instead of the real recipient.
	ShadowAddress string
}

// EmailSender sends email through SendGrid. Without an API key sending is a
// no-op, which keeps local setups quiet.
type EmailSender struct {
	cfg    EmailConfig
	client *http.Client
	url    string
}

// NewEmailSender creates an email sender
func NewEmailSender(cfg EmailConfig) *EmailSender {
	if cfg.FromEmail == "" {
		cfg.FromEmail = "noreply@citizenone.local"
	}
	if cfg.FromName == "" {
		cfg.FromName = "CitizenOne"
	}
	return &EmailSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		url:    sendGridURL,
	}
}

// Channel returns the email channel type
func (s *EmailSender) Channel() Channel {
	return ChannelEmail
}

// Validate validates email notification
func (s *EmailSender) Validate(msg *Message) error {
	if msg.RecipientEmail == "" && s.cfg.ShadowAddress == "" {
		return ErrInvalidRecipient
	}
	return nil
}

// Send sends an email. In shadow mode the recipient is replaced by the shadow
// address. Retries are handled by the caller.
func (s *EmailSender) Send(ctx context.Context, msg *Message) error {
	if err := s.Validate(msg); err != nil {
		return err
	}
	if s.cfg.SendGridAPIKey == "" {
		return nil
	}
	to := msg.RecipientEmail
	if s.cfg.ShadowAddress != "" {
		to = s.cfg.ShadowAddress
	}
	return s.sendViaSendGrid(ctx, to, msg)
}

const sendGridURL = "https://api.sendgrid.com/v3/mail/send"

func (s *EmailSender) sendViaSendGrid(ctx context.Context, to string, msg *Message) error {
	body := map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{"to": []map[string]interface{}{{"email": to, "name": msg.RecipientName}}},
		},
		"from":    map[string]string{"email": s.cfg.FromEmail, "name": s.cfg.FromName},
		"subject": msg.Title,
		"content": []map[string]string{{"type": "text/plain", "value": msg.Body}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return &NotificationError{Message: "failed to encode email", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return &NotificationError{Message: "failed to build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.SendGridAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &NotificationError{Message: "sendgrid request failed", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &NotificationError{Message: fmt.Sprintf("sendgrid status %d", resp.StatusCode)}
	}
	return nil
}

// Errors
var (
	ErrInvalidRecipient   = &NotificationError{Message: "invalid recipient"}
	ErrMaxRetriesExceeded = &NotificationError{Message: "max retries exceeded"}
)

// NotificationError represents a notification error
type NotificationError struct {
	Message string
	Err     error
}

func (e *NotificationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}
