package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"text/template"
	"time"

	"gstmate/internal/models"
)

// Mailer delivers OTP codes to an email address. Delivery problems are the
// caller's to swallow: a code in the database is valid whether or not the
// mail went out.
type Mailer interface {
	SendOTP(ctx context.Context, recipient, purpose, code string) error
}

var otpSubjects = map[string]string{
	models.OtpPurposeIdentity:      "Verify your email address",
	models.OtpPurposeAuthorization: "Staff registration authorization request",
	models.OtpPurposePasswordReset: "Password reset code",
}

var otpBodyTemplate = template.Must(template.New("otp").Parse(
	"Your one-time code is {{.Code}}. It expires in 10 minutes.\n" +
		"If you did not request this code, you can ignore this email.\n"))

// httpMailer posts messages to an HTTP mail relay (Mailgun-style JSON API).
type httpMailer struct {
	endpoint   string
	apiKey     string
	sender     string
	httpClient *http.Client
}

// NewHTTPMailer creates a mailer that delivers through an HTTP relay.
func NewHTTPMailer(endpoint, apiKey, sender string) Mailer {
	return &httpMailer{
		endpoint: endpoint,
		apiKey:   apiKey,
		sender:   sender,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (m *httpMailer) SendOTP(ctx context.Context, recipient, purpose, code string) error {
	subject, ok := otpSubjects[purpose]
	if !ok {
		return fmt.Errorf("unknown OTP purpose: %s", purpose)
	}

	var body bytes.Buffer
	if err := otpBodyTemplate.Execute(&body, map[string]string{"Code": code}); err != nil {
		return fmt.Errorf("failed to render OTP email: %v", err)
	}

	payload, err := json.Marshal(map[string]string{
		"from":    m.sender,
		"to":      recipient,
		"subject": subject,
		"text":    body.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal mail payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create mail request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("mail relay returned status %d", resp.StatusCode)
	}

	return nil
}

// logMailer logs instead of sending. Used in development when no relay is
// configured; the code stays retrievable through the database.
type logMailer struct{}

// NewLogMailer creates a mailer that only logs outgoing messages.
func NewLogMailer() Mailer {
	return &logMailer{}
}

func (m *logMailer) SendOTP(ctx context.Context, recipient, purpose, code string) error {
	log.Printf("[EMAIL] To=%s, Purpose=%s, Code=%s", recipient, purpose, code)
	return nil
}
