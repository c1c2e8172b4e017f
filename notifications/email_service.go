package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type BrevoService struct {
	APIKey      string
	SenderEmail string
	SenderName  string
	URL         string

	client *http.Client
	log    zerolog.Logger
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

// NewBrevoService returns nil when any credential is missing; callers
// treat a nil sender as "email disabled".
func NewBrevoService(apiKey, senderEmail, senderName, url string, logger zerolog.Logger) *BrevoService {
	if apiKey == "" || senderEmail == "" || senderName == "" {
		logger.Warn().Msg("email service not configured, missing API key, sender email or sender name")
		return nil
	}
	logger.Info().Str("sender", senderEmail).Msg("email service initialized")
	return &BrevoService{
		APIKey:      apiKey,
		SenderEmail: senderEmail,
		SenderName:  senderName,
		URL:         url,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         logger,
	}
}

func (s *BrevoService) Send(ctx context.Context, toEmail, toName, subject, htmlContent string) error {
	if toEmail == "" || !strings.Contains(toEmail, "@") {
		return fmt.Errorf("invalid recipient email: %s", toEmail)
	}

	recipientName := toName
	if recipientName == "" {
		recipientName = toEmail[:strings.Index(toEmail, "@")]
	}

	payload := brevoPayload{
		Sender:      map[string]string{"name": s.SenderName, "email": s.SenderEmail},
		To:          []map[string]string{{"email": toEmail, "name": recipientName}},
		Subject:     subject,
		HTMLContent: htmlContent,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", s.APIKey)
	req.Header.Set("content-type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusCreated {
		s.log.Warn().Int("status", resp.StatusCode).Str("body", string(respBody)).Msg("brevo API error")
		return fmt.Errorf("brevo returned status %d: %s", resp.StatusCode, string(respBody))
	}

	s.log.Debug().Str("to", toEmail).Str("subject", subject).Msg("email sent")
	return nil
}
