package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Sampath5633/Medica-Backend/internal/core/port"
	"github.com/Sampath5633/Medica-Backend/internal/infra/config"
)

// PostmarkSender sends messages through the Postmark email API.
type PostmarkSender struct {
	client *http.Client
	url    string
	token  string
	from   string
}

func NewPostmarkSender(client *http.Client, cfg config.MailSettings) (*PostmarkSender, error) {
	if cfg.PostmarkToken == "" {
		return nil, fmt.Errorf("postmark server token is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("mail sender address is required")
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultSendTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &PostmarkSender{client: client, url: cfg.PostmarkURL, token: cfg.PostmarkToken, from: cfg.From}, nil
}

type postmarkEmail struct {
	From     string
	To       string
	Subject  string
	TextBody string
}

type postmarkResponse struct {
	ErrorCode int
	Message   string
	MessageID string
}

func (s *PostmarkSender) Send(ctx context.Context, msg port.MailMessage) error {
	var body bytes.Buffer
	err := json.NewEncoder(&body).Encode(postmarkEmail{
		From:     s.from,
		To:       msg.To,
		Subject:  msg.Subject,
		TextBody: msg.Body,
	})
	if err != nil {
		return fmt.Errorf("encode postmark email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, &body)
	if err != nil {
		return fmt.Errorf("create postmark request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("postmark request: %w", err)
	}
	defer resp.Body.Close()

	var res postmarkResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return fmt.Errorf("decode postmark response (status %d): %w", resp.StatusCode, err)
	}
	if res.ErrorCode != 0 {
		return fmt.Errorf("postmark error %d: %s", res.ErrorCode, res.Message)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("postmark status %d", resp.StatusCode)
	}
	return nil
}

var _ port.Mailer = (*PostmarkSender)(nil)
