// Package sms delivers one-shot text messages to candidate mobiles.
package sms

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"estekhdam/internal/platform/config"
)

//go:generate mockgen -source=sms.go -destination=mocks/mocks.go -package=mocks Sender

// Sender delivers a text to a mobile number. A nil error means the gateway
// accepted the message.
type Sender interface {
	Send(ctx context.Context, mobile, text string) error
}

// New picks the HTTP gateway when configured, otherwise a LogSender.
func New(cfg config.SMSConfig, logger *slog.Logger) Sender {
	if cfg.GatewayURL == "" {
		return NewLogSender(logger)
	}
	return NewHTTPSender(cfg)
}

// HTTPSender posts form-encoded messages to an SMS gateway.
type HTTPSender struct {
	client *http.Client
	url    string
	apiKey string
	from   string
}

func NewHTTPSender(cfg config.SMSConfig) *HTTPSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSender{
		client: &http.Client{Timeout: timeout},
		url:    cfg.GatewayURL,
		apiKey: cfg.APIKey,
		from:   cfg.Sender,
	}
}

func (s *HTTPSender) Send(ctx context.Context, mobile, text string) error {
	form := url.Values{}
	form.Set("to", mobile)
	form.Set("text", text)
	if s.from != "" {
		form.Set("from", s.from)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// LogSender writes messages to the log instead of sending them. The text is
// not logged because it carries credentials.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, mobile, text string) error {
	s.logger.InfoContext(ctx, "sms gateway not configured, message dropped",
		"mobile", Mask(mobile),
		"length", len([]rune(text)),
	)
	return nil
}

// Mask hides all but the last four digits of a mobile number for logs.
func Mask(mobile string) string {
	r := []rune(mobile)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}

// CandidateAccountText is the credential message sent on case creation.
func CandidateAccountText(username, password, loginURL string) string {
	return "Hiring portal\n" +
		"Username: " + username + "\n" +
		"Password: " + password + "\n" +
		"Login: " + loginURL
}
