package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/config"
)

const mailgunAuthUser = "api"

// originMailer identifies this service in outbound message headers.
const originMailer = "feedback-service/mailgun"

// MailgunClient sends messages through the Mailgun REST API.
type MailgunClient struct {
	apiBase string
	domain  string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

type mailgunResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// NewMailgunClient constructs the transport from config.
func NewMailgunClient(cfg config.MailgunConfig, logger *zap.Logger) *MailgunClient {
	return &MailgunClient{
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		domain:  cfg.APIDomain,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// Send posts the message to Mailgun and returns the assigned message id.
func (c *MailgunClient) Send(ctx context.Context, msg Message) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	fields := map[string]string{
		"from":    msg.From,
		"to":      msg.To,
		"subject": msg.Subject,
		"text":    msg.Text,
		// h:sender keeps some MUAs from showing "on behalf of";
		// h:reply-to lets "reply all" reach the requester.
		"h:sender":          msg.From,
		"h:reply-to":        msg.ReplyTo,
		"h:X-Origin-Mailer": originMailer,
	}
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return "", err
		}
	}

	for _, att := range msg.Attachments {
		part, err := form.CreateFormFile("attachment", att.Filename)
		if err != nil {
			return "", err
		}
		if _, err := part.Write(att.Data); err != nil {
			return "", err
		}
	}

	if err := form.Close(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v3/%s/messages", c.apiBase, c.domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.SetBasicAuth(mailgunAuthUser, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mailgun request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("mailgun response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("mailgun status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed mailgunResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("mailgun response decode: %w", err)
	}

	// Mailgun wraps the message id in angle brackets.
	messageID := strings.Trim(parsed.ID, "<>")

	c.logger.Info("mailgun message accepted", zap.String("message_id", messageID))
	return messageID, nil
}
