package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

// maxMessageChars is the Telegram limit for a single text message.
const maxMessageChars = 4096

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Alerter posts permanent job failures to a Telegram chat.
type Alerter struct {
	api    sender
	chatID int64
}

var _ ports.Alerter = (*Alerter)(nil)

// NewAlerter authenticates the bot token against the API. An empty
// apiEndpoint selects the public Telegram endpoint.
func NewAlerter(botToken string, chatID int64, apiEndpoint string) (*Alerter, error) {
	if botToken == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram alerter misconfigured")
	}
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}

	api, err := tgbotapi.NewBotAPIWithClient(botToken, apiEndpoint, &http.Client{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Alerter{api: api, chatID: chatID}, nil
}

// JobFailed sends a plain text alert describing the failed job.
func (a *Alerter) JobFailed(ctx context.Context, job domain.IngestJob, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(a.chatID, formatAlert(job, reason))
	msg.DisableWebPagePreview = true
	if _, err := a.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}
	return nil
}

func formatAlert(job domain.IngestJob, reason string) string {
	var b strings.Builder
	b.WriteString("Ingestion failed\n")
	fmt.Fprintf(&b, "URL: %s\n", job.SourceURL)
	if job.Source.Name != "" {
		fmt.Fprintf(&b, "Source: %s\n", job.Source.Name)
	}
	fmt.Fprintf(&b, "Attempts: %d/%d\n", job.AttemptCount, job.MaxAttempts)
	fmt.Fprintf(&b, "Reason: %s", reason)

	text := b.String()
	if utf8.RuneCountInString(text) > maxMessageChars {
		text = string([]rune(text)[:maxMessageChars-1]) + "…"
	}
	return text
}
