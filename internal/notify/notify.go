/*
Package notify delivers news items to a Discord webhook, optionally mirrors
them by email, and prints the per-run report.
*/
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shanehull/cs2news/internal/logger"
	"github.com/shanehull/cs2news/internal/types"
)

const (
	// MaxDescription is the longest embed description we send, in runes.
	MaxDescription = 1024

	deliveryTimeout = 20 * time.Second
	maxErrorBody    = 4 << 10

	noSummary = "No summary available."
)

// Notifier delivers one item.
type Notifier interface {
	Deliver(ctx context.Context, item types.Item) error
}

// Condenser shortens a summary that would not fit the embed.
type Condenser interface {
	Condense(ctx context.Context, item types.Item, limit int) (string, error)
}

// DeliveryError is a non-2xx answer from the webhook.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook returned status %d: %s", e.StatusCode, e.Body)
}

// Payload is the Discord webhook execute body.
type Payload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []Embed `json:"embeds"`
}

type Embed struct {
	Title       string       `json:"title"`
	URL         string       `json:"url,omitempty"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

// Webhook posts items to a Discord webhook URL. The URL carries the secret
// and is never logged.
type Webhook struct {
	url       string
	username  string
	client    *http.Client
	condenser Condenser
	log       logger.Logger
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) { w.client = c }
}

// WithUsername overrides the webhook's display name.
func WithUsername(name string) WebhookOption {
	return func(w *Webhook) { w.username = name }
}

// WithCondenser enables condensing of summaries that would be truncated.
func WithCondenser(c Condenser) WebhookOption {
	return func(w *Webhook) { w.condenser = c }
}

func NewWebhook(url string, log logger.Logger, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:    url,
		client: &http.Client{Timeout: deliveryTimeout},
		log:    log,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Deliver sends a single POST. There is no retry here.
func (w *Webhook) Deliver(ctx context.Context, item types.Item) error {
	summary := w.fitSummary(ctx, item)

	payload := BuildPayload(item, summary)
	payload.Username = w.username

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	w.log.Info("sending webhook notification",
		logger.String("title", item.Title),
		logger.String("category", string(item.Category)),
	)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", redact(err, w.url))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &DeliveryError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// fitSummary asks the condenser for a shorter summary when the embed would
// be cut. Any failure falls back to the original text.
func (w *Webhook) fitSummary(ctx context.Context, item types.Item) string {
	if w.condenser == nil {
		return item.Summary
	}

	full := Description(item, item.Summary)
	if utf8.RuneCountInString(full) <= MaxDescription {
		return item.Summary
	}

	room := MaxDescription - utf8.RuneCountInString(header(item))
	if room <= 0 {
		return item.Summary
	}

	condensed, err := w.condenser.Condense(ctx, item, room)
	if err != nil || strings.TrimSpace(condensed) == "" {
		w.log.Warn("summary condensing failed, truncating instead", logger.Error(err))
		return item.Summary
	}
	return condensed
}

// BuildPayload renders the embed for an item.
func BuildPayload(item types.Item, summary string) Payload {
	return Payload{
		Embeds: []Embed{{
			Title:       categoryLabel(item.Category),
			URL:         item.Link,
			Description: Truncate(Description(item, summary), MaxDescription),
			Color:       categoryColor(item.Category),
			Footer:      &EmbedFooter{Text: "Counter-Strike 2 • " + string(item.Category)},
		}},
	}
}

// Description is the untruncated embed body.
func Description(item types.Item, summary string) string {
	if strings.TrimSpace(summary) == "" {
		summary = noSummary
	}

	return header(item) + summary
}

func header(item types.Item) string {
	var sb strings.Builder
	if item.Date != "" {
		sb.WriteString(fmt.Sprintf("📅 %s\n\n", item.Date))
	}
	sb.WriteString(fmt.Sprintf("📝 **%s**\n\n", item.Headline()))
	return sb.String()
}

// Truncate keeps the first max runes of s.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func categoryLabel(c types.Category) string {
	switch c {
	case types.CategoryUpdate:
		return "📰 New CS2 update!"
	case types.CategoryAnnouncement:
		return "📣 New CS2 announcement!"
	}
	return "📰 New CS2 post!"
}

func categoryColor(c types.Category) int {
	if c == types.CategoryAnnouncement {
		return 0xF0A500
	}
	return 0x58A6FF
}

// redact strips the webhook URL from transport errors.
func redact(err error, secret string) error {
	if secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), secret, "[webhook]"))
}
