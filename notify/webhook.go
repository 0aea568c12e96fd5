package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Webhook posts messages to an incoming-webhook endpoint as JSON.
type Webhook struct {
	http    *resty.Client
	url     string
	channel string
}

// NewWebhook returns a webhook notifier. channel may be empty when the
// webhook URL already pins the destination.
func NewWebhook(url, channel string) *Webhook {
	return &Webhook{
		http:    resty.New().SetTimeout(10 * time.Second),
		url:     url,
		channel: channel,
	}
}

type webhookMessage struct {
	Text    string `json:"text"`
	Channel string `json:"channel,omitempty"`
}

type webhookFileMessage struct {
	Text     string `json:"text"`
	Channel  string `json:"channel,omitempty"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

func (w *Webhook) Post(ctx context.Context, text string) error {
	resp, err := w.http.R().
		SetContext(ctx).
		SetBody(webhookMessage{Text: text, Channel: w.channel}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("posting notification: webhook returned %s", resp.Status())
	}
	return nil
}

func (w *Webhook) PostFile(ctx context.Context, text, filename string, contents []byte) error {
	resp, err := w.http.R().
		SetContext(ctx).
		SetBody(webhookFileMessage{
			Text:     text,
			Channel:  w.channel,
			Filename: filename,
			Content:  string(contents),
		}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("posting notification file: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("posting notification file: webhook returned %s", resp.Status())
	}
	return nil
}
