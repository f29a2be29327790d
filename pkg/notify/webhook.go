// Package notify delivers a finished report to a chat-style webhook.
package notify

import (
	"context"
	"time"

	cblog "github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds the single delivery attempt.
const DefaultTimeout = 3 * time.Second

// Result is the outcome of a delivery. Send never returns an error; callers
// may inspect or discard the Result.
type Result int

const (
	Skipped Result = iota
	Delivered
	Failed
)

func (r Result) String() string {
	switch r {
	case Skipped:
		return "skipped"
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Payload is the webhook request body.
type Payload struct {
	Content string `json:"content"`
}

// Envelope wraps text in a fenced code block.
func Envelope(text string) Payload {
	return Payload{Content: "```json\n" + text + "\n```"}
}

// Webhook posts reports to a single endpoint.
type Webhook struct {
	url    string
	client *resty.Client
	logger *cblog.Logger
}

// NewWebhook creates a Webhook. An empty url yields a Webhook whose Send
// always returns Skipped.
func NewWebhook(url string, timeout time.Duration, logger *cblog.Logger) *Webhook {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = cblog.Default()
	}
	return &Webhook{
		url:    url,
		client: resty.New().SetTimeout(timeout).SetLogger(quietLogger{logger}),
		logger: logger,
	}
}

// Enabled reports whether an endpoint is configured.
func (w *Webhook) Enabled() bool {
	return w != nil && w.url != ""
}

// Send makes one POST attempt with no retry. Failures are logged at debug
// level and reported only through the Result.
func (w *Webhook) Send(ctx context.Context, text string) Result {
	if !w.Enabled() {
		return Skipped
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(Envelope(text)).
		Post(w.url)
	if err != nil {
		w.logger.Debugf("webhook delivery failed: %s", err)
		return Failed
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		w.logger.Debugf("webhook delivery failed: http status %d", resp.StatusCode())
		return Failed
	}
	return Delivered
}

type quietLogger struct {
	l *cblog.Logger
}

func (q quietLogger) Errorf(format string, v ...interface{}) { q.l.Debugf(format, v...) }
func (q quietLogger) Warnf(format string, v ...interface{})  { q.l.Debugf(format, v...) }
func (q quietLogger) Debugf(format string, v ...interface{}) { q.l.Debugf(format, v...) }
