// Package fetch performs HTTP GETs with bounded retries and exponential backoff.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	cblog "github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultMaxAttempts  = 3
	DefaultTimeout      = 5 * time.Second
	DefaultInitialDelay = 1 * time.Second

	userAgent = "netreport/1.0"
)

// ErrExhausted is returned once every attempt has failed.
var ErrExhausted = errors.New("all fetch attempts failed")

// Class separates expected network failures from everything else. It only
// affects diagnostics; both classes are retried the same way.
type Class string

const (
	ClassNetwork    Class = "network"
	ClassUnexpected Class = "unexpected"
)

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d from %s", e.Code, e.URL)
}

// Config holds the retry policy. Zero values fall back to the defaults.
type Config struct {
	MaxAttempts  int
	Timeout      time.Duration
	InitialDelay time.Duration
}

// Fetcher issues GET requests with retries.
type Fetcher struct {
	client *resty.Client
	config Config
	logger *cblog.Logger
	timer  backoff.Timer
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithTimer replaces the timer used to wait between attempts.
func WithTimer(t backoff.Timer) Option {
	return func(f *Fetcher) { f.timer = t }
}

// New creates a Fetcher with the given retry policy.
func New(config Config, logger *cblog.Logger, opts ...Option) *Fetcher {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.InitialDelay < 0 {
		config.InitialDelay = DefaultInitialDelay
	}
	if logger == nil {
		logger = cblog.Default()
	}

	f := &Fetcher{
		client: NewClient(config.Timeout, logger),
		config: config,
		logger: logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewClient returns a resty client with a fixed per-request timeout. Resty's
// own log output is demoted to debug level.
func NewClient(timeout time.Duration, logger *cblog.Logger) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetLogger(restyLogger{logger})
}

// Fetch returns the body of rawURL. The delay before attempt i+1 is
// InitialDelay * 2^i; there is no delay after the last attempt.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	var body string
	attempt := 0

	operation := func() error {
		attempt++
		resp, err := f.client.R().SetContext(ctx).Get(rawURL)
		if err == nil && (resp.StatusCode() < 200 || resp.StatusCode() > 299) {
			err = &StatusError{URL: rawURL, Code: resp.StatusCode()}
		}
		if err != nil {
			f.logger.Warn("fetch attempt failed",
				"attempt", fmt.Sprintf("%d/%d", attempt, f.config.MaxAttempts),
				"class", Classify(err),
				"url", rawURL,
				"err", err,
			)
			return err
		}
		body = string(resp.Body())
		return nil
	}

	notify := func(_ error, next time.Duration) {
		f.logger.Infof("retrying in %.1f seconds", next.Seconds())
	}

	err := backoff.RetryNotifyWithTimer(operation, f.schedule(ctx), notify, f.timer)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrExhausted, rawURL, err)
	}
	return body, nil
}

func (f *Fetcher) schedule(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.config.InitialDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = time.Duration(math.MaxInt64)
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(f.config.MaxAttempts-1)), ctx)
}

// Classify reports whether err is an expected connectivity failure.
func Classify(err error) Class {
	var (
		statusErr *StatusError
		urlErr    *url.Error
		netErr    net.Error
	)
	switch {
	case errors.As(err, &statusErr), errors.As(err, &urlErr), errors.As(err, &netErr):
		return ClassNetwork
	default:
		return ClassUnexpected
	}
}

type restyLogger struct {
	l *cblog.Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) { r.l.Debugf(format, v...) }
func (r restyLogger) Warnf(format string, v ...interface{})  { r.l.Debugf(format, v...) }
func (r restyLogger) Debugf(format string, v ...interface{}) { r.l.Debugf(format, v...) }
