package netreport

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/0x4d31/netreport/internal/config"
	"github.com/0x4d31/netreport/pkg/fetch"
	"github.com/0x4d31/netreport/pkg/lookup"
	"github.com/0x4d31/netreport/pkg/notify"
	"github.com/0x4d31/netreport/pkg/probe"
	"github.com/0x4d31/netreport/pkg/report"
	cblog "github.com/charmbracelet/log"
)

// Options defines the configuration for creating a Service.
//
// An empty ConfigFile selects the built-in defaults. Zero-valued fields keep
// the value from the config. WebhookURL, when set, overrides the
// config file.
type Options struct {
	ConfigFile     string
	PublicIPURL    string
	LocationURL    string
	ProbeTarget    string
	MaxAttempts    int
	RequestTimeout time.Duration
	InitialDelay   time.Duration
	WebhookURL     string
	WebhookTimeout time.Duration
	Logger         *cblog.Logger

	// FetchOptions are passed to the underlying fetcher, e.g. a custom timer.
	FetchOptions []fetch.Option
}

// Service wires the probe, lookups and notifier for report runs.
type Service struct {
	Config   *config.Config
	Logger   *cblog.Logger
	Notifier *notify.Webhook
	Prober   *probe.Prober
	Resolver *lookup.Resolver
}

// NewService loads configuration and initializes the components required for a report run.
func NewService(opts Options) (*Service, error) {
	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	return NewServiceFromConfig(cfg, opts)
}

// NewServiceFromConfig initializes a Service using the provided configuration.
// The ConfigFile value from opts is ignored.
func NewServiceFromConfig(cfg *config.Config, opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = cblog.Default()
	}

	merged := *cfg
	applyOptions(&merged, opts)
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	fetcher := fetch.New(fetch.Config{
		MaxAttempts:  merged.Fetch.MaxAttempts,
		Timeout:      merged.Fetch.Timeout,
		InitialDelay: merged.Fetch.InitialDelay,
	}, logger, opts.FetchOptions...)

	resolver := lookup.New(fetcher, lookup.Config{
		PublicIPURL: merged.PublicIPURL,
		LocationURL: merged.LocationURL,
		CacheSize:   merged.Location.Size,
		CacheTTL:    merged.Location.TTL,
	}, logger)

	return &Service{
		Config:   &merged,
		Logger:   logger,
		Notifier: notify.NewWebhook(merged.Webhook.URL, merged.Webhook.Timeout, logger),
		Prober:   probe.New(merged.ProbeTarget, logger),
		Resolver: resolver,
	}, nil
}

func applyOptions(cfg *config.Config, opts Options) {
	if opts.PublicIPURL != "" {
		cfg.PublicIPURL = opts.PublicIPURL
	}
	if opts.LocationURL != "" {
		cfg.LocationURL = opts.LocationURL
	}
	if opts.ProbeTarget != "" {
		cfg.ProbeTarget = opts.ProbeTarget
	}
	if opts.MaxAttempts != 0 {
		cfg.Fetch.MaxAttempts = opts.MaxAttempts
	}
	if opts.RequestTimeout != 0 {
		cfg.Fetch.Timeout = opts.RequestTimeout
	}
	if opts.InitialDelay != 0 {
		cfg.Fetch.InitialDelay = opts.InitialDelay
	}
	if opts.WebhookURL != "" {
		cfg.Webhook.URL = opts.WebhookURL
	}
	if opts.WebhookTimeout != 0 {
		cfg.Webhook.Timeout = opts.WebhookTimeout
	}
}

// Snapshot probes the host and resolves its public identity. The location
// lookup only happens after a successful public IP lookup.
func (s *Service) Snapshot(ctx context.Context) report.Report {
	host := s.Prober.Probe()
	network := s.Resolver.Resolve(ctx)
	return report.Report{Host: host, Network: network}
}

// Report runs one snapshot inside a capture scope and returns the rendered text.
func (s *Service) Report(ctx context.Context) string {
	text, err := report.Capture(func(w io.Writer) error {
		return report.Write(w, s.Snapshot(ctx))
	})
	if err != nil {
		s.Logger.Errorf("error rendering report: %s", err)
	}
	return text
}

// Notify hands text to the webhook. The result is informational only.
func (s *Service) Notify(ctx context.Context, text string) notify.Result {
	res := s.Notifier.Send(ctx, text)
	s.Logger.Debugf("webhook notification %s", res)
	return res
}
