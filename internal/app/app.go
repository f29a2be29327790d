package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0x4d31/netreport/netreport"
	"github.com/0x4d31/netreport/pkg/notify"
	"github.com/alexflint/go-arg"
	cblog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const version = "1.0"

var errShutdown = errors.New("shutdown signal received")

// App contains the core components and dependencies of the application.
type App struct {
	Logger  *cblog.Logger
	Out     io.Writer
	Service *netreport.Service
}

// Run parses the command line, prints the report and exits. Lookup and
// delivery failures only show up as placeholders in the report.
func (a *App) Run() error {
	arg.MustParse(&args)

	a.Logger = cblog.NewWithOptions(os.Stderr, cblog.Options{
		Prefix:          "NETREPORT",
		ReportTimestamp: true,
		TimeFormat:      "2006/01/02 15:04:05",
	})
	if err := a.logLevel(args.LogLevel); err != nil {
		a.Logger.Fatalf("error setting log level: %s", err)
	}
	if a.Out == nil {
		a.Out = os.Stdout
	}

	var err error
	a.Service, err = netreport.NewService(serviceOptions(args, a.Logger))
	if err != nil {
		a.Logger.Fatalf("error initializing app: %s", err)
	}

	if a.Service.Notifier.Enabled() {
		a.Logger.Infof("the report will also be posted to the webhook at %s", webhookHost(a.Service.Config.Webhook.URL))
	}

	if args.Interval <= 0 {
		a.cycle(context.Background(), "", false)
		return nil
	}
	return a.watch(args.Interval, args.NotifyOnChange)
}

// serviceOptions maps command line overrides onto service options. Unset
// flags stay zero so the config file values apply.
func serviceOptions(a arguments, logger *cblog.Logger) netreport.Options {
	return netreport.Options{
		ConfigFile:     a.ConfigFile,
		WebhookURL:     a.WebhookURL,
		MaxAttempts:    a.MaxAttempts,
		RequestTimeout: a.RequestTimeout,
		InitialDelay:   a.InitialDelay,
		WebhookTimeout: a.WebhookTimeout,
		Logger:         logger,
	}
}

// watch repeats the report until SIGINT or SIGTERM.
func (a *App) watch(interval time.Duration, onChange bool) error {
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		return a.listenForShutdownSignals(ctx)
	})
	g.Go(func() error {
		return a.loop(ctx, interval, onChange)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		return err
	}
	return nil
}

func (a *App) listenForShutdownSignals(ctx context.Context) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case sig := <-sigs:
		a.Logger.Infof("received %s, shutting down", sig)
		return fmt.Errorf("%w: %s", errShutdown, sig)
	case <-ctx.Done():
		return nil
	}
}

// loop runs a cycle immediately and then once per interval until ctx is done.
func (a *App) loop(ctx context.Context, interval time.Duration, onChange bool) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := a.cycle(ctx, "", false)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			prev = a.cycle(ctx, prev, onChange)
		}
	}
}

// cycle prints one report and notifies the webhook. With onChange set, the
// webhook is skipped when the report equals prev.
func (a *App) cycle(ctx context.Context, prev string, onChange bool) string {
	runID := uuid.NewString()
	started := time.Now()
	a.Logger.Debug("starting report", "run", runID)

	text := a.Service.Report(ctx)
	if _, err := io.WriteString(a.Out, text); err != nil {
		a.Logger.Errorf("error writing report: %s", err)
	}

	res := notify.Skipped
	if !onChange || text != prev {
		res = a.Service.Notify(ctx, text)
	}
	a.Logger.Debug("report finished", "run", runID, "webhook", res, "took", time.Since(started).Round(time.Millisecond))
	return text
}

func (a *App) logLevel(level string) error {
	l, err := cblog.ParseLevel(level)
	if err != nil {
		return err
	}
	a.Logger.SetLevel(l)
	return nil
}

// webhookHost keeps tokens embedded in the webhook path out of the logs.
func webhookHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "the configured endpoint"
	}
	return u.Scheme + "://" + u.Host
}
