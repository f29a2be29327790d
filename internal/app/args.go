package app

import "time"

type arguments struct {
	ConfigFile     string        `arg:"-c,--config-file,env:NETREPORT_CONFIG" help:"Path to config file (built-in defaults when empty)"`
	WebhookURL     string        `arg:"-w,--webhook-url,env:NETREPORT_WEBHOOK_URL" help:"Webhook endpoint to post the report to (disabled when empty)"`
	Interval       time.Duration `arg:"-i,--interval,env:NETREPORT_INTERVAL" help:"Repeat the report at this interval until interrupted (e.g. 10m). Runs once when zero"`
	NotifyOnChange bool          `arg:"--notify-on-change" help:"In watch mode, only post to the webhook when the report changed"`
	LogLevel       string        `arg:"-l,--log-level,env:NETREPORT_LOG_LEVEL" help:"Log level (debug, info, warn, error, fatal)" default:"info"`

	// Zero keeps the value from the config file.
	MaxAttempts    int           `arg:"--max-attempts,env:NETREPORT_MAX_ATTEMPTS" help:"Attempts per lookup before giving up"`
	RequestTimeout time.Duration `arg:"--request-timeout,env:NETREPORT_REQUEST_TIMEOUT" help:"Timeout for a single lookup request (e.g. 5s)"`
	InitialDelay   time.Duration `arg:"--initial-delay,env:NETREPORT_INITIAL_DELAY" help:"Delay before the first retry; doubles after each attempt"`
	WebhookTimeout time.Duration `arg:"--webhook-timeout,env:NETREPORT_WEBHOOK_TIMEOUT" help:"Timeout for the webhook POST"`
}

var args arguments

func (arguments) Version() string {
	return "netreport " + version
}
