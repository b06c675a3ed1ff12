// Package telemetry wires Sentry error reporting. Enhanced errors built with
// the errors package are forwarded once Init has run.
package telemetry

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/diana-archive/gazetteer/internal/buildinfo"
	"github.com/diana-archive/gazetteer/internal/conf"
	"github.com/diana-archive/gazetteer/internal/errors"
	"github.com/diana-archive/gazetteer/internal/logger"
	"github.com/diana-archive/gazetteer/internal/privacy"
)

var initialized atomic.Bool

// Init configures the Sentry SDK and installs the reporter of the errors
// package. It is a no-op when Sentry is disabled.
func Init(settings *conf.SentrySettings, info *buildinfo.Context) error {
	if settings == nil || !settings.Enabled {
		return nil
	}
	if settings.DSN == "" {
		return errors.Newf("sentry enabled but no DSN configured").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("setting", "telemetry.sentry.dsn").
			Build()
	}

	env := settings.Environment
	if env == "" {
		env = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:        settings.DSN,
		SampleRate: 1.0,

		AttachStacktrace: false,
		Environment:      env,
		ServerName:       "", // prevents hostname leakage
		Release:          fmt.Sprintf("gazetteer@%s", info.Version()),

		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetContext("application", map[string]any{
			"name":    "gazetteer",
			"version": info.Version(),
			"commit":  info.Commit(),
		})
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized.Store(true)

	logger.Global().Module("telemetry").Info("sentry error reporting enabled",
		logger.String("environment", env),
		logger.String("release", info.Version()))
	return nil
}

// applyPrivacyFilters strips user, host and runtime details from an event
// and scrubs credentials from its messages.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	if event.Request != nil {
		event.Request.Cookies = ""
		event.Request.Headers = nil
		event.Request.QueryString = ""
	}

	return event
}

// Flush waits up to timeout for buffered events to be sent.
func Flush(timeout time.Duration) {
	if !initialized.Load() {
		return
	}
	sentry.Flush(timeout)
}
