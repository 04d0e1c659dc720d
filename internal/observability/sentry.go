package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry wires the error reporting sink. A missing DSN disables
// reporting without failing startup.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

// CaptureError reports an internal failure. Expected auth outcomes
// (unauthorized, rate limited, locked) are never reported here; only bugs
// and infrastructure errors belong in the sink.
func CaptureError(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}

// FlushSentry drains pending events before shutdown.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
