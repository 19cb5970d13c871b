// Package report forwards persistence and HTTP failures to Honeybadger.
// A Reporter without an API key is a no-op, so callers never need to check.
package report

import (
	"errors"
	"net/http"
	"os"

	"github.com/bassista/go_persist/internal/logger"
	honeybadger "github.com/honeybadger-io/honeybadger-go"
)

type Reporter struct {
	client *honeybadger.Client
}

// New builds a Reporter from an explicit configuration. An empty APIKey
// yields a disabled Reporter.
func New(cfg honeybadger.Configuration) *Reporter {
	if cfg.APIKey == "" {
		return &Reporter{}
	}
	return &Reporter{client: honeybadger.New(cfg)}
}

// Disabled returns a Reporter that drops every notice.
func Disabled() *Reporter { return &Reporter{} }

// FromEnv reads HONEYBADGER_API_KEY and GO_ENV.
func FromEnv() *Reporter {
	log := logger.WithComponent("report")
	apiKey := os.Getenv("HONEYBADGER_API_KEY")
	if apiKey == "" {
		log.Info("Honeybadger is not active. To enable error reporting, set the HONEYBADGER_API_KEY environment variable.")
		return &Reporter{}
	}
	log.Info("Honeybadger error reporting is enabled.")
	return New(honeybadger.Configuration{
		APIKey: apiKey,
		Env:    os.Getenv("GO_ENV"),
	})
}

func (r *Reporter) Enabled() bool {
	return r != nil && r.client != nil
}

// Notify reports err with the given tags.
func (r *Reporter) Notify(err error, tags ...string) {
	if !r.Enabled() || err == nil {
		return
	}
	r.send(err, honeybadger.Tags(tags))
}

// NotifyRequest reports an HTTP level problem together with the request.
func (r *Reporter) NotifyRequest(msg string, req *http.Request, tags ...string) {
	if !r.Enabled() {
		return
	}
	r.send(errors.New(msg), req, honeybadger.Tags(tags))
}

// NotifyPanic reports a recovered panic with its stack trace.
func (r *Reporter) NotifyPanic(msg string, req *http.Request, stack []byte) {
	if !r.Enabled() {
		return
	}
	r.send(errors.New(msg), req, honeybadger.Context{"stack": string(stack)}, honeybadger.Tags{"panic", "http"})
}

// Flush blocks until queued notices are delivered.
func (r *Reporter) Flush() {
	if r.Enabled() {
		r.client.Flush()
	}
}

func (r *Reporter) send(err error, extra ...interface{}) {
	if _, sendErr := r.client.Notify(err, extra...); sendErr != nil {
		logger.WithComponent("report").Warnf("failed to notify Honeybadger: %v", sendErr)
	}
}
