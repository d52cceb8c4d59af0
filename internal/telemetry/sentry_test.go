package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdsound-go/internal/conf"
	"github.com/tphakala/birdsound-go/internal/errors"
)

// mockTransport implements sentry.Transport and keeps events in memory
type mockTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

//nolint:gocritic // interface requirement
func (t *mockTransport) Configure(_ sentry.ClientOptions) {}

func (t *mockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *mockTransport) Flush(time.Duration) bool { return true }
func (t *mockTransport) FlushWithContext(context.Context) bool { return true }
func (t *mockTransport) Close() {}

func (t *mockTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

// Tests here mutate the global Sentry hub and error reporter; no t.Parallel.

func TestInitSentryDisabledIsNoop(t *testing.T) {
	settings := &conf.Settings{}
	require.NoError(t, InitSentry(settings))
	assert.Nil(t, errors.GetTelemetryReporter())
}

func TestInitSentryReportsEnhancedErrors(t *testing.T) {
	transport := &mockTransport{}
	settings := &conf.Settings{
		Main: conf.MainSettings{Name: "test"},
		Sentry: conf.SentrySettings{
			Enabled:     true,
			DSN:         "https://public@example.com/1",
			Environment: "test",
			SampleRate:  1.0,
		},
	}

	require.NoError(t, initSentry(settings, transport))
	t.Cleanup(func() {
		errors.SetTelemetryReporter(nil)
		initialized.Store(false)
	})

	reporter := errors.GetTelemetryReporter()
	require.NotNil(t, reporter)
	assert.True(t, reporter.IsEnabled())

	errors.WithKind(errors.NewStd("model file missing at /home/alice/model.tflite"), errors.KindModelUnavailable).
		Component("model").
		Build()

	events := transport.Events()
	require.Len(t, events, 1)
	event := events[0]
	assert.Equal(t, "ModelUnavailable", event.Tags["kind"])
	assert.Equal(t, "model", event.Tags["component"])
	assert.NotContains(t, event.Message, "alice")
	assert.Empty(t, event.ServerName)
}

func TestInitSentryRejectsBadDSN(t *testing.T) {
	settings := &conf.Settings{
		Sentry: conf.SentrySettings{Enabled: true, DSN: "::not a dsn::", SampleRate: 1},
	}

	err := initSentry(settings, &mockTransport{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestApplyPrivacyFilters(t *testing.T) {
	event := sentry.NewEvent()
	event.ServerName = "my-laptop"
	event.User = sentry.User{ID: "42"}
	event.Contexts["device"] = sentry.Context{"name": "x"}
	event.Extra = map[string]any{"component": "model", "path": "/home/alice"}
	event.Request = &sentry.Request{Cookies: "session=abc", QueryString: "token=1"}

	out := applyPrivacyFilters(event, nil)

	assert.Empty(t, out.ServerName)
	assert.Empty(t, out.User.ID)
	assert.NotContains(t, out.Contexts, "device")
	assert.Contains(t, out.Extra, "component")
	assert.NotContains(t, out.Extra, "path")
	assert.Empty(t, out.Request.Cookies)
	assert.Empty(t, out.Request.QueryString)
}

func TestFlushWithoutInitIsNoop(t *testing.T) {
	initialized.Store(false)
	Flush(10 * time.Millisecond)
}
