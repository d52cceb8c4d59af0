package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/imageprovider"
	"github.com/tphakala/birdsound-go/internal/observability/metrics"
	"github.com/tphakala/birdsound-go/internal/pipeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var _ pipeline.Publisher = (*Publisher)(nil)

type publishedMessage struct {
	topic   string
	payload []byte
}

// mockClient records publishes instead of talking to a broker.
type mockClient struct {
	mu           sync.Mutex
	messages     []publishedMessage
	err          error
	disconnected bool
}

func (m *mockClient) Connect(context.Context) error { return nil }

func (m *mockClient) Publish(_ context.Context, topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, publishedMessage{topic: topic, payload: payload})
	return nil
}

func (m *mockClient) IsConnected() bool { return !m.disconnected }
func (m *mockClient) Disconnect()       { m.disconnected = true }

func andeanGuanResult() pipeline.Result {
	return pipeline.Result{
		RequestID:   "0b9c2f4e",
		SpeciesName: "Andean Guan_sound",
		SpeciesID:   "andean-guan",
		DisplayName: "Andean Guan",
		ClassIndex:  0,
		Confidence:  92,
	}
}

func TestNewResultDTO(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 5, 4, 6, 30, 0, 0, time.FixedZone("COT", -5*3600))

	tests := []struct {
		name             string
		illustration     *imageprovider.Illustration
		wantIllustration string
	}{
		{"without illustration", nil, ""},
		{"with illustration", &imageprovider.Illustration{Path: "/srv/images/Andean Guan_sound.jpg", FileName: "Andean Guan_sound.jpg"}, "Andean Guan_sound.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := andeanGuanResult()
			r.Illustration = tt.illustration
			dto := NewResultDTO(&r, "field-station", at)

			assert.Equal(t, "0b9c2f4e", dto.RequestID)
			assert.Equal(t, "field-station", dto.Source)
			assert.Equal(t, "2026-05-04T11:30:00Z", dto.Timestamp)
			assert.Equal(t, "Andean Guan_sound", dto.Species)
			assert.Equal(t, "andean-guan", dto.SpeciesID)
			assert.InDelta(t, 92.0, dto.Confidence, 0)
			assert.Equal(t, tt.wantIllustration, dto.Illustration)
		})
	}
}

func TestPublisherPublish(t *testing.T) {
	t.Parallel()

	mc := &mockClient{}
	p := NewPublisher(mc, "", "field-station")
	p.now = func() time.Time { return time.Date(2026, 5, 4, 11, 30, 0, 0, time.UTC) }

	require.NoError(t, p.Publish(t.Context(), andeanGuanResult()))
	require.Len(t, mc.messages, 1)
	assert.Equal(t, "birdsound/predictions", mc.messages[0].topic)

	var got map[string]any
	require.NoError(t, json.Unmarshal(mc.messages[0].payload, &got))
	assert.Equal(t, "Andean Guan_sound", got["species"])
	assert.Equal(t, "andean-guan", got["speciesId"])
	assert.InDelta(t, 92.0, got["confidence"], 0)
	assert.Equal(t, "2026-05-04T11:30:00Z", got["timestamp"])
	assert.NotContains(t, got, "illustration")

	p.Close()
	assert.True(t, mc.disconnected)
}

func TestPublisherPropagatesClientError(t *testing.T) {
	t.Parallel()

	mc := &mockClient{err: errors.NewStd("not connected")}
	p := NewPublisher(mc, "guans", "")

	err := p.Publish(t.Context(), andeanGuanResult())
	assert.EqualError(t, err, "not connected")
}

func TestNewClientRequiresBroker(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestClientOffline(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	c, err := NewClient(Config{Broker: "tcp://127.0.0.1:1883", Topic: "guans"}, m)
	require.NoError(t, err)
	assert.False(t, c.IsConnected())

	err = c.Publish(t.Context(), "guans", []byte("{}"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnect))
	assert.InDelta(t, 1, testutil.ToFloat64(m.Errors), 0)

	// disconnecting a client that never connected is a no-op
	c.Disconnect()
}

func TestClientConnectRejectsBadBroker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		broker string
	}{
		{"unparsable url", "tcp://[::1"},
		{"missing host", "tcp://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := NewClient(Config{Broker: tt.broker}, nil)
			require.NoError(t, err)

			err = c.Connect(t.Context())
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnect))
			assert.False(t, c.IsConnected())
		})
	}
}

func TestNewClientAppliesDefaults(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Broker: "tcp://127.0.0.1:1883"}, nil)
	require.NoError(t, err)

	cfg := c.(*client).config
	defaults := DefaultConfig()
	assert.Equal(t, defaults.ConnectTimeout, cfg.ConnectTimeout)
	assert.Equal(t, defaults.PublishTimeout, cfg.PublishTimeout)
	assert.Equal(t, defaults.DisconnectTimeout, cfg.DisconnectTimeout)
	assert.Equal(t, defaults.MaxReconnectInterval, cfg.MaxReconnectInterval)
}
