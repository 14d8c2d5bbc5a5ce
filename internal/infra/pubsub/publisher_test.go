package pubsub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	"referral/config"
	"referral/internal/domain/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLocalHTTPPublisher_PostsPushMessage(t *testing.T) {
	var received PushMessage
	var requestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get("X-Request-Id")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	publisher := NewLocalHTTPPublisher(srv.URL, discardLogger())
	event := &service.SessionEvent{
		RequestID:     "req-1",
		Type:          service.EventSessionsRevokedAll,
		PrincipalID:   "ref-7",
		PrincipalType: "referrer",
		Count:         3,
		OccurredAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	require.NoError(t, publisher.PublishSessionEvent(context.Background(), event))

	assert.Equal(t, "req-1", requestID)
	assert.Equal(t, localSubscription, received.Subscription)
	assert.Equal(t, service.EventSessionsRevokedAll, received.Message.Attributes["type"])
	assert.Equal(t, "referrer", received.Message.Attributes["principal_type"])
	assert.NotEmpty(t, received.Message.MessageID)

	raw, err := base64.StdEncoding.DecodeString(received.Message.Data)
	require.NoError(t, err)

	var decoded service.SessionEvent
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, int64(3), decoded.Count)
	assert.Equal(t, "ref-7", decoded.PrincipalID)
}

func TestLocalHTTPPublisher_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	publisher := NewLocalHTTPPublisher(srv.URL, discardLogger())
	err := publisher.PublishSessionEvent(context.Background(), &service.SessionEvent{Type: service.EventArchivedBlocked})
	assert.Error(t, err)
}

func TestNewEventPublisher(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.PubSubConfig
		wantErr bool
		noop    bool
	}{
		{name: "nil config", cfg: nil, noop: true},
		{name: "empty provider", cfg: &config.PubSubConfig{}, noop: true},
		{name: "local without endpoint", cfg: &config.PubSubConfig{Provider: ProviderLocal}, wantErr: true},
		{name: "local", cfg: &config.PubSubConfig{Provider: ProviderLocal, LocalEndpoint: "http://localhost:1"}},
		{name: "google without project", cfg: &config.PubSubConfig{Provider: ProviderGoogle, TopicID: "t"}, wantErr: true},
		{name: "unknown", cfg: &config.PubSubConfig{Provider: "kafka"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := fxtest.NewLifecycle(t)
			publisher, err := NewEventPublisher(PublisherParams{
				Lc:     lc,
				Ctx:    context.Background(),
				Config: &config.Config{PubSub: tt.cfg},
				Logger: discardLogger(),
			})
			if tt.wantErr {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			if !tt.noop {
				assert.IsType(t, &localHTTPPublisher{}, publisher)

				return
			}
			assert.IsType(t, &noopPublisher{}, publisher)
			assert.NoError(t, publisher.PublishSessionEvent(context.Background(), &service.SessionEvent{Type: service.EventStatelessIssued}))
		})
	}
}
