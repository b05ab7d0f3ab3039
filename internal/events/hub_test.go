package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/wardenlabs/warden/pkg/logger"
)

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	hub := NewHub(log)

	// Publishing into the void must not block or panic.
	hub.Publish(Event{Type: EventRiskChanged, PortfolioID: "pf-1"})
	assert.Equal(t, 0, hub.SubscriberCount())
}

func TestHub_SubscriberReceivesEvent(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	hub := NewHub(log)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleSubscribe))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[4:], nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Wait for the subscriber to register before publishing.
	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Publish(Event{
		Type:        EventRebalanceSuggested,
		PortfolioID: "pf-1",
		UserID:      "user-1",
	})

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var received Event
	require.NoError(t, json.Unmarshal(data, &received))
	assert.Equal(t, EventRebalanceSuggested, received.Type)
	assert.Equal(t, "pf-1", received.PortfolioID)
	assert.False(t, received.Timestamp.IsZero())
}

func TestHub_VanishedSubscriberDeregistered(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	hub := NewHub(log)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleSubscribe))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[4:], nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Drop the connection without a close handshake. The hub must notice on
	// its own rather than waiting for the next published event's write to
	// fail.
	conn.CloseNow()

	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	p.Publish(Event{Type: EventRiskChanged})
}
