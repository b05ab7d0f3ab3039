package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/wardenlabs/warden/pkg/logger"
)

// subscriberBuffer is the per-subscriber outbound queue size. A subscriber
// that falls this far behind starts losing events; advisory events are safe
// to drop.
const subscriberBuffer = 16

// writeTimeout bounds a single frame write to a subscriber.
const writeTimeout = 5 * time.Second

// Hub broadcasts advisory events to connected WebSocket subscribers.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	log         zerolog.Logger
}

type subscriber struct {
	msgs chan []byte
}

// NewHub creates a new event hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		log:         logger.Component(log, "event_hub"),
	}
}

// Publish implements Publisher. The event is serialized once and queued to
// every subscriber; slow subscribers drop events rather than block the
// publishing service.
func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("type", string(event.Type)).Msg("Failed to marshal event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		select {
		case sub.msgs <- data:
		default:
			h.log.Debug().Str("type", string(event.Type)).Msg("Dropping event for slow subscriber")
		}
	}

	h.log.Debug().
		Str("type", string(event.Type)).
		Str("portfolio", event.PortfolioID).
		Int("subscribers", len(h.subscribers)).
		Msg("Event published")
}

// HandleSubscribe upgrades the request to a WebSocket connection and streams
// events until the client disconnects.
func (h *Hub) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	sub := &subscriber{msgs: make(chan []byte, subscriberBuffer)}
	h.addSubscriber(sub)
	defer h.removeSubscriber(sub)

	// No inbound data messages are expected. CloseRead keeps the read side
	// pumped so control frames are answered and a client that vanishes
	// without a close handshake cancels the context immediately, instead of
	// lingering until the next published event's write fails.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case msg := <-sub.msgs:
			if err := writeWithTimeout(ctx, conn, msg); err != nil {
				h.log.Debug().Err(err).Msg("Subscriber write failed, closing")
				return
			}
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) addSubscriber(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub] = struct{}{}
}

func (h *Hub) removeSubscriber(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, sub)
}

func writeWithTimeout(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}
