package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/jcalder/ledgerlens/internal/events"
)

// feedEventTypes are the event types pushed to feed clients by default.
var feedEventTypes = []events.EventType{
	events.SnapshotUpdated,
	events.StatusChanged,
	events.PollFailed,
	events.CacheCleared,
	events.ErrorOccurred,
}

// FeedHandler pushes monitor events to WebSocket clients.
type FeedHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewFeedHandler creates the WebSocket event feed handler.
func NewFeedHandler(bus *events.Bus, log zerolog.Logger) *FeedHandler {
	return &FeedHandler{
		bus: bus,
		log: log.With().Str("component", "feed").Logger(),
	}
}

// ServeHTTP upgrades the connection and streams events until the client
// disconnects. A ?types=A,B query restricts the subscription.
func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The monitor runs on a LAN behind the operator's firewall; browser
		// clients connect from file:// origins during development.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "feed closed")

	var allowedTypes map[events.EventType]bool
	if typesFilter := r.URL.Query().Get("types"); typesFilter != "" {
		allowedTypes = make(map[events.EventType]bool)
		for _, t := range strings.Split(typesFilter, ",") {
			allowedTypes[events.EventType(strings.TrimSpace(t))] = true
		}
	}

	h.log.Info().Msg("Client connected to event feed")

	// Buffer to prevent blocking the emitter; drop when the client lags.
	eventChan := make(chan *events.Event, 100)
	eventHandler := func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	var subs []events.Subscription
	if allowedTypes == nil {
		for _, eventType := range feedEventTypes {
			subs = append(subs, h.bus.Subscribe(eventType, eventHandler))
		}
	} else {
		for eventType := range allowedTypes {
			subs = append(subs, h.bus.Subscribe(eventType, eventHandler))
		}
	}
	defer func() {
		for _, sub := range subs {
			h.bus.Unsubscribe(sub)
		}
	}()

	ctx := r.Context()

	if err := wsjson.Write(ctx, conn, map[string]interface{}{
		"type":    "connected",
		"message": "Connected to event feed",
	}); err != nil {
		h.log.Warn().Err(err).Msg("Failed to send feed greeting")
		return
	}

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from event feed")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-heartbeat.C:
			if err := conn.Ping(ctx); err != nil {
				h.log.Debug().Err(err).Msg("Feed heartbeat failed")
				return
			}
		case event := <-eventChan:
			if err := wsjson.Write(ctx, conn, event); err != nil {
				h.log.Debug().Err(err).Msg("Failed to write feed event")
				return
			}
		}
	}
}
