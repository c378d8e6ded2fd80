package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/voxroom/core/internal/modules/gift"
	"github.com/voxroom/core/internal/modules/message"
	"github.com/voxroom/core/internal/modules/presence"
	"github.com/voxroom/core/internal/pkg/realtime"
	pkgredis "github.com/voxroom/core/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

// HubDeps carries the collaborators the hub wires into its socket handlers.
type HubDeps struct {
	Redis    *pkgredis.Client
	Logger   *zap.Logger
	Verify   VerifyFunc
	Presence *presence.Service
	Messages *message.Service
	Gifts    *gift.Service
	Limits   map[OpType]Limit

	HeartbeatTimeout time.Duration
}

func NewHub(deps HubDeps) *Hub {
	sio := socketio.NewServer(nil, nil)
	h := &Hub{
		registry:  NewRegistry(),
		limiter:   NewLimiter(deps.Limits),
		broadcast: make(chan Message, 256),
		sockets:   make(map[string]*socketio.Socket),
		rc:        deps.Redis,
		logger:    deps.Logger,
		sio:       sio,
		verify:    deps.Verify,
		presence:  deps.Presence,
		messages:  deps.Messages,
		gifts:     deps.Gifts,

		heartbeatTimeout: deps.HeartbeatTimeout,
	}
	h.registerNamespace()
	return h
}

// Run drains the broadcast channel and mirrors each envelope to sibling
// instances. The single loop keeps per-room delivery in publish order.
func (h *Hub) Run(ctx context.Context) {
	go h.subscribeRedis(ctx)

	for {
		select {
		case <-ctx.Done():
			h.sio.Close(nil)
			return

		case msg := <-h.broadcast:
			h.deliver(msg)
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			channel := channelFor(msg)
			if err := h.rc.Publish(ctx, channel, string(data)); err != nil && h.logger != nil {
				h.logger.Warn("gateway publish failed", zap.String("channel", channel), zap.Error(err))
			}
		}
	}
}

// channelFor routes an envelope to its concern channel.
func channelFor(msg Message) string {
	if msg.UserID != "" {
		return chanPrivate
	}
	switch msg.Event {
	case realtime.EventGift:
		return chanGifts
	case realtime.EventUserJoined, realtime.EventUserLeft, realtime.EventTyping:
		return chanPresence
	default:
		return chanMessages
	}
}

// deliver emits an envelope to the local sockets it targets. Events arrive
// wrapped as "message" frames and are also fanned out under their own event
// name for older clients that subscribe per event.
func (h *Hub) deliver(msg Message) {
	payload := gatewayPayload{Type: msg.Event, Data: msg.Payload}

	// The alias emit is skipped for the "message" event type itself, which
	// would otherwise collide with the envelope frame.
	alias := msg.Event != "message"

	var target socketio.Room
	switch {
	case msg.UserID != "":
		target = socketio.Room(userRoom(msg.UserID))
	case msg.Room != "":
		target = socketio.Room(roomRoom(msg.Room))
	default:
		h.sio.Of(namespaceRoom, nil).Emit("message", payload)
		if alias {
			h.sio.Of(namespaceRoom, nil).Emit(msg.Event, msg.Payload)
		}
		return
	}

	h.sio.Of(namespaceRoom, nil).To(target).Emit("message", payload)
	if alias {
		h.sio.Of(namespaceRoom, nil).To(target).Emit(msg.Event, msg.Payload)
	}
}

// subscribeRedis listens for broadcasts from other server instances. Locally
// originated envelopes were already delivered before publish, and received
// ones are never re-published, so nothing loops.
func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rc.Subscribe(ctx, chanMessages, chanGifts, chanPresence, chanPrivate)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case redisMsg, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(redisMsg.Payload), &msg); err != nil {
				continue
			}
			h.deliver(msg)
		}
	}
}

// PublishRoom implements realtime.Broadcaster.
func (h *Hub) PublishRoom(event realtime.RoomEvent) {
	h.broadcast <- Message{Event: event.Type, Room: event.RoomID, Payload: event}
}

// SendToUser implements realtime.Broadcaster.
func (h *Hub) SendToUser(userID, event string, data interface{}) {
	h.broadcast <- Message{Event: event, UserID: userID, Payload: data}
}

// ReapStale disconnects connections whose heartbeat went silent, leaving
// their rooms with reason "disconnect". Driven by the scheduler.
func (h *Hub) ReapStale(ctx context.Context) {
	stale := h.registry.Stale(h.heartbeatTimeout, reapBatchLimit)
	for _, connID := range stale {
		h.logger.Info("reaping stale connection", zap.String("conn", connID))
		h.teardown(ctx, connID, realtime.LeaveDisconnect)

		if sock := h.takeSocket(connID); sock != nil {
			sock.Disconnect(true)
		}
	}
}

// teardown leaves all joined rooms and deregisters the connection. Safe to
// call twice for the same id: the second call finds nothing to do.
func (h *Hub) teardown(ctx context.Context, connID, reason string) {
	conn, ok := h.registry.Get(connID)
	if !ok {
		return
	}
	identityID := conn.IdentityID

	for _, roomID := range h.registry.JoinedRooms(connID) {
		h.presence.Leave(ctx, roomID, identityID, connID, reason)
	}

	last, _, _ := h.registry.Deregister(connID)
	h.limiter.Clear(connID)

	if last {
		h.broadcast <- Message{Event: "user_offline", Payload: map[string]interface{}{
			"userId":    identityID,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		}}
	}
}

func (h *Hub) trackSocket(connID string, sock *socketio.Socket) {
	h.socketsMu.Lock()
	h.sockets[connID] = sock
	h.socketsMu.Unlock()
}

func (h *Hub) takeSocket(connID string) *socketio.Socket {
	h.socketsMu.Lock()
	defer h.socketsMu.Unlock()
	sock := h.sockets[connID]
	delete(h.sockets, connID)
	return sock
}

// updatePeakOnline records the high-water mark of concurrent connections.
func (h *Hub) updatePeakOnline(current int) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	dateKey := time.Now().Format("2006-01-02")

	peak := 0
	raw, err := h.rc.Raw().HGet(ctx, redisKeyPeakOnline, dateKey).Result()
	switch {
	case err == nil:
		if parsed, parseErr := strconv.Atoi(strings.TrimSpace(raw)); parseErr == nil {
			peak = parsed
		}
	case err == redis.Nil:
		// no-op
	default:
		if h.logger != nil {
			h.logger.Warn("gateway get peak online failed", zap.Error(err))
		}
	}

	if current > peak {
		if err := h.rc.Raw().HSet(ctx, redisKeyPeakOnline, dateKey, current).Err(); err != nil && h.logger != nil {
			h.logger.Warn("gateway set peak online failed", zap.Error(err))
		}
	}
}

// RecordPeakOnline flushes the current connection count into the daily
// high-water mark. Also called on every connect; the periodic flush catches
// long-lived peaks with no churn.
func (h *Hub) RecordPeakOnline() {
	h.updatePeakOnline(h.registry.Count())
}

// ConnectionCount returns the number of live connections on this instance.
func (h *Hub) ConnectionCount() int {
	return h.registry.Count()
}

// Handler returns the socket.io HTTP handler mounted at /socket.io.
func (h *Hub) Handler() http.Handler {
	return h.sio.ServeHandler(nil)
}

func roomRoom(roomID string) string { return "room:" + roomID }
func userRoom(userID string) string { return "user:" + userID }
