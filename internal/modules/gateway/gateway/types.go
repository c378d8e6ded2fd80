package gateway

import (
	"sync"
	"time"

	"github.com/voxroom/core/internal/middleware"
	"github.com/voxroom/core/internal/modules/gift"
	"github.com/voxroom/core/internal/modules/message"
	"github.com/voxroom/core/internal/modules/presence"
	pkgredis "github.com/voxroom/core/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

const (
	namespaceRoom = "/room"

	// One pub/sub channel per concern; sibling instances deliver received
	// envelopes locally and never re-publish them.
	chanMessages = "vox:gateway:messages"
	chanGifts    = "vox:gateway:gifts"
	chanPresence = "vox:gateway:presence"
	chanPrivate  = "vox:gateway:private-messages"

	redisKeyPeakOnline = "vox:peak_online"

	// reapBatchLimit bounds reaper work per tick so the sweep never stalls
	// the gateway.
	reapBatchLimit = 256
)

// Inbound operation names.
const (
	opJoinRoom         = "join_room"
	opLeaveRoom        = "leave_room"
	opSendMessage      = "send_message"
	opSendPrivate      = "send_private_message"
	opTypingStart      = "typing_start"
	opTypingStop       = "typing_stop"
	opHeartbeat        = "heartbeat"
	opMessageDelivered = "message_delivered"
	opMessageRead      = "message_read"
	opSendGift         = "send_gift"
)

// Message is the envelope used by hub broadcasts and Redis fan-out. Either
// Room or UserID is set, never both.
type Message struct {
	Event   string      `json:"event"`
	Room    string      `json:"room,omitempty"`
	UserID  string      `json:"userId,omitempty"`
	Payload interface{} `json:"payload"`
}

// gatewayPayload is the wire format emitted to sockets.
type gatewayPayload struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// opResult is the ack envelope for every inbound operation.
type opResult struct {
	Success    bool        `json:"success"`
	Error      string      `json:"error,omitempty"`
	Message    string      `json:"message,omitempty"`
	RetryAfter float64     `json:"retryAfter,omitempty"` // seconds
	Data       interface{} `json:"data,omitempty"`
}

// VerifyFunc resolves a bearer credential into a verified identity.
type VerifyFunc func(token string) (*middleware.Identity, error)

// Hub owns the realtime gateway: socket lifecycle, local fan-out and
// cross-instance pub/sub. It is the concrete realtime.Broadcaster handed to
// the domain services.
type Hub struct {
	registry *Registry
	limiter  *Limiter

	broadcast chan Message

	socketsMu sync.RWMutex
	sockets   map[string]*socketio.Socket

	rc     *pkgredis.Client
	logger *zap.Logger
	sio    *socketio.Server
	verify VerifyFunc

	presence *presence.Service
	messages *message.Service
	gifts    *gift.Service

	heartbeatTimeout time.Duration
}
