package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/voxroom/core/internal/middleware"
	"github.com/voxroom/core/internal/modules/gift"
	"github.com/voxroom/core/internal/modules/message"
	"github.com/voxroom/core/internal/modules/presence"
	"github.com/voxroom/core/internal/pkg/errs"
	"github.com/voxroom/core/internal/pkg/realtime"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

// inboundFrame is the envelope form of an operation: clients may either emit
// named events directly or wrap them as {"type": ..., "payload": ...} on the
// "message" event.
type inboundFrame struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

func (h *Hub) registerNamespace() {
	nsp := h.sio.Of(namespaceRoom, nil)
	_ = nsp.On("connection", func(args ...any) {
		client, ok := args[0].(*socketio.Socket)
		if !ok {
			return
		}
		sid := string(client.Id())

		conn := NewConnection(sid)
		_ = conn.BeginAuth()

		ident, err := h.verify(extractToken(client))
		if err != nil {
			conn.State = StateClosed
			_ = client.Emit("message", gatewayPayload{Type: "AUTH_FAILED", Data: map[string]interface{}{
				"error": errs.CodeUnauthenticated,
			}})
			client.Disconnect(true)
			return
		}

		fanout, err := h.registry.Register(conn, ident)
		if err != nil {
			h.logger.Warn("gateway register failed", zap.String("conn", sid), zap.Error(err))
			client.Disconnect(true)
			return
		}
		h.trackSocket(sid, client)
		client.Join(socketio.Room(userRoom(ident.ID)))

		_ = client.Emit("message", gatewayPayload{Type: "GATEWAY_CONNECT", Data: map[string]interface{}{
			"userId":   ident.ID,
			"serverTs": time.Now().UTC().Format(time.RFC3339Nano),
		}})

		if fanout == 1 {
			h.broadcast <- Message{Event: "user_online", Payload: map[string]interface{}{
				"userId":    ident.ID,
				"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			}}
		}
		h.updatePeakOnline(h.registry.Count())

		h.bindOperations(client, sid, *ident)

		_ = client.On("disconnect", func(_ ...any) {
			h.takeSocket(sid)
			h.teardown(context.Background(), sid, realtime.LeaveDisconnect)
		})
	})
}

// bindOperations wires every inbound operation, both as named events and via
// the "message" envelope.
func (h *Hub) bindOperations(client *socketio.Socket, sid string, ident middleware.Identity) {
	ops := map[string]func(payload map[string]interface{}) opResult{
		opJoinRoom:         func(p map[string]interface{}) opResult { return h.opJoinRoom(client, sid, ident, p) },
		opLeaveRoom:        func(p map[string]interface{}) opResult { return h.opLeaveRoom(client, sid, ident, p) },
		opSendMessage:      func(p map[string]interface{}) opResult { return h.opSendMessage(sid, ident, p) },
		opSendPrivate:      func(p map[string]interface{}) opResult { return h.opSendPrivate(sid, ident, p) },
		opTypingStart:      func(p map[string]interface{}) opResult { return h.opTyping(sid, ident, p, true) },
		opTypingStop:       func(p map[string]interface{}) opResult { return h.opTyping(sid, ident, p, false) },
		opHeartbeat:        func(p map[string]interface{}) opResult { return h.opHeartbeat(sid) },
		opMessageDelivered: func(p map[string]interface{}) opResult { return h.opMessageAck(ident, p, true) },
		opMessageRead:      func(p map[string]interface{}) opResult { return h.opMessageAck(ident, p, false) },
		opSendGift:         func(p map[string]interface{}) opResult { return h.opSendGift(sid, ident, p) },
	}

	for name, handler := range ops {
		name, handler := name, handler
		_ = client.On(name, func(eventArgs ...any) {
			respond(client, name, handler(payloadFromArgs(eventArgs...)))
		})
	}

	_ = client.On("message", func(eventArgs ...any) {
		frame, ok := parseInboundFrame(eventArgs...)
		if !ok {
			return
		}
		handler, ok := ops[frame.Type]
		if !ok {
			respond(client, frame.Type, opResult{Success: false, Error: string(errs.CodeValidationFailed), Message: "unknown operation"})
			return
		}
		respond(client, frame.Type, handler(frame.Payload))
	})
}

func (h *Hub) opJoinRoom(client *socketio.Socket, sid string, ident middleware.Identity, p map[string]interface{}) opResult {
	roomID := strFromAny(p["roomId"])
	if roomID == "" {
		return validationResult("roomId is required")
	}
	if denied := h.limited(sid, OpJoin); denied != nil {
		return *denied
	}

	ctx, cancel := opContext()
	defer cancel()

	online, err := h.presence.Join(ctx, roomID, presence.Member{ID: ident.ID, Name: ident.Name}, sid)
	if err != nil {
		return resultFromErr(err)
	}
	_ = h.registry.MarkJoined(sid, roomID)
	client.Join(socketio.Room(roomRoom(roomID)))

	return opResult{Success: true, Data: map[string]interface{}{
		"roomId":  roomID,
		"online":  online,
		"members": h.presence.OnlineMembers(ctx, roomID),
	}}
}

func (h *Hub) opLeaveRoom(client *socketio.Socket, sid string, ident middleware.Identity, p map[string]interface{}) opResult {
	roomID := strFromAny(p["roomId"])
	if roomID == "" {
		return validationResult("roomId is required")
	}

	ctx, cancel := opContext()
	defer cancel()

	client.Leave(socketio.Room(roomRoom(roomID)))
	_ = h.registry.MarkLeft(sid, roomID)
	h.presence.Leave(ctx, roomID, ident.ID, sid, realtime.LeaveManual)

	return opResult{Success: true, Data: map[string]interface{}{"roomId": roomID}}
}

func (h *Hub) opSendMessage(sid string, ident middleware.Identity, p map[string]interface{}) opResult {
	dto := message.SubmitDTO{
		RoomID: strFromAny(p["roomId"]),
		Text:   strFromAny(p["text"]),
		Nonce:  strFromAny(p["nonce"]),
	}
	if dto.RoomID == "" || dto.Text == "" {
		return validationResult("roomId and text are required")
	}
	if denied := h.limited(sid, OpMessage); denied != nil {
		return *denied
	}

	ack, err := h.messages.Submit(ident.ID, ident.Name, dto)
	if err != nil {
		return resultFromErr(err)
	}
	return opResult{Success: true, Data: ack}
}

func (h *Hub) opSendPrivate(sid string, ident middleware.Identity, p map[string]interface{}) opResult {
	dto := message.SubmitPrivateDTO{
		ReceiverID: strFromAny(p["receiverId"]),
		Text:       strFromAny(p["text"]),
		Nonce:      strFromAny(p["nonce"]),
	}
	if dto.ReceiverID == "" || dto.Text == "" {
		return validationResult("receiverId and text are required")
	}
	if denied := h.limited(sid, OpMessage); denied != nil {
		return *denied
	}

	ack, err := h.messages.SubmitPrivate(ident.ID, ident.Name, dto)
	if err != nil {
		return resultFromErr(err)
	}
	return opResult{Success: true, Data: ack}
}

func (h *Hub) opTyping(sid string, ident middleware.Identity, p map[string]interface{}, typing bool) opResult {
	roomID := strFromAny(p["roomId"])
	if roomID == "" {
		return validationResult("roomId is required")
	}
	if !h.registry.InRoom(sid, roomID) {
		return resultFromErr(errs.ErrNotAMember)
	}
	if denied := h.limited(sid, OpTyping); denied != nil {
		return *denied
	}

	// Transient: typing never persists, it only fans out.
	h.PublishRoom(realtime.NewRoomEvent(realtime.EventTyping, roomID, ident.ID, ident.Name, map[string]interface{}{
		"typing": typing,
	}))
	return opResult{Success: true}
}

func (h *Hub) opHeartbeat(sid string) opResult {
	if denied := h.limited(sid, OpHeartbeat); denied != nil {
		return *denied
	}
	if err := h.registry.Touch(sid); err != nil {
		return resultFromErr(errs.ErrUnauthenticated)
	}

	ctx, cancel := opContext()
	defer cancel()
	h.presence.Refresh(ctx, h.registry.JoinedRooms(sid))

	return opResult{Success: true, Data: map[string]interface{}{
		"serverTs": time.Now().UTC().Format(time.RFC3339Nano),
	}}
}

func (h *Hub) opMessageAck(ident middleware.Identity, p map[string]interface{}, delivered bool) opResult {
	messageID := strFromAny(p["messageId"])
	if messageID == "" {
		return validationResult("messageId is required")
	}

	var err error
	if delivered {
		err = h.messages.MarkDelivered(messageID, ident.ID)
	} else {
		err = h.messages.MarkRead(messageID, ident.ID)
	}
	if err != nil {
		return resultFromErr(err)
	}
	return opResult{Success: true, Data: map[string]interface{}{"messageId": messageID}}
}

func (h *Hub) opSendGift(sid string, ident middleware.Identity, p map[string]interface{}) opResult {
	dto := gift.SendGiftDTO{
		GiftID:         strFromAny(p["giftId"]),
		ReceiverID:     strFromAny(p["receiverId"]),
		Quantity:       intFromAny(p["quantity"]),
		IdempotencyKey: strFromAny(p["idempotencyKey"]),
	}
	if roomID := strFromAny(p["roomId"]); roomID != "" {
		dto.RoomID = &roomID
	}
	if dto.GiftID == "" || dto.ReceiverID == "" || dto.IdempotencyKey == "" {
		return validationResult("giftId, receiverId and idempotencyKey are required")
	}
	if denied := h.limited(sid, OpGift); denied != nil {
		return *denied
	}

	// Settlement is detached from the socket lifetime: a disconnect mid-send
	// must not abort a transaction the client will retry with the same key.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := h.gifts.SendGift(ctx, ident.ID, dto)
	if err != nil {
		return resultFromErr(err)
	}
	return opResult{Success: true, Data: result}
}

// limited runs the rate check and returns a ready-made denial, or nil when
// the operation may proceed.
func (h *Hub) limited(sid string, op OpType) *opResult {
	allowed, retryAfter := h.limiter.Check(sid, op)
	if allowed {
		return nil
	}
	denied := resultFromErr(errs.RateLimited(retryAfter))
	return &denied
}

func respond(client *socketio.Socket, op string, result opResult) {
	event := op + "_result"
	_ = client.Emit("message", gatewayPayload{Type: event, Data: result})
	_ = client.Emit(event, result)
}

func resultFromErr(err error) opResult {
	if coded, ok := errs.As(err); ok {
		out := opResult{Success: false, Error: string(coded.Code), Message: coded.Message}
		if coded.RetryAfter > 0 {
			out.RetryAfter = coded.RetryAfter.Seconds()
		}
		return out
	}
	return opResult{Success: false, Error: string(errs.CodeStoreUnavailable), Message: "operation failed"}
}

func validationResult(msg string) opResult {
	return resultFromErr(errs.Validation(msg))
}

// opContext bounds store round trips so a stuck Redis call cannot pin a
// socket handler.
func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func extractToken(client *socketio.Socket) string {
	handshake := client.Handshake()
	if handshake == nil {
		return ""
	}
	if token := firstValueFromMultiMap(handshake.Query, "token"); token != "" {
		return token
	}
	return firstValueFromMultiMap(handshake.Headers, "authorization")
}

func firstValueFromMultiMap(values map[string][]string, key string) string {
	for k, list := range values {
		if !strings.EqualFold(strings.TrimSpace(k), key) || len(list) == 0 {
			continue
		}
		if v := strings.TrimSpace(list[0]); v != "" {
			return v
		}
	}
	return ""
}

func payloadFromArgs(args ...any) map[string]interface{} {
	if len(args) == 0 || args[0] == nil {
		return map[string]interface{}{}
	}
	return mapFromAny(args[0])
}

func parseInboundFrame(args ...any) (inboundFrame, bool) {
	if len(args) == 0 || args[0] == nil {
		return inboundFrame{}, false
	}

	var frame inboundFrame
	switch raw := args[0].(type) {
	case map[string]interface{}:
		frame.Type = strFromAny(raw["type"])
		frame.Payload = mapFromAny(raw["payload"])
	case string:
		if err := json.Unmarshal([]byte(raw), &frame); err != nil {
			return inboundFrame{}, false
		}
	case []byte:
		if err := json.Unmarshal(raw, &frame); err != nil {
			return inboundFrame{}, false
		}
	default:
		data, err := json.Marshal(raw)
		if err != nil {
			return inboundFrame{}, false
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return inboundFrame{}, false
		}
	}

	frame.Type = strings.TrimSpace(frame.Type)
	if frame.Type == "" {
		return inboundFrame{}, false
	}
	if frame.Payload == nil {
		frame.Payload = map[string]interface{}{}
	}
	return frame, true
}

func mapFromAny(v interface{}) map[string]interface{} {
	switch typed := v.(type) {
	case nil:
		return map[string]interface{}{}
	case map[string]interface{}:
		return typed
	default:
		data, err := json.Marshal(typed)
		if err != nil {
			return map[string]interface{}{}
		}
		out := map[string]interface{}{}
		if err := json.Unmarshal(data, &out); err != nil {
			return map[string]interface{}{}
		}
		return out
	}
}

func strFromAny(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func intFromAny(v interface{}) int {
	switch typed := v.(type) {
	case float64:
		return int(typed)
	case int:
		return typed
	case int64:
		return int(typed)
	case json.Number:
		n, _ := typed.Int64()
		return int(n)
	default:
		return 0
	}
}
