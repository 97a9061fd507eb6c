package ws

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"courtportal/internal/domain"
	"courtportal/internal/messaging"
	"courtportal/internal/metrics"
	"courtportal/internal/service"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		if token := strings.TrimSpace(authHeader[len("Bearer "):]); token != "" {
			return token
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	return ""
}

// MakeHandler returns the HTTP handler for the /ws endpoint.
// Authenticates via Bearer token (Authorization header or the
// Sec-WebSocket-Protocol handshake), then dispatches frames:
//   - subscribe / unsubscribe -> join or leave a channel room
//   - message:send            -> fan a confirmed message out as message:new
//   - message:update          -> fan an edit or tombstone out as message:updated
//
// Writes arriving with no id are persisted first, so a client may send
// purely over the socket without a prior REST call.
func MakeHandler(
	hub *Hub,
	auth *service.AuthService,
	channels *service.ChannelService,
	msgSvc *service.MessageService,
	allowedOrigins []string,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr := extractToken(r)
		if tokenStr == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		ctx := r.Context()
		user, err := auth.Authenticate(ctx, tokenStr)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		hub.Register(user.ID, conn)
		metrics.WSConnections.Inc()
		defer func() {
			hub.Unregister(user.ID, conn)
			metrics.WSConnections.Dec()
			if err := auth.Logout(context.Background(), user.ID); err != nil {
				log.Printf("ws: set offline for %d: %v", user.ID, err)
			}
		}()

		for {
			var f Frame
			if err := conn.ReadJSON(&f); err != nil {
				break
			}
			switch f.Type {

			case "subscribe":
				if f.Room == "" || !canJoinRoom(ctx, channels, user, f.Room) {
					sendError(conn, "cannot subscribe to this channel")
					continue
				}
				hub.JoinRoom(f.Room, conn)

			case "unsubscribe":
				if f.Room != "" {
					hub.LeaveRoom(f.Room, conn)
				}

			case "message:send":
				if f.Message == nil {
					sendError(conn, "message:send requires a message")
					continue
				}
				stored, err := resolveOutbound(ctx, msgSvc, user, f.Message)
				if err != nil {
					log.Printf("ws: message:send from %d: %v", user.ID, err)
					sendError(conn, "failed to send message")
					continue
				}
				fanOut(ctx, hub, msgSvc, stored, "message:new")

			case "message:update":
				if f.Message == nil || f.Message.ID == "" {
					sendError(conn, "message:update requires a stored message")
					continue
				}
				stored, err := msgSvc.GetForFanOut(ctx, f.Message.ID)
				if err != nil || stored == nil {
					log.Printf("ws: message:update %s from %d: %v", f.Message.ID, user.ID, err)
					sendError(conn, "unknown message")
					continue
				}
				fanOut(ctx, hub, msgSvc, stored, "message:updated")

			default:
				log.Printf("ws: unknown frame type %q from user %d", f.Type, user.ID)
			}
		}
	}
}

// resolveOutbound turns an inbound message:send frame into the stored,
// decrypted message to fan out. Frames carrying an id are mirrors of a
// write already persisted over REST; the stored row is authoritative and
// the frame body is ignored, which also stops sender spoofing.
func resolveOutbound(ctx context.Context, msgSvc *service.MessageService, user *domain.User, m *domain.Message) (*domain.Message, error) {
	if m.ID != "" {
		stored, err := msgSvc.GetForFanOut(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, fmt.Errorf("message %s: %w", m.ID, domain.ErrNotFound)
		}
		if stored.SenderID != user.ID {
			return nil, fmt.Errorf("message %s belongs to another sender: %w", m.ID, domain.ErrPermissionDenied)
		}
		return stored, nil
	}

	sel, err := selectorForMessage(m)
	if err != nil {
		return nil, err
	}
	return msgSvc.Create(ctx, user, service.MessageCreateInput{
		Selector:      sel,
		Text:          m.Text,
		AttachmentURL: m.AttachmentURL,
	})
}

func selectorForMessage(m *domain.Message) (sel messaging.ChannelSelector, err error) {
	switch {
	case m.IsBroadcast:
		sel.Broadcast = true
	case m.GroupID != nil:
		sel.GroupID = *m.GroupID
	case m.ReceiverID != nil:
		sel.DirectWith = *m.ReceiverID
	default:
		err = fmt.Errorf("message names no channel: %w", domain.ErrInvalidInput)
	}
	return sel, err
}

func fanOut(ctx context.Context, hub *Hub, msgSvc *service.MessageService, m *domain.Message, eventType string) {
	ids, all, err := msgSvc.RecipientIDs(ctx, m)
	if err != nil {
		log.Printf("ws: resolve recipients for %s: %v", m.ID, err)
		return
	}
	hub.BroadcastChannel(m.ChannelID(), ids, all, Frame{Type: eventType, Message: m})
	metrics.EventsFannedOut.Inc()
}

// canJoinRoom verifies the room names a channel the user may read.
func canJoinRoom(ctx context.Context, channels *service.ChannelService, user *domain.User, room string) bool {
	visible, err := channels.ListChannels(ctx, user)
	if err != nil {
		log.Printf("ws: list channels for %d: %v", user.ID, err)
		return false
	}
	for _, ch := range visible {
		if ch.ID == room {
			return true
		}
	}
	return false
}

func sendError(conn *websocket.Conn, msg string) {
	_ = conn.WriteJSON(map[string]any{
		"type":    "error",
		"message": msg,
	})
}
