// Package ws serves the live channel: presence announcements and real-time
// delivery of direct messages over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/ratelimit"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/metrics"
	"github.com/dmitrijs2005/gophchat/internal/server/presence"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

// Error codes carried in error frames.
const (
	CodeBadFrame    = "bad_frame"
	CodeUnknownType = "unknown_type"
	CodeForbidden   = "forbidden"
	CodeValidation  = "validation"
	CodeRateLimited = "rate_limited"
)

// Router forwards a message to the receiver's live connection.
type Router interface {
	Route(senderID, receiverID int64, content string) bool
}

type Options struct {
	AllowedOrigins []string
	SendBuffer     int
}

type Handler struct {
	gate       *auth.Gate
	registry   *presence.Registry
	router     Router
	limiter    *ratelimit.Limiter
	metrics    *metrics.Metrics
	logger     logging.Logger
	upgrader   websocket.Upgrader
	sendBuffer int
}

func NewHandler(g *auth.Gate, reg *presence.Registry, r Router, lim *ratelimit.Limiter, m *metrics.Metrics, l logging.Logger, o Options) *Handler {
	return &Handler{
		gate:       g,
		registry:   reg,
		router:     r,
		limiter:    lim,
		metrics:    m,
		logger:     l.With("module", "ws"),
		upgrader:   makeUpgrader(o.AllowedOrigins),
		sendBuffer: o.SendBuffer,
	}
}

// makeUpgrader allows every origin when the list is empty or "*". Requests
// without an Origin header come from non-browser clients and are accepted.
func makeUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0 || lo.Contains(allowedOrigins, "*")
	originSet := lo.SliceToMap(allowedOrigins, func(o string) (string, struct{}) { return o, struct{}{} })

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := originSet[origin]
			return ok
		},
	}
}

// credential prefers the Authorization header; browsers cannot set headers
// on upgrade, so the access_token query parameter is accepted too.
func credential(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		return h
	}
	return r.URL.Query().Get(common.AccessTokenHeaderName)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := h.gate.Authenticate(credential(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Warn(ctx, "upgrade failed", "user_id", id.UserID, "error", err)
		return
	}

	c := newClient(conn, h.sendBuffer, h.logger)
	if !h.registry.Attach(c) {
		c.Close()
		return
	}
	go c.writePump()

	h.logger.Info(ctx, "live connection opened", "user_id", id.UserID, "handle", c.Handle())

	h.readLoop(ctx, id, c)

	h.registry.Leave(c.Handle())
	c.Close()
	h.logger.Info(ctx, "live connection closed", "user_id", id.UserID, "handle", c.Handle())
}

type inbound struct {
	Type    presence.EventType `json:"type"`
	Payload json.RawMessage    `json:"payload"`
}

type joinPayload struct {
	UserID *int64 `json:"userId"`
}

// readLoop returns when the transport fails or the peer closes; that is the
// connection's single disconnect signal.
func (h *Handler) readLoop(ctx context.Context, id auth.Identity, c *client) {
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug(ctx, "read failed", "handle", c.Handle(), "error", err)
			}
			return
		}

		var frame inbound
		if err := json.Unmarshal(data, &frame); err != nil {
			h.reject(c, CodeBadFrame, "frame is not valid JSON")
			continue
		}

		switch frame.Type {
		case presence.EventJoin:
			h.handleJoin(ctx, id, c, frame.Payload)
		case presence.EventSend:
			h.handleSend(ctx, id, c, frame.Payload)
		default:
			h.reject(c, CodeUnknownType, "unknown frame type "+strconv.Quote(string(frame.Type)))
		}
	}
}

func (h *Handler) handleJoin(ctx context.Context, id auth.Identity, c *client, raw json.RawMessage) {
	var p joinPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			h.reject(c, CodeBadFrame, "malformed join payload")
			return
		}
	}
	if p.UserID != nil && *p.UserID != id.UserID {
		h.reject(c, CodeForbidden, "cannot join as another user")
		return
	}

	h.registry.Join(id.UserID, c)
	h.logger.Debug(ctx, "joined", "user_id", id.UserID, "handle", c.Handle())
}

func (h *Handler) handleSend(ctx context.Context, id auth.Identity, c *client, raw json.RawMessage) {
	var p presence.MessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.reject(c, CodeBadFrame, "malformed send payload")
		return
	}

	if err := checkSend(id, p); err != nil {
		code := CodeValidation
		if errors.Is(err, common.ErrForbidden) {
			code = CodeForbidden
		}
		h.reject(c, code, err.Error())
		return
	}

	if !h.limiter.Allow("user:"+strconv.FormatInt(id.UserID, 10), time.Now()) {
		h.metrics.RecordRateLimited("ws")
		h.reject(c, CodeRateLimited, "too many messages, please slow down")
		return
	}

	if !h.router.Route(p.SenderID, p.ReceiverID, p.Content) {
		h.logger.Debug(ctx, "receiver not reachable", "sender_id", p.SenderID, "receiver_id", p.ReceiverID)
	}
}

func checkSend(id auth.Identity, p presence.MessagePayload) error {
	switch {
	case p.SenderID != id.UserID:
		return fmt.Errorf("%w: senderId does not match the authenticated user", common.ErrForbidden)
	case p.ReceiverID <= 0:
		return fmt.Errorf("%w: receiverId is required", common.ErrValidation)
	case p.ReceiverID == p.SenderID:
		return fmt.Errorf("%w: cannot send a message to yourself", common.ErrValidation)
	case strings.TrimSpace(p.Content) == "":
		return fmt.Errorf("%w: content must not be empty", common.ErrValidation)
	}
	return nil
}

func (h *Handler) reject(c *client, code, msg string) {
	c.Send(presence.Event{Type: presence.EventError, Payload: presence.ErrorPayload{Code: code, Message: msg}})
}
