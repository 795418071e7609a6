// Package chat is the line-oriented chat transport. A client connects
// to the websocket, then sends plain text lines of the form
//
//	command arg arg ...
//
// and receives the same response envelopes as the REST transport,
// adapted to the medium: video arrives as a base64 frame. Identity is
// resolved once per connection from the token query parameter.
package chat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dam2452/ranchbot/internal/auth"
	"github.com/dam2452/ranchbot/internal/bot"
	"github.com/dam2452/ranchbot/pkg/types"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4 * 1024
)

// IdentityResolver matches the REST transport's port.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (types.UserIdentity, error)
}

// Handler upgrades connections and relays chat commands to the
// dispatcher.
type Handler struct {
	dispatcher  *bot.Dispatcher
	identities  IdentityResolver
	authLimiter *auth.Limiter
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

// NewHandler creates the chat websocket handler.
func NewHandler(dispatcher *bot.Dispatcher, identities IdentityResolver,
	authLimiter *auth.Limiter, logger *slog.Logger) *Handler {
	return &Handler{
		dispatcher:  dispatcher,
		identities:  identities,
		authLimiter: authLimiter,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// frame is one message to the client.
type frame struct {
	Type     string      `json:"type"`
	Content  string      `json:"content,omitempty"`
	Payload  interface{} `json:"payload,omitempty"`
	Video    string      `json:"video_base64,omitempty"`
	Filename string      `json:"filename,omitempty"`
	Detail   string      `json:"detail,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	identity, err := h.identities.Resolve(r.Context(), token)
	if err != nil {
		if limitErr := h.authLimiter.AllowID(token); limitErr != nil {
			http.Error(w, limitErr.Error(), types.KindOf(limitErr).HTTPStatus())
			return
		}
		http.Error(w, err.Error(), types.KindOf(err).HTTPStatus())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMessageSize)
	h.logger.Info("chat connected", "user", identity.UserID)

	h.readLoop(r.Context(), conn, identity)

	h.logger.Info("chat disconnected", "user", identity.UserID)
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, identity types.UserIdentity) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("chat read error", "user", identity.UserID, "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		line := strings.TrimSpace(string(data))
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		command, args := fields[0], fields[1:]

		resp, err := h.dispatcher.Dispatch(ctx, identity, command, args)
		if err != nil {
			h.write(conn, frame{Type: "error", Detail: err.Error()})
			continue
		}
		h.write(conn, toFrame(resp))
	}
}

func (h *Handler) write(conn *websocket.Conn, f frame) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	payload, err := json.Marshal(f)
	if err != nil {
		h.logger.Error("failed to encode chat frame", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.logger.Warn("chat write failed", "error", err)
	}
}

func toFrame(resp bot.Response) frame {
	switch resp.Type {
	case bot.ResponseVideo:
		return frame{
			Type:     "video",
			Video:    base64.StdEncoding.EncodeToString(resp.Video),
			Filename: resp.Filename,
		}
	case bot.ResponseJSON:
		return frame{Type: "json", Payload: resp.Payload}
	default:
		return frame{Type: string(resp.Type), Content: resp.Content}
	}
}
