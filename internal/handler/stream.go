package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/petmatch/petmatch/internal/apperror"
	"github.com/petmatch/petmatch/internal/model"
	"github.com/petmatch/petmatch/internal/notify"
	"github.com/petmatch/petmatch/internal/repository"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// clients only send pongs and close frames
	maxInbound = 512
)

// StreamEvent is one frame on the notification stream.
type StreamEvent struct {
	Type         string             `json:"type"`
	Notification model.Notification `json:"notification"`
}

// StreamHandler pushes a user's notifications over a websocket as they are
// created. It complements polling GET /api/auth/user/{id}; nothing is
// replayed, so a client that connects late reads the backlog there.
type StreamHandler struct {
	hub      *notify.Hub
	users    repository.UserRepository
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewStreamHandler creates a StreamHandler. allowOrigin decides which
// browser origins may connect; nil keeps the same-origin default.
func NewStreamHandler(
	hub *notify.Hub,
	users repository.UserRepository,
	allowOrigin func(r *http.Request) bool,
	logger *slog.Logger,
) *StreamHandler {
	return &StreamHandler{
		hub:   hub,
		users: users,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     allowOrigin,
		},
		logger: logger,
	}
}

// HandleStream upgrades to a websocket and forwards notifications until
// either side goes away.
//
// HTTP: GET /api/notifications/stream/{userId}
// Frames: {"type": "notification", "notification": {...}}
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if err := checkCaller(r, userID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if _, err := h.users.GetUserByID(r.Context(), userID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	sub, err := h.hub.Subscribe(userID)
	if err != nil {
		writeError(w, r, h.logger, apperror.Transient("subscribing to notifications", err))
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client
		h.logger.Warn("websocket upgrade failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	defer conn.Close()

	h.logger.Info("notification stream opened",
		slog.String("userID", userID),
		slog.String("subscriptionID", sub.ID.String()),
	)

	done := make(chan struct{})
	go readPump(conn, done)
	writePump(conn, sub, done)

	h.logger.Info("notification stream closed", slog.String("userID", userID))
}

// readPump discards what the client sends and keeps the read deadline
// moving on pongs. done is closed once the connection is unusable.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxInbound)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, sub *notify.Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub shut down
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteJSON(StreamEvent{Type: "notification", Notification: n}); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
