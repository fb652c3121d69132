package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/healis/realtime-service/internal/domain/registry"
	"github.com/healis/realtime-service/internal/service"
	"golang.org/x/sync/errgroup"
)

// Handler owns the per-connection event channel: one websocket per staff
// member, authenticated at handshake, with independent read and write
// pumps.
type Handler struct {
	logger     *slog.Logger
	dispatcher service.Dispatcher
	upgrader   websocket.Upgrader
}

func NewHandler(logger *slog.Logger, dispatcher service.Dispatcher) *Handler {
	return &Handler{
		logger:     logger,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Security: adjust for production
		},
	}
}

// bearerToken pulls the credential from the Authorization header or, for
// browser clients that cannot set headers on websocket dials, the token
// query parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 1. UPGRADE TO WEBSOCKET
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	// 2. AUTH GATE. Runs before any other action is processed; a rejected
	// credential gets an explicit failure frame and the socket closes
	// without the connection ever being registered.
	conn, err := h.dispatcher.Admit(r.Context(), bearerToken(r))
	if err != nil {
		var authErr *service.AuthenticationError
		reason := "authentication failed"
		if errors.As(err, &authErr) {
			reason = authErr.Error()
		}
		_ = ws.WriteJSON(map[string]any{"eventName": "auth-error", "data": reason, "source": "system"})
		return
	}
	defer h.dispatcher.Disconnect(conn)

	h.logger.Info("ws opened",
		"conn_id", conn.GetID(),
		"user_id", conn.GetIdentity().UserID)

	// 3. PUMP PAIR. Either pump failing cancels the other; closing the
	// socket unblocks the blocked read.
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error { return h.writePump(ws, conn) })
	g.Go(func() error { return h.readPump(ws, conn) })
	g.Go(func() error {
		<-ctx.Done()
		ws.Close()
		return nil
	})
	_ = g.Wait()
}

// writePump drains the connection mailbox onto the wire. A write error is
// a per-connection transport failure: this fan-out target dies, nobody
// else is affected.
func (h *Handler) writePump(ws *websocket.Conn, conn registry.Connector) error {
	for frame := range conn.Recv() {
		data, err := json.Marshal(frame.Envelope)
		if err != nil {
			h.logger.Error("failed to marshal ws event", "error", err)
			continue
		}
		if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Warn("ws send failed", "conn_id", conn.GetID(), "error", err)
			return err
		}
	}
	return errors.New("ws: mailbox closed")
}

// readPump processes client actions in receipt order. Malformed frames
// are dropped and logged; the connection stays open.
func (h *Handler) readPump(ws *websocket.Conn, conn registry.Connector) error {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			// Transport close is the implicit disconnect action.
			return err
		}
		h.handleAction(conn, data)
	}
}
