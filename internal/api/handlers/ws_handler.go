package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/nikhilkumar000/Intern/internal/logger"
	"github.com/nikhilkumar000/Intern/internal/realtime"
	"github.com/nikhilkumar000/Intern/internal/signaling"
)

const maxFrameBytes = 64 << 10

// WSHandler bridges websocket connections to the signaling router.
// Parties identify themselves with register-* events, not with the upgrade request.
type WSHandler struct {
	hub      *realtime.Hub
	router   *signaling.Router
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *realtime.Hub, router *signaling.Router, allowedOrigins []string, log *logrus.Logger) *WSHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &WSHandler{
		hub:    hub,
		router: router,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	allow := map[string]struct{}{}
	all := false
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			all = true
		}
		if o != "" {
			allow[o] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || all {
			return true
		}
		_, ok := allow[origin]
		return ok
	}
}

func (h *WSHandler) Serve(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote the response
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	conn := h.hub.Add(ws)
	go conn.WritePump()
	h.log.WithFields(logrus.Fields{
		"connection_id": conn.ID,
		"connections":   h.hub.Len(),
	}).Debug("live connection opened")

	conn.ReadLoop(maxFrameBytes, func(frame []byte) {
		in, err := signaling.Decode(frame)
		if err != nil {
			h.log.WithError(err).WithField("connection_id", conn.ID).Debug("ignoring frame")
			return
		}
		h.deliver(h.router.Route(conn.ID, in))
	})

	h.hub.Remove(conn)
	h.deliver(h.router.Route(conn.ID, signaling.Disconnect{}))
	h.log.WithFields(logrus.Fields{
		"connection_id": conn.ID,
		"connections":   h.hub.Len(),
	}).Debug("live connection closed")
}

func (h *WSHandler) deliver(ds []signaling.Delivery) {
	for _, d := range ds {
		frame, err := signaling.Encode(d.Event)
		if err != nil {
			h.log.WithError(err).WithField("event", d.Event.Name()).Error("encode failed")
			continue
		}
		if d.Broadcast {
			h.hub.Broadcast(frame)
			continue
		}
		h.hub.Send(d.ConnectionID, frame)
	}
}
