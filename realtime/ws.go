package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/soundwave/internal"
	"github.com/coder/websocket"
)

const (
	wsDefaultSendQueueSize = 64
	wsDefaultWriteTimeout  = 5 * time.Second
	wsDefaultPingInterval  = 25 * time.Second
	wsDefaultPingTimeout   = 10 * time.Second
	wsMaxPingFailures      = 3
	wsCloseGrace           = time.Second

	// Clients never send anything but control frames.
	wsReadLimit = 512
)

// Authenticator resolves the user behind an upgrade request. A non-nil error
// rejects the upgrade with 401.
type Authenticator func(r *http.Request) (userID string, err error)

// WSConfig controls the websocket endpoint.
type WSConfig struct {
	// AllowedOrigins are full origins such as "https://app.example.com".
	// Empty allows same-host only.
	AllowedOrigins []string
	SendQueueSize  int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	PingTimeout    time.Duration
}

// WSHandler subscribes authenticated websocket connections to their user's
// channel on a Hub. The connection is receive-only.
type WSHandler struct {
	hub  *Hub
	auth Authenticator
	log  *slog.Logger

	originPatterns []string
	sendQueueSize  int
	writeTimeout   time.Duration
	pingInterval   time.Duration
	pingTimeout    time.Duration
}

// NewWSHandler constructs the handler. auth must not be nil.
func NewWSHandler(hub *Hub, auth Authenticator, cfg WSConfig, log *slog.Logger) *WSHandler {
	if log == nil {
		log = slog.Default()
	}
	h := &WSHandler{
		hub:            hub,
		auth:           auth,
		log:            log,
		originPatterns: originPatterns(cfg.AllowedOrigins),
		sendQueueSize:  cfg.SendQueueSize,
		writeTimeout:   cfg.WriteTimeout,
		pingInterval:   cfg.PingInterval,
		pingTimeout:    cfg.PingTimeout,
	}
	if h.sendQueueSize <= 0 {
		h.sendQueueSize = wsDefaultSendQueueSize
	}
	if h.writeTimeout <= 0 {
		h.writeTimeout = wsDefaultWriteTimeout
	}
	if h.pingInterval <= 0 {
		h.pingInterval = wsDefaultPingInterval
	}
	if h.pingTimeout <= 0 {
		h.pingTimeout = wsDefaultPingTimeout
	}
	return h
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth(r)
	if err != nil || userID == "" {
		h.log.Info("ws.reject.auth", "remote", r.RemoteAddr, "err", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Info("ws.accept.fail", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()
	conn.SetReadLimit(wsReadLimit)

	clientID, err := internal.NewULID(time.Now())
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "internal error")
		return
	}
	client := NewClient(clientID, userID, h.sendQueueSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.hub.Subscribe(client)
	shutdown := func(code websocket.StatusCode, reason string) {
		h.hub.Unsubscribe(client)
		_ = conn.Close(code, reason)
		cancel()
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case msg := <-client.Send:
				if err := writeMessage(ctx, conn, msg, h.writeTimeout); err != nil {
					h.log.Info("ws.write.fail", "client_id", clientID, "close_status", websocket.CloseStatus(err), "err", err)
					shutdown(websocket.StatusAbnormalClosure, "write failed")
					return
				}
			}
		}
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)

		t := time.NewTicker(h.pingInterval)
		defer t.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case <-t.C:
				pingCtx, pingCancel := context.WithTimeout(ctx, h.pingTimeout)
				err := conn.Ping(pingCtx)
				pingCancel()
				if err != nil {
					failures++
					h.log.Info("ws.ping.fail", "client_id", clientID, "failures", failures, "err", err)
					if failures >= wsMaxPingFailures {
						shutdown(websocket.StatusGoingAway, "heartbeat failed")
						return
					}
					continue
				}
				failures = 0
			}
		}
	}()

	// The read loop only exists to process control frames and notice the
	// peer going away. Data frames are ignored.
	for {
		_, _, err := conn.Read(ctx)
		if err == nil {
			continue
		}
		switch classifyReadErr(err) {
		case readErrClose, readErrCtxDone:
			shutdown(websocket.StatusNormalClosure, "bye")
		case readErrConnClosed:
			shutdown(websocket.StatusAbnormalClosure, "conn closed")
		default:
			h.log.Info("ws.read.fail", "client_id", clientID, "err", err)
			shutdown(websocket.StatusPolicyViolation, "read failed")
		}
		break
	}

	<-writerDone
	select {
	case <-heartbeatDone:
	case <-time.After(wsCloseGrace):
	}
}

func writeMessage(parent context.Context, conn *websocket.Conn, msg Message, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

type readErrKind uint8

const (
	readErrUnknown readErrKind = iota
	readErrClose
	readErrCtxDone
	readErrConnClosed
)

func classifyReadErr(err error) readErrKind {
	if websocket.CloseStatus(err) != -1 {
		return readErrClose
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return readErrCtxDone
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return readErrConnClosed
	}
	return readErrUnknown
}

// originPatterns reduces full origins to the host patterns websocket.Accept
// matches against.
func originPatterns(allowed []string) []string {
	seen := make(map[string]struct{}, len(allowed))
	out := make([]string, 0, len(allowed))
	for _, a := range allowed {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		host := a
		if u, err := url.Parse(a); err == nil && u.Host != "" {
			host = u.Host
		}
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		out = append(out, host)
	}
	return out
}
