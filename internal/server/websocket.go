package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/sandcastle/internal/config"
	"github.com/conneroisu/sandcastle/internal/logging"
)

// writeWait bounds how long a reload write may block per client.
const writeWait = 10 * time.Second

// reloadMessage is the single message the hub ever sends.
const reloadMessage = "reload"

// ReloadHub tracks connected browsers and pushes reload notifications.
type ReloadHub struct {
	config *config.Config
	logger logging.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewReloadHub creates an empty hub.
func NewReloadHub(cfg *config.Config, logger logging.Logger) *ReloadHub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ReloadHub{
		config:  cfg,
		logger:  logger.WithComponent("reload"),
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request to a websocket and registers the client
// until it disconnects.
func (h *ReloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin already validated against the configured allowlist above.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug(r.Context(), "client connected", "total", count)

	// The browser never sends application messages; CloseRead surfaces
	// disconnects.
	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close(websocket.StatusNormalClosure, "")
}

// checkOrigin validates the request origin. Connections without an Origin
// header are rejected.
func (h *ReloadHub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return false
	}

	allowed := []string{
		r.Host,
		fmt.Sprintf("%s:%d", h.config.Server.Host, h.config.Server.Port),
		fmt.Sprintf("localhost:%d", h.config.Server.Port),
		fmt.Sprintf("127.0.0.1:%d", h.config.Server.Port),
	}
	allowed = append(allowed, h.config.Server.AllowedOrigins...)

	for _, host := range allowed {
		if originURL.Host == host {
			return true
		}
	}
	return false
}

// Broadcast sends the reload message to every connected client. Clients that
// fail the write are dropped.
func (h *ReloadHub) Broadcast(ctx context.Context) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		writeCtx, cancel := context.WithTimeout(ctx, writeWait)
		err := conn.Write(writeCtx, websocket.MessageText, []byte(reloadMessage))
		cancel()
		if err != nil {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close(websocket.StatusAbnormalClosure, "write failed")
		}
	}
}

// CloseAll disconnects every client, used during shutdown.
func (h *ReloadHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(h.clients, conn)
	}
}

// ClientCount reports how many browsers are connected.
func (h *ReloadHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
