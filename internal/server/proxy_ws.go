package server

import (
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/wakegate/wakegate/internal/model"
	"github.com/wakegate/wakegate/internal/netutil"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// proxyWebSocket bridges a client WebSocket upgrade to the project's
// backend: dial the backend first so a refused connection surfaces as a
// plain 503 before the client connection is hijacked.
func (s *Server) proxyWebSocket(w http.ResponseWriter, r *http.Request, p model.TestingProject, backendPath string) {
	backendURL := url.URL{
		Scheme:   "ws",
		Host:     net.JoinHostPort(s.cfg.TestingHost, strconv.Itoa(p.Port)),
		Path:     backendPath,
		RawQuery: r.URL.RawQuery,
	}

	header := http.Header{}
	for _, proto := range websocket.Subprotocols(r) {
		header.Add("Sec-WebSocket-Protocol", proto)
	}
	header.Set("X-Forwarded-For", netutil.ClientIP(r.RemoteAddr))
	header.Set("X-Forwarded-Proto", requestScheme(r))
	header.Set("X-Project-Name", p.Name)

	backendConn, resp, err := websocket.DefaultDialer.Dial(backendURL.String(), header)
	if err != nil {
		s.logTestingAccess(r, p.Name, model.TestingProxyConnectFail)
		s.metrics.proxyRequests.WithLabelValues(p.Name, proxyOutcomeConnect).Inc()
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "backend unavailable"})
		return
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = backendConn.Close() }()

	clientConn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "project", p.Name, "err", err)
		return
	}
	defer func() { _ = clientConn.Close() }()

	s.metrics.proxyRequests.WithLabelValues(p.Name, proxyOutcomeSuccess).Inc()

	errCh := make(chan error, 2)
	go pumpWebSocket(backendConn, clientConn, errCh)
	go pumpWebSocket(clientConn, backendConn, errCh)
	<-errCh
}

func pumpWebSocket(dst, src *websocket.Conn, errCh chan<- error) {
	for {
		messageType, payload, err := src.ReadMessage()
		if err != nil {
			errCh <- err
			return
		}
		if err := dst.WriteMessage(messageType, payload); err != nil {
			errCh <- err
			return
		}
	}
}
