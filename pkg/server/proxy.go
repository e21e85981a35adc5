package server

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	// Control clients are automation processes, not browsers; origin
	// checks do not apply to this endpoint.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleControl accepts the single external control connection and relays
// frames between it and the engine's own control websocket. The wire
// protocol is owned entirely by the engine; the server never inspects
// payloads.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if !s.connActive.CompareAndSwap(false, true) {
		s.log.Warnf("rejected control connection from %s: session already active", r.RemoteAddr)
		http.Error(w, "control session already active", http.StatusConflict)
		return
	}
	defer s.connActive.Store(false)

	engineConn, resp, err := websocket.DefaultDialer.DialContext(r.Context(), s.engine.ControlURL(), nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		s.log.Errorf("dialing browser engine: %v", err)
		http.Error(w, "browser engine unavailable", http.StatusBadGateway)
		return
	}
	defer engineConn.Close()

	clientConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		s.log.Errorf("upgrading control connection: %v", err)
		return
	}
	defer clientConn.Close()

	s.log.Infof("control session opened from %s", r.RemoteAddr)

	errc := make(chan error, 2)
	go relay(clientConn, engineConn, errc)
	go relay(engineConn, clientConn, errc)

	// First pump to fail ends the session; the deferred closes unblock the
	// other pump.
	err = <-errc
	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		s.log.Warnf("control session ended: %v", err)
	} else {
		s.log.Infof("control session closed")
	}
}

// relay copies websocket messages from src to dst, preserving message type,
// until either side fails.
func relay(src, dst *websocket.Conn, errc chan<- error) {
	for {
		messageType, msg, err := src.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		if err := dst.WriteMessage(messageType, msg); err != nil {
			errc <- err
			return
		}
	}
}
