package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bazelment/agentgate/gateway"
	"github.com/bazelment/agentgate/protocol"
)

const (
	wsRequestTimeout = 30 * time.Second
	wsWriteTimeout   = 10 * time.Second
)

// sseSink frames payloads as server-sent events and flushes each one.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) WriteFrame(payload []byte) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errorCodeInternal, "streaming is not supported")
		return
	}

	var req protocol.ChatRequest
	if err := decodeJSONBody(http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestBytes), &req); err != nil {
		writeMappedError(w, err)
		return
	}
	turn, err := s.cfg.Gateway.Prepare(req)
	if err != nil {
		s.logger.Warn("chat request rejected", "error", err)
		writeMappedError(w, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set(turnIDHeader, turn.ID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	turn.Run(r.Context(), &sseSink{w: w, flusher: flusher})
}

// wsSink writes each payload as one text message.
type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) WriteFrame(payload []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// handleChatWS runs one turn per connection. The first client message is
// the ChatRequest; closing the socket cancels the turn.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.cfg.MaxRequestBytes)

	_ = conn.SetReadDeadline(time.Now().Add(wsRequestTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		s.logger.Debug("websocket closed before request", "error", err)
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	var req protocol.ChatRequest
	turn, err := s.prepareWS(data, &req)
	if err != nil {
		s.logger.Warn("chat request rejected", "transport", "websocket", "error", err)
		s.rejectWS(conn, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	sum := turn.Run(ctx, &wsSink{conn: conn})
	if sum.Cancelled {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
}

func (s *Server) prepareWS(data []byte, req *protocol.ChatRequest) (*gateway.Turn, error) {
	if err := decodeJSONBody(bytes.NewReader(data), req); err != nil {
		return nil, err
	}
	return s.cfg.Gateway.Prepare(*req)
}

func (s *Server) rejectWS(conn *websocket.Conn, err error) {
	_, code := mapError(err)
	payload, _ := json.Marshal(apiErrorResponse{Error: apiError{Code: code, Message: err.Error()}})
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteMessage(websocket.TextMessage, payload)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
}
