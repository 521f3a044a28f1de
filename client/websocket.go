package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/bazelment/agentgate/protocol"
)

// WSStreamer streams turns over GET /api/chat/ws.
type WSStreamer struct {
	BaseURL string
	Token   string
	Dialer  *websocket.Dialer
}

// Stream implements Streamer. Cancelling ctx closes the socket, which the
// gateway treats as a disconnect.
func (s *WSStreamer) Stream(ctx context.Context, req protocol.ChatRequest, fn func(protocol.Event)) error {
	endpoint, err := wsEndpoint(s.BaseURL)
	if err != nil {
		return err
	}
	header := http.Header{}
	if s.Token != "" {
		header.Set("Authorization", "Bearer "+s.Token)
	}
	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			defer resp.Body.Close()
			return readAPIError(resp)
		}
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(req); err != nil {
		return err
	}
	for first := true; ; first = false {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if first {
			if apiErr := rejection(payload); apiErr != nil {
				return apiErr
			}
		}
		done, err := dispatch(payload, fn)
		if err != nil || done {
			return err
		}
	}
}

// rejection decodes the error object the gateway sends before closing a
// socket whose request it refused.
func rejection(payload []byte) error {
	var probe struct {
		Type  string          `json:"type"`
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(payload, &probe) != nil || probe.Type != "" || len(probe.Error) == 0 || probe.Error[0] != '{' {
		return nil
	}
	var body apiErrorBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil
	}
	return &APIError{Status: http.StatusBadRequest, Code: body.Error.Code, Message: body.Error.Message}
}

func wsEndpoint(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("unsupported gateway URL scheme " + u.Scheme)
	}
	u.Path += "/api/chat/ws"
	return u.String(), nil
}
