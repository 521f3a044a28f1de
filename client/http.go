package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bazelment/agentgate/protocol"
)

// APIError is a request the gateway rejected before starting a turn.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("gateway returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("gateway returned %d (%s): %s", e.Status, e.Code, e.Message)
}

type apiErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// HTTPStreamer streams turns from POST /api/chat.
type HTTPStreamer struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// Stream implements Streamer.
func (h *HTTPStreamer) Stream(ctx context.Context, req protocol.ChatRequest, fn func(protocol.Event)) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(h.BaseURL, "/")+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if h.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.Token)
	}

	client := h.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	return ReadEvents(resp.Body, fn)
}

// ReadEvents decodes SSE frames from r until [DONE] or EOF. Frames with an
// unknown event type are skipped.
func ReadEvents(r io.Reader, fn func(protocol.Event)) error {
	reader := newSSEReader(r)
	for {
		payload, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		done, err := dispatch(payload, fn)
		if err != nil || done {
			return err
		}
	}
}

func dispatch(payload []byte, fn func(protocol.Event)) (bool, error) {
	if string(payload) == protocol.DoneSentinel {
		return true, nil
	}
	ev, err := protocol.Decode(payload)
	if errors.Is(err, protocol.ErrUnknownEventType) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("decode stream event: %w", err)
	}
	fn(ev)
	return false, nil
}

func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}
	var body apiErrorBody
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
