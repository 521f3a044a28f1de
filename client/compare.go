package client

import (
	"context"
	"sync"

	"github.com/bazelment/agentgate/protocol"
)

// Lane is one provider's side of a comparison.
type Lane struct {
	Provider   string
	Controller *Controller
}

// Compare sends the same request to each provider concurrently, each on
// its own controller. onUpdate, when non-nil, is called with the lane
// index on every state change and may be called from several goroutines.
// It returns once every lane is terminal.
func Compare(ctx context.Context, s Streamer, req protocol.ChatRequest, providers []string, onUpdate func(lane int, st TurnState)) []TurnState {
	lanes := make([]Lane, len(providers))
	for i, name := range providers {
		var opts []ControllerOption
		if onUpdate != nil {
			opts = append(opts, WithOnUpdate(func(st TurnState) { onUpdate(i, st) }))
		}
		lanes[i] = Lane{Provider: name, Controller: NewController(opts...)}
	}

	results := make([]TurnState, len(lanes))
	var wg sync.WaitGroup
	for i, lane := range lanes {
		laneReq := req
		laneReq.Provider = lane.Provider
		// Session ids belong to one vendor.
		laneReq.SessionID = ""
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = lane.Controller.Send(ctx, s, laneReq)
		}()
	}
	wg.Wait()
	return results
}
