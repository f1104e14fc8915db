package handlers

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const requestReadTimeout = 30 * time.Second

// StreamMessage is sent to websocket clients: progress updates followed by exactly one
// result or error message.
type StreamMessage struct {
	Type   string              `json:"type"` // progress, result or error
	Done   int                 `json:"done,omitempty"`
	Total  int                 `json:"total,omitempty"`
	Result *MonteCarloResponse `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
	Status int                 `json:"status,omitempty"`
}

// HandleStream handles GET /api/optimization/stream. The client sends one
// MonteCarloRequest as JSON; the server reports progress per completed batch and
// closes the connection after the final message.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // cross-origin clients are allowed, as on the REST routes
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected exit")

	readCtx, cancel := context.WithTimeout(r.Context(), requestReadTimeout)
	var req MonteCarloRequest
	err = wsjson.Read(readCtx, conn, &req)
	cancel()
	if err != nil {
		h.log.Debug().Err(err).Msg("Failed to read stream request")
		conn.Close(websocket.StatusUnsupportedData, "expected a JSON run request")
		return
	}

	// Cancelled when the client goes away
	ctx := conn.CloseRead(r.Context())

	updates := make(chan StreamMessage, 16)
	written := make(chan struct{})
	go func() {
		defer close(written)
		for msg := range updates {
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				h.log.Debug().Err(err).Msg("Failed to write progress")
			}
		}
	}()

	progress := func(done, total int) {
		msg := StreamMessage{Type: "progress", Done: done, Total: total}
		if done >= total {
			// the completing update is always delivered; the writer drains until close
			updates <- msg
			return
		}
		select {
		case updates <- msg:
		default:
			// slow client; the next update supersedes this one
		}
	}

	result, err := h.run(ctx, req, progress)
	close(updates)
	<-written

	final := StreamMessage{Type: "result"}
	if err != nil {
		final = StreamMessage{Type: "error", Error: err.Error(), Status: statusFor(err)}
		h.log.Warn().Err(err).Msg("Streamed run failed")
	} else {
		response := newResponse(result, req.IncludeTrials)
		final.Result = &response
	}

	if err := wsjson.Write(ctx, conn, final); err != nil {
		h.log.Debug().Err(err).Msg("Failed to write final stream message")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
