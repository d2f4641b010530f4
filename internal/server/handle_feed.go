package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

// handleProgressFeed streams a group's progress events over a WebSocket.
// Client messages are ignored; the feed ends when the client disconnects.
func handleProgressFeed(broker *Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := groupFrom(r)

		ch := broker.Subscribe(groupID)
		defer broker.Unsubscribe(groupID, ch)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
		defer cancel()
		ctx = conn.CloseRead(ctx)

		for {
			select {
			case <-ctx.Done():
				logger.Debug("websocket feed ended", "group_id", groupID, "error", ctx.Err())
				return
			case data := <-ch:
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					logger.Debug("websocket write failed", "group_id", groupID, "error", err)
					return
				}
			}
		}
	}
}
