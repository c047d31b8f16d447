package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/foliowatch/foliowatch/internal/session"
)

// handleStream opens a websocket session for one owner. The session owns a
// short-interval poller; every tick's feedback is pushed as a JSON frame.
// Closing the socket stops the poller, ending the frequent passes for this
// owner.
// GET /api/owners/{ownerID}/stream
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Str("owner_id", ownerID).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	poller := session.NewPoller(
		ownerID,
		s.deps.Engine,
		s.deps.Snapshots,
		s.deps.Feedback,
		s.deps.Config.ClientPassInterval,
		s.log,
	)
	go poller.Run(ctx)

	// Drain incoming frames so we notice the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	s.log.Info().Str("owner_id", ownerID).Msg("Stream session opened")
	defer s.log.Info().Str("owner_id", ownerID).Msg("Stream session closed")

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case update, ok := <-poller.Updates():
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, update); err != nil {
				s.log.Debug().Err(err).Str("owner_id", ownerID).Msg("Stream write failed")
				return
			}
		}
	}
}
