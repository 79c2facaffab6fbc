package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/beethoven-go/internal/models"
)

const watchWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleWatchRecording streams {id, status} whenever the status changes and
// closes the socket once the recording is done or error.
func (s *Server) handleWatchRecording(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	// Resolve before upgrading so a missing recording is a plain 404.
	view, err := s.recordings.Status(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "recording_id", id, "error", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close messages are noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.watchInterval)
	defer ticker.Stop()

	var last models.RecordingStatus
	for {
		if view.Status != last {
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := conn.WriteJSON(view); err != nil {
				s.logger.Debug("watch client gone", "recording_id", id, "error", err)
				return
			}
			last = view.Status
		}
		if view.Status.IsTerminal() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(view.Status)),
				time.Now().Add(watchWriteTimeout))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case <-ticker.C:
		}

		next, err := s.recordings.Status(ctx, id)
		if err != nil {
			s.logger.Warn("watch status read failed", "recording_id", id, "error", err)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "status unavailable"),
				time.Now().Add(watchWriteTimeout))
			return
		}
		view = next
	}
}
