package daemon

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"factstream/internal/logging"
	"factstream/internal/pipeline"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 90 * time.Second
	wsPingInterval = 30 * time.Second
	wsFetchBatch   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The daemon binds to loopback by default; remote frontends go through
	// their own origin-checking proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

type controlMessage struct {
	Action     string `json:"action"`
	SourceURL  string `json:"source_url"`
	YouTubeURL string `json:"youtube_url"`
}

func (m controlMessage) url() string {
	if strings.TrimSpace(m.SourceURL) != "" {
		return strings.TrimSpace(m.SourceURL)
	}
	return strings.TrimSpace(m.YouTubeURL)
}

// handleWebSocket streams pipeline events to one subscriber and accepts
// start/stop control messages from it. Closing the socket never stops the
// session; sessions belong to the daemon, not to any one client.
func (s *apiServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	go func() {
		defer cancel()
		s.readControl(conn)
	}()
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	s.writeEvents(ctx, conn)
}

// readControl processes control messages until the socket closes. Failures
// are published to the hub so every subscriber sees them.
func (s *apiServer) readControl(conn *websocket.Conn) {
	for {
		var msg controlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch strings.ToLower(strings.TrimSpace(msg.Action)) {
		case "start":
			url := msg.url()
			if url == "" {
				s.publishError("start requires a source url")
				continue
			}
			if err := s.daemon.StartSession(url); err != nil {
				s.publishError("session start failed: " + err.Error())
			}
		case "stop":
			s.daemon.StopSession()
		case "":
			s.publishError("control message missing action")
		default:
			s.publishError("unknown action: " + msg.Action)
		}
	}
}

func (s *apiServer) publishError(message string) {
	s.daemon.hub.Publish(pipeline.Event{
		Type: pipeline.EventError,
		Data: pipeline.ErrorData{Message: message, ChunkIndex: -1},
	})
}

// writeEvents sends a state snapshot, then streams hub events as they arrive.
// Subscribers attaching mid-session immediately learn whether a session is
// running.
func (s *apiServer) writeEvents(ctx context.Context, conn *websocket.Conn) {
	_, since := s.daemon.hub.Tail(1)

	status := s.daemon.manager.Status()
	snapshot := pipeline.Event{
		Type:      pipeline.EventStatus,
		Timestamp: time.Now().UTC(),
		Data: pipeline.StatusData{
			Status:          string(status.State),
			SessionID:       status.SessionID,
			SourceURL:       status.SourceURL,
			ChunksProcessed: status.ChunksProcessed,
		},
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(snapshot); err != nil {
		return
	}

	for {
		events, next, err := s.daemon.hub.Fetch(ctx, since, wsFetchBatch, true)
		if err != nil {
			return
		}
		since = next
		for _, evt := range events {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}
}
