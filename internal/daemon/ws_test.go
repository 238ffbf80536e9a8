package daemon

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"factstream/internal/pipeline"
)

type wsEvent struct {
	Type string          `json:"type"`
	Seq  uint64          `json:"seq"`
	Data json.RawMessage `json:"data"`
}

func dialWS(t *testing.T, base string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(base, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var evt wsEvent
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return evt
}

func TestWebSocketSendsStatusSnapshotOnConnect(t *testing.T) {
	_, base := startTestDaemon(t)
	conn := dialWS(t, base)

	evt := readEvent(t, conn)
	if evt.Type != string(pipeline.EventStatus) {
		t.Fatalf("expected status snapshot first, got %q", evt.Type)
	}
	var data pipeline.StatusData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if data.Status != string(pipeline.StateIdle) {
		t.Fatalf("expected idle snapshot, got %q", data.Status)
	}
}

func TestWebSocketStreamsHubEvents(t *testing.T) {
	d, base := startTestDaemon(t)
	conn := dialWS(t, base)
	readEvent(t, conn) // snapshot

	d.hub.Publish(pipeline.Event{
		Type: pipeline.EventError,
		Data: pipeline.ErrorData{Message: "stream hiccup", ChunkIndex: 7},
	})

	evt := readEvent(t, conn)
	if evt.Type != string(pipeline.EventError) {
		t.Fatalf("expected error event, got %q", evt.Type)
	}
	var data pipeline.ErrorData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		t.Fatalf("decode error event: %v", err)
	}
	if data.Message != "stream hiccup" || data.ChunkIndex != 7 {
		t.Fatalf("unexpected payload %+v", data)
	}
}

func TestWebSocketControlStartsSession(t *testing.T) {
	d, base := startTestDaemon(t)
	conn := dialWS(t, base)
	readEvent(t, conn) // snapshot

	msg := map[string]string{"action": "start", "source_url": "https://live.example/a"}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write control: %v", err)
	}

	evt := readEvent(t, conn)
	if evt.Type != string(pipeline.EventStatus) {
		t.Fatalf("expected running status event, got %q", evt.Type)
	}
	var data pipeline.StatusData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if data.Status != "running" || data.SourceURL != "https://live.example/a" {
		t.Fatalf("unexpected status payload %+v", data)
	}
	if d.manager.Status().State != pipeline.StateRunning {
		t.Fatalf("session not running after control message")
	}
}

func TestWebSocketReportsBadControlMessages(t *testing.T) {
	_, base := startTestDaemon(t)
	conn := dialWS(t, base)
	readEvent(t, conn) // snapshot

	if err := conn.WriteJSON(map[string]string{"action": "dance"}); err != nil {
		t.Fatalf("write control: %v", err)
	}

	evt := readEvent(t, conn)
	if evt.Type != string(pipeline.EventError) {
		t.Fatalf("expected error event, got %q", evt.Type)
	}
	var data pipeline.ErrorData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		t.Fatalf("decode error event: %v", err)
	}
	if !strings.Contains(data.Message, "unknown action") {
		t.Fatalf("unexpected message %q", data.Message)
	}
}

func TestWebSocketDisconnectKeepsSessionAlive(t *testing.T) {
	d, base := startTestDaemon(t)
	conn := dialWS(t, base)
	readEvent(t, conn) // snapshot

	if err := conn.WriteJSON(map[string]string{"action": "start", "source_url": "https://live.example/a"}); err != nil {
		t.Fatalf("write control: %v", err)
	}
	readEvent(t, conn) // running status
	_ = conn.Close()

	// Sessions belong to the daemon, not the socket.
	time.Sleep(50 * time.Millisecond)
	if d.manager.Status().State != pipeline.StateRunning {
		t.Fatal("session should survive subscriber disconnect")
	}
}
