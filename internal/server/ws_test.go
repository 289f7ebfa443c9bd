package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/collect"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/server/api"
)

func dialDetections(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/detections"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) DetectionMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg DetectionMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read error = %v", err)
	}
	return msg
}

func TestDetectionsHandler(t *testing.T) {
	session := collect.NewSession(collect.Config{FrameLimit: 1})
	srv := New(Config{Session: session})
	session.OnTake(srv.Detections().BroadcastTake)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dialDetections(t, ts)
	frame := api.FrameRequest{
		Result: detector.NewResult([][]detector.Point3D{detector.OpenPalm()}, []string{detector.HandRight}),
	}

	t.Run("idle frames are acknowledged but not recorded", func(t *testing.T) {
		if err := conn.WriteJSON(frame); err != nil {
			t.Fatalf("write error = %v", err)
		}
		msg := readMessage(t, conn)
		if msg.Type != MessageAck || msg.Recorded == nil || *msg.Recorded {
			t.Errorf("unexpected message %+v", msg)
		}
	})

	t.Run("invalid message", func(t *testing.T) {
		if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
			t.Fatalf("write error = %v", err)
		}
		if msg := readMessage(t, conn); msg.Type != MessageError {
			t.Errorf("unexpected message %+v", msg)
		}
	})

	t.Run("recorded frame and take broadcast", func(t *testing.T) {
		session.StartCollecting("kapittha")

		if err := conn.WriteJSON(frame); err != nil {
			t.Fatalf("write error = %v", err)
		}
		msg := readMessage(t, conn)
		if msg.Type != MessageAck || msg.Recorded == nil || !*msg.Recorded {
			t.Fatalf("unexpected message %+v", msg)
		}

		session.StopCollecting()

		msg = readMessage(t, conn)
		if msg.Type != MessageTake || msg.Take == nil {
			t.Fatalf("unexpected message %+v", msg)
		}
		if msg.Take.Gesture != "kapittha" || msg.Take.Score != 100 || msg.Log != "take#1 good (100)" {
			t.Errorf("take = %+v, log = %q", msg.Take, msg.Log)
		}
	})

	if srv.Detections().Clients() != 1 {
		t.Errorf("Clients() = %d, want 1", srv.Detections().Clients())
	}
}
