package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stagelab/cuems-core/internal/wsproto"
)

func newTestAcceptServer(t *testing.T, hub *Hub, svc Services) (*Server, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := NewServer(ctx, hub, svc, testTiming(), t.TempDir())
	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.ServeEditor)
	mux.HandleFunc("/upload", srv.ServeUpload)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return srv, ts
}

func dialEditor(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/" + query
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestServeEditorSendsHandshakeFrames(t *testing.T) {
	svc := testStack(t)
	hub := NewHub()
	_, ts := newTestAcceptServer(t, hub, svc)

	conn := dialEditor(t, ts, "")
	defer conn.Close()

	var first, second wsproto.Outbound
	readFrame(t, conn, &first)
	readFrame(t, conn, &second)

	if first.Type != "session_id" {
		t.Errorf("first frame type = %q, want session_id", first.Type)
	}
	if second.Type != "initial_mappings" {
		t.Errorf("second frame type = %q, want initial_mappings", second.Type)
	}
}

func TestServeEditorResumesKnownSession(t *testing.T) {
	svc := testStack(t)
	hub := NewHub()
	_, ts := newTestAcceptServer(t, hub, svc)

	conn := dialEditor(t, ts, "")
	defer conn.Close()
	var first wsproto.Outbound
	readFrame(t, conn, &first)
	sessionID, _ := first.Value.(string)
	if sessionID == "" {
		t.Fatal("expected non-empty session id")
	}

	conn2 := dialEditor(t, ts, "?session="+sessionID)
	defer conn2.Close()
	var resumed wsproto.Outbound
	readFrame(t, conn2, &resumed)
	if resumed.Value != sessionID {
		t.Errorf("resumed session id = %v, want %v", resumed.Value, sessionID)
	}
}

func TestServeEditorRegistersWithHub(t *testing.T) {
	svc := testStack(t)
	hub := NewHub()
	_, ts := newTestAcceptServer(t, hub, svc)

	conn := dialEditor(t, ts, "")
	defer conn.Close()
	var frame wsproto.Outbound
	readFrame(t, conn, &frame) // session_id

	deadline := time.Now().Add(time.Second)
	for hub.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Count() != 1 {
		t.Errorf("hub.Count() = %d, want 1", hub.Count())
	}
}

func readFrame(t *testing.T, conn *websocket.Conn, v *wsproto.Outbound) {
	t.Helper()
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	*v = wsproto.Outbound{}
	if typ, ok := m["type"].(string); ok {
		v.Type = typ
	}
	v.Value = m["value"]
}
