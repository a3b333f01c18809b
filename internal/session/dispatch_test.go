package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stagelab/cuems-core/internal/wsproto"
)

func newDispatchSession(t *testing.T, svc Services) (*Session, *Hub) {
	t.Helper()
	hub := NewHub()
	s := &Session{ID: "s1", hub: hub, svc: svc, outbound: make(chan outboundFrame, 32)}
	hub.Register(s)
	drainAll(t, s)
	return s, hub
}

func recvFrame(t *testing.T, s *Session) wsproto.Outbound {
	t.Helper()
	select {
	case f := <-s.outbound:
		return f.text
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for outbound frame")
		return wsproto.Outbound{}
	}
}

type inboundPayload struct {
	Action string `json:"action"`
	Value  any    `json:"value,omitempty"`
}

func encodeInbound(t *testing.T, action string, value any) []byte {
	t.Helper()
	data, err := json.Marshal(inboundPayload{Action: action, Value: value})
	if err != nil {
		t.Fatalf("encode inbound frame: %v", err)
	}
	return data
}

func TestDispatchProjectListEmpty(t *testing.T) {
	svc := testStack(t)
	s, _ := newDispatchSession(t, svc)

	s.dispatch(context.Background(), encodeInbound(t, "project_list", nil))

	frame := recvFrame(t, s)
	if frame.Type != "project_list" {
		t.Errorf("frame.Type = %q, want project_list", frame.Type)
	}
}

func TestDispatchUnknownAction(t *testing.T) {
	svc := testStack(t)
	s, _ := newDispatchSession(t, svc)

	s.dispatch(context.Background(), encodeInbound(t, "not_a_real_action", nil))

	frame := recvFrame(t, s)
	if frame.Type != "error" {
		t.Errorf("frame.Type = %q, want error", frame.Type)
	}
}

func TestDispatchMalformedFrame(t *testing.T) {
	svc := testStack(t)
	s, _ := newDispatchSession(t, svc)

	s.dispatch(context.Background(), []byte("not json"))

	frame := recvFrame(t, s)
	if frame.Type != "error" {
		t.Errorf("frame.Type = %q, want error", frame.Type)
	}
}

func saveProject(t *testing.T, s *Session, name string) string {
	t.Helper()
	value := map[string]any{"CuemsScript": map[string]any{"Name": name}}
	s.dispatch(context.Background(), encodeInbound(t, "project_save", value))
	reply := recvFrame(t, s)
	if reply.Type != "project_save" {
		t.Fatalf("reply.Type = %q, want project_save", reply.Type)
	}
	uuid, _ := reply.Value.(string)
	if uuid == "" {
		t.Fatal("expected non-empty project uuid in reply")
	}
	return uuid
}

func TestDispatchProjectSaveCreatesThenBroadcasts(t *testing.T) {
	svc := testStack(t)
	creator, hub := newDispatchSession(t, svc)
	other := &Session{ID: "other", hub: hub, svc: svc, outbound: make(chan outboundFrame, 32)}
	hub.Register(other)
	drainAll(t, creator, other)

	saveProject(t, creator, "My Show")

	// creator is the broadcast's caller and is skipped; other should see
	// the project_list list_update.
	frame := recvFrame(t, other)
	if frame.Type != "list_update" || frame.Value != "project_list" {
		t.Errorf("unexpected frame for other session: %+v", frame)
	}
}

func TestDispatchProjectDeleteBroadcastsProjectUpdateAndLists(t *testing.T) {
	svc := testStack(t)
	creator, hub := newDispatchSession(t, svc)
	bound := &Session{ID: "bound", hub: hub, svc: svc, outbound: make(chan outboundFrame, 32)}
	hub.Register(bound)
	drainAll(t, creator, bound)

	projectUUID := saveProject(t, creator, "Doomed Show")
	drainAll(t, bound) // discard the project_list list_update from project_save

	hub.SetLoadedProject("bound", projectUUID)

	creator.dispatch(context.Background(), encodeInbound(t, "project_delete", projectUUID))
	deleteReply := recvFrame(t, creator)
	if deleteReply.Type != "project_delete" {
		t.Fatalf("deleteReply.Type = %q, want project_delete", deleteReply.Type)
	}

	seenProjectUpdate, seenProjectList, seenTrashList := false, false, false
	for i := 0; i < 3; i++ {
		frame := recvFrame(t, bound)
		switch {
		case frame.Type == "project_update" && frame.Value == projectUUID:
			seenProjectUpdate = true
		case frame.Type == "list_update" && frame.Value == "project_list":
			seenProjectList = true
		case frame.Type == "list_update" && frame.Value == "project_trash_list":
			seenTrashList = true
		}
	}
	if !seenProjectUpdate || !seenProjectList || !seenTrashList {
		t.Errorf("missing expected broadcast: project_update=%v project_list=%v project_trash_list=%v",
			seenProjectUpdate, seenProjectList, seenTrashList)
	}
}

func TestDispatchHwDiscoveryCallsEngine(t *testing.T) {
	svc := testStack(t)
	s, _ := newDispatchSession(t, svc)

	s.dispatch(context.Background(), encodeInbound(t, "hw_discovery", nil))

	reply := recvFrame(t, s)
	if reply.Type != "hw_discovery" {
		t.Fatalf("reply.Type = %q, want hw_discovery", reply.Type)
	}
	if reply.Value != "OK" {
		t.Errorf("reply.Value = %v, want OK", reply.Value)
	}
}
