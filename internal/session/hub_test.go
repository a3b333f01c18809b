package session

import (
	"testing"
)

func newTestHubSession(id string) *Session {
	return &Session{ID: id, outbound: make(chan outboundFrame, 8)}
}

func TestHubResumeReusesKnownID(t *testing.T) {
	h := NewHub()
	s := newTestHubSession("known-id")
	h.Register(s)

	id, err := h.Resume("known-id")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if id != "known-id" {
		t.Errorf("Resume = %q, want reuse of known-id", id)
	}
}

func TestHubResumeMintsFreshIDWhenUnknown(t *testing.T) {
	h := NewHub()

	id, err := h.Resume("never-registered")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if id == "" || id == "never-registered" {
		t.Errorf("Resume = %q, want a freshly minted uuid", id)
	}
}

func TestHubRegisterUnregisterTracksCount(t *testing.T) {
	h := NewHub()
	if h.Count() != 0 {
		t.Fatalf("initial Count = %d, want 0", h.Count())
	}

	a := newTestHubSession("a")
	b := newTestHubSession("b")
	h.Register(a)
	h.Register(b)
	if h.Count() != 2 {
		t.Fatalf("Count after two registers = %d, want 2", h.Count())
	}

	h.Unregister(a)
	if h.Count() != 1 {
		t.Fatalf("Count after unregister = %d, want 1", h.Count())
	}
}

func TestHubSetLoadedProjectAndLookup(t *testing.T) {
	h := NewHub()
	if _, ok := h.LoadedProject("s1"); ok {
		t.Fatal("expected no loaded project before SetLoadedProject")
	}

	h.SetLoadedProject("s1", "proj-uuid")
	p, ok := h.LoadedProject("s1")
	if !ok || p != "proj-uuid" {
		t.Errorf("LoadedProject = (%q, %v), want (proj-uuid, true)", p, ok)
	}
}

func TestHubUnregisterClearsLoadedProject(t *testing.T) {
	h := NewHub()
	s := newTestHubSession("s1")
	h.Register(s)
	h.SetLoadedProject("s1", "proj-uuid")

	h.Unregister(s)

	if _, ok := h.LoadedProject("s1"); ok {
		t.Error("expected loaded project to be cleared on unregister")
	}
}

func TestHubBroadcastListUpdateSkipsCaller(t *testing.T) {
	h := NewHub()
	caller := newTestHubSession("caller")
	other := newTestHubSession("other")
	h.Register(caller)
	h.Register(other)
	drainAll(t, caller, other)

	h.BroadcastListUpdate(caller, "file_list")

	select {
	case frame := <-caller.outbound:
		t.Fatalf("caller should not receive its own broadcast, got %+v", frame)
	default:
	}

	select {
	case frame := <-other.outbound:
		if frame.text.Type != "list_update" || frame.text.Value != "file_list" {
			t.Errorf("unexpected frame: %+v", frame.text)
		}
	default:
		t.Fatal("expected other session to receive list_update")
	}
}

func TestHubBroadcastProjectUpdateOnlyToSameProject(t *testing.T) {
	h := NewHub()
	caller := newTestHubSession("caller")
	bound := newTestHubSession("bound")
	unbound := newTestHubSession("unbound")
	h.Register(caller)
	h.Register(bound)
	h.Register(unbound)
	drainAll(t, caller, bound, unbound)

	h.SetLoadedProject("bound", "proj-1")
	h.SetLoadedProject("unbound", "proj-2")

	h.BroadcastProjectUpdate(caller, "proj-1")

	select {
	case frame := <-bound.outbound:
		if frame.text.Type != "project_update" || frame.text.Value != "proj-1" {
			t.Errorf("unexpected frame: %+v", frame.text)
		}
	default:
		t.Fatal("expected bound session to receive project_update")
	}

	select {
	case frame := <-unbound.outbound:
		t.Fatalf("unbound session should not receive project_update, got %+v", frame)
	default:
	}
}

// drainAll discards the Users broadcasts each Register call triggers, so
// assertions below only see the frame under test.
func drainAll(t *testing.T, sessions ...*Session) {
	t.Helper()
	for _, s := range sessions {
		for {
			select {
			case <-s.outbound:
			default:
				goto next
			}
		}
	next:
	}
}
