// Package wsproto defines the JSON frame shapes of the editor and upload
// WebSocket protocols described in section 6: inbound action envelopes,
// outbound replies/notifications, and the small upload-session frames.
// Encoding/decoding goes through goccy/go-json rather than encoding/json
// for the hot path every editor frame travels.
package wsproto

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Inbound is a client->server editor frame: every message carries at
// least an action; value's shape depends on the action and is decoded on
// demand via Into.
type Inbound struct {
	Action string          `json:"action"`
	Value  json.RawMessage `json:"value,omitempty"`
}

// DecodeInbound parses one client->server text frame.
func DecodeInbound(data []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Inbound{}, fmt.Errorf("wsproto: decode inbound frame: %w", err)
	}
	return in, nil
}

// Into unmarshals the frame's value into v, for actions whose value is a
// structured payload (project_save, file_save, upload, finished, ...).
func (in Inbound) Into(v any) error {
	if len(in.Value) == 0 {
		return fmt.Errorf("wsproto: action %q carries no value", in.Action)
	}
	return json.Unmarshal(in.Value, v)
}

// Outbound is a server->client editor frame. Type mirrors the originating
// action for replies, or names a notification kind (session_id,
// initial_mappings, list_update, project_update, users, error).
type Outbound struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	UUID   string `json:"uuid,omitempty"`
	Value  any    `json:"value,omitempty"`
	Fatal  bool   `json:"fatal,omitempty"`
}

// Encode serializes any outbound frame (Outbound, or one of the flat
// upload-protocol frame types) for writing to the socket.
func Encode(frame any) ([]byte, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("wsproto: encode outbound frame: %w", err)
	}
	return data, nil
}

// replyTypeOverrides holds the handful of actions whose reply type does
// not equal the action name verbatim.
var replyTypeOverrides = map[string]string{
	"project_load": "project",
}

// ReplyType returns the type an action's reply carries: the action name
// itself, unless overridden (project_load -> project).
func ReplyType(action string) string {
	if t, ok := replyTypeOverrides[action]; ok {
		return t
	}
	return action
}

// SessionID builds the first frame a new (or resumed) connection
// receives: {type:"session_id", value:<uuid>}.
func SessionID(sessionUUID string) Outbound {
	return Outbound{Type: "session_id", Value: sessionUUID}
}

// InitialMappings builds the second frame every new connection receives:
// {type:"initial_mappings", value:<config-object>}.
func InitialMappings(mappings any) Outbound {
	return Outbound{Type: "initial_mappings", Value: mappings}
}

// Reply builds a successful reply to action, with type mirroring it per
// ReplyType.
func Reply(action string, value any) Outbound {
	return Outbound{Type: ReplyType(action), Value: value}
}

// Error builds {type:"error", action, uuid?, value:<message>}, optionally
// marked fatal so the client knows to close the socket.
func Error(action, uuid, message string, fatal bool) Outbound {
	return Outbound{Type: "error", Action: action, UUID: uuid, Value: message, Fatal: fatal}
}

// ListUpdate builds the cross-session notification sent when one of the
// four list kinds (project_list, project_trash_list, file_list,
// file_trash_list) changes on any session.
func ListUpdate(listName string) Outbound {
	return Outbound{Type: "list_update", Value: listName}
}

// ProjectUpdate builds the notification sent to every other session bound
// to the same project uuid.
func ProjectUpdate(projectUUID string) Outbound {
	return Outbound{Type: "project_update", Value: projectUUID}
}

// Users builds the notification sent whenever the set of connected
// sessions changes.
func Users(count int) Outbound {
	return Outbound{Type: "users", Value: count}
}

// Upload protocol frames (section 6): simpler, flat JSON objects
// exchanged only on the /upload path.

// UploadRequest is the client's initial {action:"upload", value:{name,size}}
// announcement, decoded via Inbound.Into.
type UploadRequest struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// UploadFinished is the client's {action:"finished", value:<md5hex>}
// message; its value is a bare string, not an object, so it is decoded
// directly rather than via a struct.

// UploadReady is the server's {ready:true} acknowledgement, sent after a
// successful announce and after each accepted binary frame.
type UploadReady struct {
	Ready bool `json:"ready"`
}

// Ready builds the {ready:true} acknowledgement.
func Ready() UploadReady { return UploadReady{Ready: true} }

// UploadClosed is the server's {close:true} message sent once an upload
// commits successfully.
type UploadClosed struct {
	Close bool `json:"close"`
}

// Closed builds the {close:true} message.
func Closed() UploadClosed { return UploadClosed{Close: true} }

// UploadError is the server's {error:<message>, fatal:true} message sent
// when an upload cannot proceed.
type UploadError struct {
	Error string `json:"error"`
	Fatal bool   `json:"fatal"`
}

// FatalUploadError builds an UploadError with fatal always true, per
// section 4.7's "report a fatal error" requirement.
func FatalUploadError(message string) UploadError {
	return UploadError{Error: message, Fatal: true}
}
