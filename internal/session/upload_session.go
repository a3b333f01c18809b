package session

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/stagelab/cuems-core/internal/logging"
	"github.com/stagelab/cuems-core/internal/upload"
	"github.com/stagelab/cuems-core/internal/wsproto"
)

// UploadSession drives one /upload connection end to end: announce,
// stream binary chunks, verify, ingest. Unlike Session, the upload path
// has no concurrent dispatch (section 4.7 describes one linear
// handshake per connection), so a single goroutine runs it start to
// finish.
type UploadSession struct {
	conn     *websocket.Conn
	hub      *Hub
	pipeline *upload.Pipeline
}

// NewUploadSession wraps an upgraded /upload connection. ingester is
// ordinarily the process's *media.Service; accepting the narrower
// upload.Ingester interface keeps this package's only dependency on it
// to the one method the pipeline actually calls.
func NewUploadSession(conn *websocket.Conn, hub *Hub, tmpUploadPath string, ingester upload.Ingester) *UploadSession {
	return &UploadSession{conn: conn, hub: hub, pipeline: upload.New(tmpUploadPath, ingester)}
}

// Run drives the upload handshake until the connection closes or the
// upload reaches a terminal state. Every failure is reported to the
// peer as a fatal error frame before the connection is torn down.
func (u *UploadSession) Run(ctx context.Context) {
	defer u.pipeline.Close()
	defer u.conn.Close()

	if !u.announce() {
		return
	}
	u.stream(ctx)
}

// announce handles the first frame of the handshake: the {action:
// "upload", value:{name,size}} announcement.
func (u *UploadSession) announce() bool {
	msgType, data, err := u.conn.ReadMessage()
	if err != nil {
		return false
	}
	if msgType != websocket.TextMessage {
		u.fail("expected upload announcement as text frame")
		return false
	}
	in, err := wsproto.DecodeInbound(data)
	if err != nil || in.Action != "upload" {
		u.fail("expected an upload action")
		return false
	}
	var req wsproto.UploadRequest
	if err := in.Into(&req); err != nil {
		u.fail("malformed upload request")
		return false
	}
	if err := u.pipeline.Announce(req.Name, req.Size); err != nil {
		u.fail(err.Error())
		return false
	}
	return u.send(wsproto.Ready())
}

// stream handles the remainder of the handshake: binary chunks acked
// one by one, terminated by the {action:"finished", value:<md5hex>}
// message.
func (u *UploadSession) stream(ctx context.Context) {
	for {
		msgType, data, err := u.conn.ReadMessage()
		if err != nil {
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if err := u.pipeline.Write(data); err != nil {
				u.fail(err.Error())
				return
			}
			if !u.send(wsproto.Ready()) {
				return
			}

		case websocket.TextMessage:
			in, err := wsproto.DecodeInbound(data)
			if err != nil || in.Action != "finished" {
				u.fail("expected finished action")
				return
			}
			var md5hex string
			if err := in.Into(&md5hex); err != nil {
				u.fail("malformed finished message")
				return
			}
			if _, err := u.pipeline.Finish(ctx, md5hex); err != nil {
				u.fail(err.Error())
				return
			}
			if u.send(wsproto.Closed()) {
				u.hub.BroadcastListUpdate(nil, "file_list")
			}
			return

		default:
			u.fail("unsupported frame type")
			return
		}
	}
}

func (u *UploadSession) send(frame any) bool {
	data, err := wsproto.Encode(frame)
	if err != nil {
		logging.Warn().Err(err).Msg("failed to encode upload frame")
		return false
	}
	return u.conn.WriteMessage(websocket.TextMessage, data) == nil
}

func (u *UploadSession) fail(message string) {
	u.send(wsproto.FatalUploadError(message))
}
