package session

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stagelab/cuems-core/internal/logging"
	"github.com/stagelab/cuems-core/internal/media"
	"github.com/stagelab/cuems-core/internal/wsproto"
)

// Server upgrades incoming HTTP connections to the editor protocol ("/")
// or the upload protocol ("/upload") of section 4.8/4.7 and wires each
// to a Hub/Services pair. It holds the process's long-lived context so
// a session's goroutines outlive the HTTP handler that spawned them and
// are torn down together on shutdown, rather than when the handler
// returns.
type Server struct {
	ctx           context.Context
	hub           *Hub
	svc           Services
	timing        Timing
	tmpUploadPath string
	mappings      any
	upgrader      websocket.Upgrader
}

// NewServer builds a Server bound to ctx: canceling ctx tears down every
// session and upload connection it has accepted.
func NewServer(ctx context.Context, hub *Hub, svc Services, timing Timing, tmpUploadPath string) *Server {
	return &Server{
		ctx:           ctx,
		hub:           hub,
		svc:           svc,
		timing:        timing,
		tmpUploadPath: tmpUploadPath,
		mappings:      map[string]any{"media_extensions": media.SupportedExtensions()},
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
			// The editor and its companion playback engine are expected to
			// run on the operator's own LAN rather than behind a public
			// origin boundary, so unlike the teacher's CORSOrigins
			// allowlist this accepts any Origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeEditor upgrades r and runs it as an editor Session bound to the
// session id named by the "session" query parameter, if one still
// matches a registered session, or a freshly minted one otherwise
// (CuemsWsServer.check_session's reconnect behavior).
func (srv *Server) ServeEditor(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("editor websocket upgrade failed")
		return
	}

	id, err := srv.hub.Resume(r.URL.Query().Get("session"))
	if err != nil {
		logging.Error().Err(err).Msg("failed to assign session id")
		conn.Close()
		return
	}

	sess := NewSession(id, conn, srv.hub, srv.svc, srv.timing)
	srv.hub.Register(sess)

	sess.Send(wsproto.SessionID(id))
	sess.Send(wsproto.InitialMappings(srv.mappings))
	if projectUUID, ok := srv.hub.LoadedProject(id); ok {
		sess.Send(wsproto.ProjectUpdate(projectUUID))
	}

	go func() {
		defer srv.hub.Unregister(sess)
		sess.Run(srv.ctx)
	}()
}

// ServeUpload upgrades r and runs it as an UploadSession until the
// handshake of section 4.7 completes or the connection drops.
func (srv *Server) ServeUpload(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("upload websocket upgrade failed")
		return
	}

	up := NewUploadSession(conn, srv.hub, srv.tmpUploadPath, srv.svc.Media)
	go up.Run(srv.ctx)
}
