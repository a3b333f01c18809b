// Package session implements the WebSocket session server of section 4.8:
// connection accept and resume, the per-session reader/writer/dispatcher
// pipeline, the action dispatch table, and cross-session broadcast of
// list/project/user-count changes. Upload-path connections are handled
// separately by upload_session.go, which drives an internal/upload
// Pipeline frame by frame.
package session
