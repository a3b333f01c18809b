// Package upload implements the per-connection upload pipeline of section
// 4.7: a small state machine that receives a file over binary WebSocket
// frames, verifies its MD5 against what the client announces, and hands
// the result off to the media service.
package upload

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"

	"github.com/stagelab/cuems-core/internal/cerrors"
	"github.com/stagelab/cuems-core/internal/logging"
	"github.com/stagelab/cuems-core/internal/metrics"
	"github.com/stagelab/cuems-core/internal/models"
	"github.com/stagelab/cuems-core/internal/sanitize"
)

// State is the upload pipeline's state, per the Idle -> Announced ->
// Streaming -> Committed | Failed machine of section 4.7.
type State int

const (
	StateIdle State = iota
	StateAnnounced
	StateStreaming
	StateCommitted
	StateFailed
)

// Ingester is the subset of media.Service an upload hands its completed
// temp file off to.
type Ingester interface {
	Ingest(ctx context.Context, tmpPath, requestedName string) (*models.Media, error)
}

// Pipeline tracks one upload-path WebSocket connection's in-flight
// upload. It is not safe for concurrent use from more than one reader
// goroutine; the session's single upload reader owns it.
type Pipeline struct {
	tmpUploadPath string
	ingester      Ingester

	mu       sync.Mutex
	state    State
	name     string
	tmpName  string
	size     int64
	received int64
	file     *os.File
	md5sum   *md5Hash
}

type md5Hash struct {
	h interface {
		Write([]byte) (int, error)
		Sum([]byte) []byte
	}
}

// newTmpSuffix produces the 6-digit random suffix appended to the
// sanitized name. A package variable so tests can force a collision
// deterministically.
var newTmpSuffix = func() int { return rand.Intn(900000) + 100000 }

// New builds a Pipeline that stages uploads under tmpUploadPath and hands
// completed files to ingester.
func New(tmpUploadPath string, ingester Ingester) *Pipeline {
	return &Pipeline{tmpUploadPath: tmpUploadPath, ingester: ingester, state: StateIdle}
}

// State returns the pipeline's current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Announce handles the Idle state's {action:"upload", value:{name,size}}
// message: it sanitizes name, derives a random-suffixed temp filename,
// and fails fatally if that temp path already exists.
func (p *Pipeline) Announce(name string, size int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return cerrors.FileIntegrity("upload already announced on this connection")
	}

	if _, err := os.Stat(p.tmpUploadPath); err != nil {
		p.state = StateFailed
		return cerrors.Transient("upload folder does not exist", err)
	}

	p.name = sanitize.FileName(name)
	p.tmpName = fmt.Sprintf("%s.tmp%06d", p.name, newTmpSuffix())
	p.size = size

	if _, err := os.Stat(p.tmpPath()); err == nil {
		p.state = StateFailed
		return cerrors.FileIntegrity("file already exists")
	}

	p.state = StateAnnounced
	return nil
}

// tmpPath returns the path of the staged temp file. Caller must hold p.mu.
func (p *Pipeline) tmpPath() string {
	return filepath.Join(p.tmpUploadPath, p.tmpName)
}

// Write appends a binary frame to the staged temp file, opening it on the
// first call and transitioning Announced -> Streaming.
func (p *Pipeline) Write(chunk []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateAnnounced && p.state != StateStreaming {
		return cerrors.FileIntegrity("binary frame received outside streaming state")
	}

	if p.file == nil {
		f, err := os.OpenFile(p.tmpPath(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			p.state = StateFailed
			return cerrors.Transient("open upload temp file", err)
		}
		p.file = f
		p.md5sum = &md5Hash{h: md5.New()}
		p.state = StateStreaming
	}

	if _, err := p.file.Write(chunk); err != nil {
		p.state = StateFailed
		return cerrors.Transient("write upload chunk", err)
	}
	p.md5sum.h.Write(chunk)
	p.received += int64(len(chunk))
	metrics.RecordUploadBytes(len(chunk))
	return nil
}

// Finish handles the text {action:"finished", value:<md5hex>} message:
// flushes and closes the temp file, verifies the received MD5 against
// receivedMD5, and on success hands the temp file off to the ingester.
// On any failure the temp file is removed and the pipeline enters Failed.
func (p *Pipeline) Finish(ctx context.Context, receivedMD5 string) (*models.Media, error) {
	p.mu.Lock()
	if p.state != StateStreaming {
		p.mu.Unlock()
		return nil, cerrors.FileIntegrity("finished message received outside streaming state")
	}
	file := p.file
	computed := hex.EncodeToString(p.md5sum.h.Sum(nil))
	tmpPath := p.tmpPath()
	name := p.name
	p.mu.Unlock()

	if err := file.Close(); err != nil {
		p.fail()
		os.Remove(tmpPath)
		return nil, cerrors.Transient("close upload temp file", err)
	}

	if computed != receivedMD5 {
		p.fail()
		os.Remove(tmpPath)
		return nil, cerrors.FileIntegrity("MD5 mismatch")
	}

	m, err := p.ingester.Ingest(ctx, tmpPath, name)
	if err != nil {
		p.fail()
		return nil, err
	}

	p.mu.Lock()
	p.state = StateCommitted
	p.tmpName = ""
	p.mu.Unlock()

	metrics.RecordUploadOutcome(true)
	return m, nil
}

func (p *Pipeline) fail() {
	p.mu.Lock()
	p.state = StateFailed
	p.mu.Unlock()
	metrics.RecordUploadOutcome(false)
}

// Close deletes any dangling temp file left by an abnormal connection
// teardown or a failed upload (state left at Announced, Streaming or
// Failed). Idempotent and safe
// to call unconditionally from the session's defer chain.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file != nil {
		p.file.Close()
		p.file = nil
	}
	if p.tmpName == "" {
		return
	}
	if p.state == StateAnnounced || p.state == StateStreaming || p.state == StateFailed {
		if err := os.Remove(p.tmpPath()); err != nil && !os.IsNotExist(err) {
			logging.Warn().Err(err).Str("path", p.tmpPath()).Msg("failed to clean up dangling upload temp file")
		}
	}
	p.tmpName = ""
}
