package session

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/stagelab/cuems-core/internal/config"
	"github.com/stagelab/cuems-core/internal/engine"
	"github.com/stagelab/cuems-core/internal/library"
	"github.com/stagelab/cuems-core/internal/logging"
	"github.com/stagelab/cuems-core/internal/media"
	"github.com/stagelab/cuems-core/internal/project"
	"github.com/stagelab/cuems-core/internal/script"
	"github.com/stagelab/cuems-core/internal/store"
	"github.com/stagelab/cuems-core/internal/workpool"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

type fakeProber struct{ duration string }

func (f fakeProber) Probe(ctx context.Context, filePath string) (string, error) {
	return f.duration, nil
}

type fakeThumbnailer struct{}

func (fakeThumbnailer) VideoThumbnail(ctx context.Context, src, dst string, atMillis int) error {
	return nil
}
func (fakeThumbnailer) AudioThumbnail(ctx context.Context, src, dst string, durationSeconds float64) error {
	return nil
}
func (fakeThumbnailer) AudioWaveform(ctx context.Context, src, dst string) error { return nil }

// testStack builds a full, in-process Services bundle over a throwaway
// library tree and in-memory-equivalent DuckDB file, plus an engine
// bridge always answering "OK", matching the same harness project_test.go
// and media_test.go already build for their own packages.
func testStack(t *testing.T) Services {
	t.Helper()

	root := t.TempDir()
	layout := library.NewLayout(root)
	if err := layout.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	dbPath := filepath.Join(t.TempDir(), "index.duckdb")
	db, err := store.New(config.DatabaseConfig{Path: dbPath})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	projects := project.NewService(db, layout, script.XMLReaderWriter{})
	medias := media.NewService(db, layout, fakeProber{duration: "00:00:05.000"}, fakeThumbnailer{})

	bridge := engine.New(engine.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go bridge.Run(ctx)
	t.Cleanup(func() { bridge.Close() })
	fakeEngine(t, bridge)

	pool := workpool.New(2, 8)
	t.Cleanup(pool.Close)

	return Services{Projects: projects, Media: medias, Engine: bridge, Pool: pool}
}

// fakeEngine answers every request with {Type: action, Value: "OK"},
// standing in for the sibling engine process the way engine_test.go's own
// fakeEngine does.
func fakeEngine(t *testing.T, b *engine.Bridge) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	messages, err := b.EngineSubscriber().Subscribe(ctx, "engine.requests")
	if err != nil {
		t.Fatalf("subscribe requests: %v", err)
	}
	go func() {
		for msg := range messages {
			var cmd engine.Command
			if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
				msg.Ack()
				continue
			}
			resp := engine.Response{Type: cmd.Action, ActionUUID: cmd.ActionUUID, Value: "OK"}
			payload, _ := json.Marshal(resp)
			_ = b.EnginePublisher().Publish("engine.responses", message.NewMessage(cmd.ActionUUID, payload))
			msg.Ack()
		}
	}()
}

func testTiming() Timing {
	return Timing{DispatcherWorkers: 2, WriteTimeout: time.Second, PingInterval: 0, PongTimeout: 0}
}
