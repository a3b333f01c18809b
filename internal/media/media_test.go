package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stagelab/cuems-core/internal/cerrors"
	"github.com/stagelab/cuems-core/internal/config"
	"github.com/stagelab/cuems-core/internal/library"
	"github.com/stagelab/cuems-core/internal/store"
)

type fakeProber struct {
	duration string
	err      error
}

func (f fakeProber) Probe(ctx context.Context, filePath string) (string, error) {
	return f.duration, f.err
}

type fakeThumbnailer struct{}

func (fakeThumbnailer) VideoThumbnail(ctx context.Context, src, dst string, atMillis int) error {
	return os.WriteFile(dst, []byte("thumb"), 0o644)
}

func (fakeThumbnailer) AudioThumbnail(ctx context.Context, src, dst string, durationSeconds float64) error {
	return os.WriteFile(dst, []byte("thumb"), 0o644)
}

func (fakeThumbnailer) AudioWaveform(ctx context.Context, src, dst string) error {
	return os.WriteFile(dst, []byte("wave"), 0o644)
}

func newTestService(t *testing.T) (*Service, *library.Layout) {
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

	svc := NewService(db, layout, fakeProber{duration: "00:00:05.000"}, fakeThumbnailer{})
	return svc, layout
}

func writeUploadTmp(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "upload-*.mp4")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write: %v", err)
	}
	return f.Name()
}

func TestIngestMovie(t *testing.T) {
	svc, layout := newTestService(t)
	tmp := writeUploadTmp(t, "fake movie bytes")

	m, err := svc.Ingest(context.Background(), tmp, "clip.mp4")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if m.Duration != "00:00:05.000" {
		t.Errorf("got duration %q", m.Duration)
	}
	if _, err := os.Stat(layout.MediaFilePath("clip.mp4", false)); err != nil {
		t.Errorf("media file missing: %v", err)
	}
	if _, err := os.Stat(layout.ThumbnailFilePath("clip_mp4.png", false)); err != nil {
		t.Errorf("thumbnail missing: %v", err)
	}
}

func TestIngestUnrecognizedExtensionRollsBack(t *testing.T) {
	svc, layout := newTestService(t)
	tmp := writeUploadTmp(t, "data")

	_, err := svc.Ingest(context.Background(), tmp, "notes.txt")
	if kind, ok := cerrors.KindOf(err); !ok || kind != cerrors.KindFileIntegrity {
		t.Fatalf("expected KindFileIntegrity, got %v", err)
	}
	if _, statErr := os.Stat(layout.MediaFilePath("notes.txt", false)); !os.IsNotExist(statErr) {
		t.Errorf("expected moved file to be cleaned up on rollback")
	}
}

func TestIngestProbeFailureRollsBack(t *testing.T) {
	root := t.TempDir()
	layout := library.NewLayout(root)
	layout.Bootstrap()
	dbPath := filepath.Join(t.TempDir(), "index.duckdb")
	db, err := store.New(config.DatabaseConfig{Path: dbPath})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := NewService(db, layout, fakeProber{err: os.ErrInvalid}, fakeThumbnailer{})
	tmp := writeUploadTmp(t, "fake audio")

	_, err = svc.Ingest(context.Background(), tmp, "track.wav")
	if kind, ok := cerrors.KindOf(err); !ok || kind != cerrors.KindNotTimecode {
		t.Fatalf("expected KindNotTimecode, got %v", err)
	}
	if _, statErr := os.Stat(layout.MediaFilePath("track.wav", false)); !os.IsNotExist(statErr) {
		t.Errorf("expected moved file to be cleaned up on rollback")
	}
}

func TestDeleteRestoreRoundTrip(t *testing.T) {
	svc, layout := newTestService(t)
	tmp := writeUploadTmp(t, "img")

	m, err := svc.Ingest(context.Background(), tmp, "pic.png")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if err := svc.Delete(context.Background(), m.UUID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, statErr := os.Stat(layout.MediaFilePath("pic.png", false)); !os.IsNotExist(statErr) {
		t.Errorf("expected live file to be gone after delete")
	}
	if _, statErr := os.Stat(layout.MediaFilePath("pic.png", true)); statErr != nil {
		t.Errorf("expected trashed file to exist: %v", statErr)
	}

	if err := svc.Restore(context.Background(), m.UUID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, statErr := os.Stat(layout.MediaFilePath("pic.png", false)); statErr != nil {
		t.Errorf("expected live file to exist after restore: %v", statErr)
	}
}

func TestLoadThumbnailPrependsUUIDHeader(t *testing.T) {
	svc, _ := newTestService(t)
	tmp := writeUploadTmp(t, "img")

	m, err := svc.Ingest(context.Background(), tmp, "badge.jpg")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	data, err := svc.LoadThumbnail(context.Background(), m.UUID)
	if err != nil {
		t.Fatalf("LoadThumbnail: %v", err)
	}
	if len(data) < uuidHeaderSize {
		t.Fatalf("expected at least %d bytes, got %d", uuidHeaderSize, len(data))
	}
	if string(data[:len(m.UUID)]) != m.UUID {
		t.Errorf("header does not start with uuid: %q", data[:uuidHeaderSize])
	}
}
