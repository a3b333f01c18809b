// Package media implements the media service: ingest, list, update,
// soft-delete, restore, and purge of library media assets, plus the
// thumbnail/waveform/duration derivatives generated at ingest time.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stagelab/cuems-core/internal/cerrors"
	"github.com/stagelab/cuems-core/internal/library"
	"github.com/stagelab/cuems-core/internal/logging"
	"github.com/stagelab/cuems-core/internal/metrics"
	"github.com/stagelab/cuems-core/internal/models"
	"github.com/stagelab/cuems-core/internal/pathmove"
	"github.com/stagelab/cuems-core/internal/sanitize"
	"github.com/stagelab/cuems-core/internal/store"
)

const (
	thumbnailExtension = ".png"
	waveformExtension   = ".dat"
	thumbnailSize       = 240
)

var (
	movieExtensions = map[string]bool{".mov": true, ".avi": true, ".mkv": true, ".mpg": true, ".mp4": true}
	audioExtensions = map[string]bool{".aif": true, ".aiff": true, ".wav": true, ".mp3": true}
	imageExtensions = map[string]bool{".png": true, ".jpg": true, ".tga": true}
)

// Prober extracts media duration, e.g. by shelling out to ffprobe.
type Prober interface {
	Probe(ctx context.Context, filePath string) (string, error)
}

// Thumbnailer generates the derivative image/waveform files ingest needs.
type Thumbnailer interface {
	VideoThumbnail(ctx context.Context, srcPath, dstPath string, atMillis int) error
	AudioThumbnail(ctx context.Context, srcPath, dstPath string, durationSeconds float64) error
	AudioWaveform(ctx context.Context, srcPath, dstPath string) error
}

// Service implements the media operations of section 4.5.
type Service struct {
	db       *store.DB
	layout   *library.Layout
	prober   Prober
	thumbs   Thumbnailer
}

// NewService builds a media Service over the given store and library
// layout, using prober/thumbs to derive duration and thumbnails at ingest.
func NewService(db *store.DB, layout *library.Layout, prober Prober, thumbs Thumbnailer) *Service {
	return &Service{db: db, layout: layout, prober: prober, thumbs: thumbs}
}

// typeFromFilename derives a MediaType from a file extension, or "" if
// the extension is not recognized.
func typeFromFilename(filename string) models.MediaType {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case movieExtensions[ext]:
		return models.MediaTypeMovie
	case audioExtensions[ext]:
		return models.MediaTypeAudio
	case imageExtensions[ext]:
		return models.MediaTypeImage
	default:
		return ""
	}
}

// SupportedExtensions returns the file extensions recognized per media
// type, keyed the same way models.MediaType values print. The editor
// sends this back to connecting clients as part of the initial_mappings
// frame so the upload UI can validate a file before streaming it.
func SupportedExtensions() map[string][]string {
	out := map[string][]string{
		string(models.MediaTypeMovie): extKeys(movieExtensions),
		string(models.MediaTypeAudio): extKeys(audioExtensions),
		string(models.MediaTypeImage): extKeys(imageExtensions),
	}
	return out
}

func extKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func thumbnailFilename(filename string) string {
	ext := filepath.Ext(filename)
	root := strings.TrimSuffix(filename, ext)
	return fmt.Sprintf("%s_%s%s", root, strings.TrimPrefix(ext, "."), thumbnailExtension)
}

func waveformFilename(filename string) string {
	ext := filepath.Ext(filename)
	root := strings.TrimSuffix(filename, ext)
	return fmt.Sprintf("%s_%s%s", root, strings.TrimPrefix(ext, "."), waveformExtension)
}

// Ingest moves tmpPath into the media directory, derives type/duration/
// thumbnails, and inserts the Media row. Any failure after the initial
// move unwinds every artifact produced so far and rolls back the insert.
func (s *Service) Ingest(ctx context.Context, tmpPath, requestedName string) (*models.Media, error) {
	start := time.Now()
	mediaTypeLabel := "unknown"
	defer func() { metrics.RecordMediaIngest(mediaTypeLabel, time.Since(start)) }()

	requestedName = sanitize.FileName(requestedName)

	destName, err := pathmove.Move(tmpPath, s.layout.MediaPath, requestedName)
	if err != nil {
		return nil, cerrors.Transient("move ingested file into place", err)
	}

	undo := newUndoStack()
	undo.push(func() { os.Remove(s.layout.MediaFilePath(destName, false)) })

	mediaType := typeFromFilename(destName)
	if mediaType == "" {
		undo.run()
		return nil, cerrors.FileIntegrity(fmt.Sprintf("unrecognized media extension for %q", destName))
	}
	mediaTypeLabel = string(mediaType)

	var duration string
	if mediaType == models.MediaTypeMovie || mediaType == models.MediaTypeAudio {
		duration, err = s.prober.Probe(ctx, s.layout.MediaFilePath(destName, false))
		if err != nil {
			undo.run()
			return nil, cerrors.NotTimecode(err)
		}
	}

	thumbPath := s.layout.ThumbnailFilePath(thumbnailFilename(destName), false)
	wavePath := s.layout.WaveformFilePath(waveformFilename(destName), false)

	switch mediaType {
	case models.MediaTypeMovie:
		if err := s.thumbs.VideoThumbnail(ctx, s.layout.MediaFilePath(destName, false), thumbPath, 200); err != nil {
			logging.Warn().Err(err).Str("media", destName).Msg("video thumbnail generation failed")
		} else {
			undo.push(func() { os.Remove(thumbPath) })
		}
	case models.MediaTypeImage:
		if err := s.thumbs.VideoThumbnail(ctx, s.layout.MediaFilePath(destName, false), thumbPath, -1); err != nil {
			logging.Warn().Err(err).Str("media", destName).Msg("image thumbnail generation failed")
		} else {
			undo.push(func() { os.Remove(thumbPath) })
		}
	case models.MediaTypeAudio:
		seconds := durationSeconds(duration)
		if err := s.thumbs.AudioThumbnail(ctx, s.layout.MediaFilePath(destName, false), thumbPath, seconds); err != nil {
			logging.Warn().Err(err).Str("media", destName).Msg("audio thumbnail generation failed")
		} else {
			undo.push(func() { os.Remove(thumbPath) })
		}
		if err := s.thumbs.AudioWaveform(ctx, s.layout.MediaFilePath(destName, false), wavePath); err != nil {
			logging.Warn().Err(err).Str("media", destName).Msg("audio waveform generation failed")
		} else {
			undo.push(func() { os.Remove(wavePath) })
		}
	}

	now := time.Now().UTC()
	id, err := uuid.NewUUID()
	if err != nil {
		undo.run()
		return nil, cerrors.Transient("generate media uuid", err)
	}

	m := &models.Media{
		UUID:      id.String(),
		Name:      destName,
		UnixName:  destName,
		Duration:  duration,
		MediaType: mediaType,
		Created:   now,
		Modified:  now,
	}

	if err := s.db.CreateMedia(ctx, s.db.Conn(), m); err != nil {
		undo.run()
		return nil, err
	}

	return m, nil
}

func durationSeconds(hhmmssms string) float64 {
	var h, m, sec int
	var ms int
	if n, _ := fmt.Sscanf(hhmmssms, "%d:%d:%d.%d", &h, &m, &sec, &ms); n < 3 {
		return 0
	}
	return float64(h*3600+m*60+sec) + float64(ms)/1000
}
