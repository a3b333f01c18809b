package media

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/stagelab/cuems-core/internal/cerrors"
	"github.com/stagelab/cuems-core/internal/models"
	"github.com/stagelab/cuems-core/internal/pathmove"
	"github.com/stagelab/cuems-core/internal/sanitize"
)

const uuidHeaderSize = 36

// List returns every live media row with in-project counts.
func (s *Service) List(ctx context.Context) ([]models.MediaCounts, error) {
	return s.db.ListMediaCounts(ctx, s.db.Conn(), false)
}

// ListTrash returns every trashed media row with in-project counts.
func (s *Service) ListTrash(ctx context.Context) ([]models.MediaCounts, error) {
	return s.db.ListMediaCounts(ctx, s.db.Conn(), true)
}

// Update sanitizes and persists the mutable name/description fields.
func (s *Service) Update(ctx context.Context, uuid, name, description string) (*models.Media, error) {
	m, err := s.db.GetMedia(ctx, s.db.Conn(), uuid)
	if err != nil {
		return nil, err
	}
	if m.InTrash {
		return nil, cerrors.NonExistentItem(uuid)
	}

	m.Name = sanitize.Name(name)
	m.Description = sanitize.Description(description)
	m.Modified = time.Now().UTC()

	if err := s.db.UpdateMedia(ctx, s.db.Conn(), m); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadMeta returns full metadata plus the unix names of the projects the
// media appears in, split by trash state.
func (s *Service) LoadMeta(ctx context.Context, uuid string) (*models.MediaMeta, error) {
	m, err := s.db.GetMedia(ctx, s.db.Conn(), uuid)
	if err != nil {
		return nil, err
	}
	live, trash, err := s.db.ListProjectUnixNamesForMedia(ctx, s.db.Conn(), uuid)
	if err != nil {
		return nil, err
	}
	return &models.MediaMeta{
		UUID: m.UUID, Name: m.Name, UnixName: m.UnixName, Description: m.Description,
		Created: m.Created, Modified: m.Modified, Duration: m.Duration, MediaType: m.MediaType,
		LiveProjects: live, TrashProjects: trash,
	}, nil
}

// LoadThumbnail reads the thumbnail derivative and prepends the fixed
// 36-byte uuid header.
func (s *Service) LoadThumbnail(ctx context.Context, uuid string) ([]byte, error) {
	m, err := s.db.GetMedia(ctx, s.db.Conn(), uuid)
	if err != nil {
		return nil, err
	}
	path := s.layout.ThumbnailFilePath(thumbnailFilename(m.UnixName), m.InTrash)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.NonExistentItem(fmt.Sprintf("%s (thumbnail unreadable: %v)", uuid, err))
	}
	return prependUUIDHeader(uuid, data), nil
}

// LoadWaveform reads the waveform derivative and prepends the fixed
// 36-byte uuid header.
func (s *Service) LoadWaveform(ctx context.Context, uuid string) ([]byte, error) {
	m, err := s.db.GetMedia(ctx, s.db.Conn(), uuid)
	if err != nil {
		return nil, err
	}
	path := s.layout.WaveformFilePath(waveformFilename(m.UnixName), m.InTrash)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.NonExistentItem(fmt.Sprintf("%s (waveform unreadable: %v)", uuid, err))
	}
	return prependUUIDHeader(uuid, data), nil
}

func prependUUIDHeader(uuid string, data []byte) []byte {
	header := make([]byte, uuidHeaderSize)
	copy(header, uuid)
	return append(header, data...)
}

// Delete soft-trashes a media's thumbnail, waveform (if audio), and main
// file, then marks the row in_trash. On failure every artifact already
// moved is moved back before the error is surfaced.
func (s *Service) Delete(ctx context.Context, uuid string) error {
	m, err := s.db.GetMedia(ctx, s.db.Conn(), uuid)
	if err != nil {
		return err
	}
	if m.InTrash {
		return cerrors.NonExistentItem(uuid)
	}

	undo := newUndoStack()

	thumbSrc := s.layout.ThumbnailFilePath(thumbnailFilename(m.UnixName), false)
	if _, statErr := os.Stat(thumbSrc); statErr == nil {
		destName, err := pathmove.Move(thumbSrc, s.layout.ThumbnailTrashPath, thumbnailFilename(m.UnixName))
		if err != nil {
			return cerrors.Transient("move thumbnail to trash", err)
		}
		path := destName
		undo.push(func() {
			pathmove.Move(s.layout.ThumbnailFilePath(path, true), s.layout.ThumbnailPath, thumbnailFilename(m.UnixName))
		})
	}

	if m.MediaType == models.MediaTypeAudio {
		waveSrc := s.layout.WaveformFilePath(waveformFilename(m.UnixName), false)
		if _, statErr := os.Stat(waveSrc); statErr == nil {
			destName, err := pathmove.Move(waveSrc, s.layout.WaveformTrashPath, waveformFilename(m.UnixName))
			if err != nil {
				undo.run()
				return cerrors.Transient("move waveform to trash", err)
			}
			path := destName
			undo.push(func() {
				pathmove.Move(s.layout.WaveformFilePath(path, true), s.layout.WaveformPath, waveformFilename(m.UnixName))
			})
		}
	}

	fileSrc := s.layout.MediaFilePath(m.UnixName, false)
	if _, err := pathmove.Move(fileSrc, s.layout.TrashMediaPath, m.UnixName); err != nil {
		undo.run()
		return cerrors.Transient("move media file to trash", err)
	}
	undo.push(func() {
		pathmove.Move(s.layout.MediaFilePath(m.UnixName, true), s.layout.MediaPath, m.UnixName)
	})

	m.InTrash = true
	m.Modified = time.Now().UTC()
	if err := s.db.UpdateMedia(ctx, s.db.Conn(), m); err != nil {
		undo.run()
		return err
	}
	return nil
}

// Restore is the symmetric reverse of Delete.
func (s *Service) Restore(ctx context.Context, uuid string) error {
	m, err := s.db.GetMedia(ctx, s.db.Conn(), uuid)
	if err != nil {
		return err
	}
	if !m.InTrash {
		return cerrors.NonExistentItem(uuid)
	}

	undo := newUndoStack()

	thumbSrc := s.layout.ThumbnailFilePath(thumbnailFilename(m.UnixName), true)
	if _, statErr := os.Stat(thumbSrc); statErr == nil {
		if _, err := pathmove.Move(thumbSrc, s.layout.ThumbnailPath, thumbnailFilename(m.UnixName)); err != nil {
			return cerrors.Transient("move thumbnail from trash", err)
		}
		undo.push(func() {
			pathmove.Move(s.layout.ThumbnailFilePath(thumbnailFilename(m.UnixName), false), s.layout.ThumbnailTrashPath, thumbnailFilename(m.UnixName))
		})
	}

	if m.MediaType == models.MediaTypeAudio {
		waveSrc := s.layout.WaveformFilePath(waveformFilename(m.UnixName), true)
		if _, statErr := os.Stat(waveSrc); statErr == nil {
			if _, err := pathmove.Move(waveSrc, s.layout.WaveformPath, waveformFilename(m.UnixName)); err != nil {
				undo.run()
				return cerrors.Transient("move waveform from trash", err)
			}
			undo.push(func() {
				pathmove.Move(s.layout.WaveformFilePath(waveformFilename(m.UnixName), false), s.layout.WaveformTrashPath, waveformFilename(m.UnixName))
			})
		}
	}

	fileSrc := s.layout.MediaFilePath(m.UnixName, true)
	if _, err := pathmove.Move(fileSrc, s.layout.MediaPath, m.UnixName); err != nil {
		undo.run()
		return cerrors.Transient("move media file from trash", err)
	}
	undo.push(func() {
		pathmove.Move(s.layout.MediaFilePath(m.UnixName, false), s.layout.TrashMediaPath, m.UnixName)
	})

	m.InTrash = false
	m.Modified = time.Now().UTC()
	if err := s.db.UpdateMedia(ctx, s.db.Conn(), m); err != nil {
		undo.run()
		return err
	}
	return nil
}

// Purge permanently deletes a trashed media's row (cascading edges) and
// its trash-side files.
func (s *Service) Purge(ctx context.Context, uuid string) error {
	m, err := s.db.GetMedia(ctx, s.db.Conn(), uuid)
	if err != nil {
		return err
	}
	if !m.InTrash {
		return cerrors.NonExistentItem(uuid)
	}

	if err := s.db.DeleteMedia(ctx, s.db.Conn(), uuid); err != nil {
		return err
	}

	thumbPath := s.layout.ThumbnailFilePath(thumbnailFilename(m.UnixName), true)
	if err := os.Remove(thumbPath); err != nil && !os.IsNotExist(err) {
		return cerrors.Transient("remove trashed thumbnail", err)
	}
	if m.MediaType == models.MediaTypeAudio {
		wavePath := s.layout.WaveformFilePath(waveformFilename(m.UnixName), true)
		if err := os.Remove(wavePath); err != nil && !os.IsNotExist(err) {
			return cerrors.Transient("remove trashed waveform", err)
		}
	}
	filePath := s.layout.MediaFilePath(m.UnixName, true)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return cerrors.Transient("remove trashed media file", err)
	}
	return nil
}
