// Package library defines the canonical on-disk layout of a cuems library
// root and creates it on first run.
package library

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	projectFolderName   = "projects"
	mediaFolderName     = "media"
	trashFolderName     = "trash"
	thumbnailFolderName = "thumbnail"
	waveformFolderName  = "waveform"

	// ScriptFileName is the cue-script filename inside a project directory.
	ScriptFileName = "script.xml"
)

// Layout resolves every directory the media/project packages read and
// write under a single library root.
type Layout struct {
	Root string

	ProjectsPath string
	MediaPath    string

	TrashProjectsPath string
	TrashMediaPath    string

	ThumbnailPath      string
	WaveformPath       string
	ThumbnailTrashPath string
	WaveformTrashPath  string
}

// NewLayout resolves the Layout for a library root without creating
// anything on disk.
func NewLayout(root string) *Layout {
	projectsPath := filepath.Join(root, projectFolderName)
	mediaPath := filepath.Join(root, mediaFolderName)
	trashProjects := filepath.Join(root, trashFolderName, projectFolderName)
	trashMedia := filepath.Join(root, trashFolderName, mediaFolderName)

	return &Layout{
		Root:               root,
		ProjectsPath:       projectsPath,
		MediaPath:          mediaPath,
		TrashProjectsPath:  trashProjects,
		TrashMediaPath:     trashMedia,
		ThumbnailPath:      filepath.Join(mediaPath, thumbnailFolderName),
		WaveformPath:       filepath.Join(mediaPath, waveformFolderName),
		ThumbnailTrashPath: filepath.Join(trashMedia, thumbnailFolderName),
		WaveformTrashPath:  filepath.Join(trashMedia, waveformFolderName),
	}
}

// Bootstrap creates every directory in the layout, idempotently.
func (l *Layout) Bootstrap() error {
	dirs := []string{
		l.ProjectsPath,
		l.MediaPath,
		l.TrashProjectsPath,
		l.TrashMediaPath,
		l.ThumbnailPath,
		l.WaveformPath,
		l.ThumbnailTrashPath,
		l.WaveformTrashPath,
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("library: bootstrap %s: %w", d, err)
		}
	}
	return nil
}

// ProjectDir returns the path to a project's directory, in or out of trash.
func (l *Layout) ProjectDir(unixName string, inTrash bool) string {
	if inTrash {
		return filepath.Join(l.TrashProjectsPath, unixName)
	}
	return filepath.Join(l.ProjectsPath, unixName)
}

// ScriptPath returns the path to a project's cue script.
func (l *Layout) ScriptPath(unixName string, inTrash bool) string {
	return filepath.Join(l.ProjectDir(unixName, inTrash), ScriptFileName)
}

// MediaFilePath returns the path to a media asset's primary file.
func (l *Layout) MediaFilePath(filename string, inTrash bool) string {
	if inTrash {
		return filepath.Join(l.TrashMediaPath, filename)
	}
	return filepath.Join(l.MediaPath, filename)
}

// ThumbnailFilePath returns the path to a media asset's thumbnail.
func (l *Layout) ThumbnailFilePath(filename string, inTrash bool) string {
	if inTrash {
		return filepath.Join(l.ThumbnailTrashPath, filename)
	}
	return filepath.Join(l.ThumbnailPath, filename)
}

// WaveformFilePath returns the path to a media asset's waveform.
func (l *Layout) WaveformFilePath(filename string, inTrash bool) string {
	if inTrash {
		return filepath.Join(l.WaveformTrashPath, filename)
	}
	return filepath.Join(l.WaveformPath, filename)
}
