package project

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/stagelab/cuems-core/internal/cerrors"
	"github.com/stagelab/cuems-core/internal/pathmove"
)

// Duplicate copies a project's directory with versioned-copy collision
// avoidance, inserts a new row (new uuid, name suffixed " - Copy"), and
// materializes edges for the copy from its own script.xml. Any failure
// after the directory copy removes the new directory.
func (s *Service) Duplicate(ctx context.Context, projectUUID string) (newUUID string, err error) {
	p, err := s.db.GetProject(ctx, s.db.Conn(), projectUUID)
	if err != nil {
		return "", err
	}
	if p.InTrash {
		return "", cerrors.NonExistentItem(projectUUID)
	}

	newUnixName, err := pathmove.CopyDir(s.layout.ProjectDir(p.UnixName, false), s.layout.ProjectsPath, p.UnixName)
	if err != nil {
		return "", cerrors.Transient("copy project directory", err)
	}

	id, err := uuid.NewUUID()
	if err != nil {
		os.RemoveAll(s.layout.ProjectDir(newUnixName, false))
		return "", cerrors.Transient("generate project uuid", err)
	}

	now := time.Now().UTC()
	dup := *p
	dup.UUID = id.String()
	dup.UnixName = newUnixName
	dup.Name = p.Name + " - Copy"
	dup.Modified = now

	if err := s.db.CreateProject(ctx, s.db.Conn(), &dup); err != nil {
		os.RemoveAll(s.layout.ProjectDir(newUnixName, false))
		return "", err
	}

	doc, err := s.rw.Read(s.layout.ScriptPath(newUnixName, false))
	if err != nil {
		os.RemoveAll(s.layout.ProjectDir(newUnixName, false))
		s.db.DeleteProject(ctx, s.db.Conn(), dup.UUID)
		return "", cerrors.Transient("read duplicated script.xml", err)
	}
	if err := s.materializeEdges(ctx, dup.UUID, nil, doc); err != nil {
		os.RemoveAll(s.layout.ProjectDir(newUnixName, false))
		s.db.DeleteProject(ctx, s.db.Conn(), dup.UUID)
		return "", err
	}

	return dup.UUID, nil
}

// Delete soft-trashes a project: moves its directory to the trash
// counterpart and marks in_trash. On failure the directory move is undone.
func (s *Service) Delete(ctx context.Context, projectUUID string) error {
	p, err := s.db.GetProject(ctx, s.db.Conn(), projectUUID)
	if err != nil {
		return err
	}
	if p.InTrash {
		return cerrors.NonExistentItem(projectUUID)
	}

	destName, err := pathmove.MoveDir(s.layout.ProjectDir(p.UnixName, false), s.layout.TrashProjectsPath, p.UnixName)
	if err != nil {
		return cerrors.Transient("move project directory to trash", err)
	}

	p.InTrash = true
	p.Modified = time.Now().UTC()
	if err := s.db.UpdateProject(ctx, s.db.Conn(), p); err != nil {
		pathmove.MoveDir(s.layout.ProjectDir(destName, true), s.layout.ProjectsPath, p.UnixName)
		return err
	}
	return nil
}

// Restore is the symmetric reverse of Delete.
func (s *Service) Restore(ctx context.Context, projectUUID string) error {
	p, err := s.db.GetProject(ctx, s.db.Conn(), projectUUID)
	if err != nil {
		return err
	}
	if !p.InTrash {
		return cerrors.NonExistentItem(projectUUID)
	}

	destName, err := pathmove.MoveDir(s.layout.ProjectDir(p.UnixName, true), s.layout.ProjectsPath, p.UnixName)
	if err != nil {
		return cerrors.Transient("move project directory from trash", err)
	}

	p.InTrash = false
	p.Modified = time.Now().UTC()
	if err := s.db.UpdateProject(ctx, s.db.Conn(), p); err != nil {
		pathmove.MoveDir(s.layout.ProjectDir(destName, false), s.layout.TrashProjectsPath, p.UnixName)
		return err
	}
	return nil
}

// Purge permanently deletes a trashed project's row (cascading edges) and
// recursively removes its trash-side directory.
func (s *Service) Purge(ctx context.Context, projectUUID string) error {
	p, err := s.db.GetProject(ctx, s.db.Conn(), projectUUID)
	if err != nil {
		return err
	}
	if !p.InTrash {
		return cerrors.NonExistentItem(projectUUID)
	}

	if err := s.db.DeleteProject(ctx, s.db.Conn(), projectUUID); err != nil {
		return err
	}
	if err := os.RemoveAll(s.layout.ProjectDir(p.UnixName, true)); err != nil {
		return cerrors.Transient("remove trashed project directory", err)
	}
	return nil
}
