// Package project implements the project service of section 4.6: create,
// update, list, duplicate, soft-delete, restore, and purge of projects,
// keeping each project's ProjectMedia edges in sync with its script.xml.
package project

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/stagelab/cuems-core/internal/cerrors"
	"github.com/stagelab/cuems-core/internal/library"
	"github.com/stagelab/cuems-core/internal/models"
	"github.com/stagelab/cuems-core/internal/pathmove"
	"github.com/stagelab/cuems-core/internal/sanitize"
	"github.com/stagelab/cuems-core/internal/script"
	"github.com/stagelab/cuems-core/internal/store"
)

// Service implements the project operations of section 4.6.
type Service struct {
	db     *store.DB
	layout *library.Layout
	rw     script.Reader
	writer script.Writer
}

// NewService builds a project Service over the given store and library
// layout, using rw to read/write each project's script.xml.
func NewService(db *store.DB, layout *library.Layout, rw script.XMLReaderWriter) *Service {
	return &Service{db: db, layout: layout, rw: rw, writer: rw}
}

// ProjectInput is the mutable, client-supplied shape of a project create
// or update request (the rest of models.Project is server-assigned).
type ProjectInput struct {
	UnixName    string // required on New, ignored on Update
	Name        string
	Description string
	Doc         *script.Document
}

// New creates a project: sanitizes unix_name (increment-preserving),
// creates its directory, writes script.xml, and materializes one
// ProjectMedia edge per media the script references — failing if any
// referenced unix_name is not in the Media table. Any failure after
// directory creation removes the directory and rolls back the insert.
func (s *Service) New(ctx context.Context, in ProjectInput) (*models.Project, error) {
	if in.UnixName == "" {
		return nil, cerrors.FileIntegrity("unix_name is required")
	}
	unixName := sanitize.DirNamePermitIncrement(in.UnixName)

	id, err := uuid.NewUUID()
	if err != nil {
		return nil, cerrors.Transient("generate project uuid", err)
	}
	now := time.Now().UTC()

	p := &models.Project{
		UUID:        id.String(),
		Name:        sanitize.Name(in.Name),
		UnixName:    unixName,
		Description: sanitize.Description(in.Description),
		Created:     now,
		Modified:    now,
	}

	dir := s.layout.ProjectDir(unixName, false)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, cerrors.Transient("create project directory", err)
	}

	if err := s.db.CreateProject(ctx, s.db.Conn(), p); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	if err := s.materializeEdges(ctx, p.UUID, nil, in.Doc); err != nil {
		os.RemoveAll(dir)
		s.db.DeleteProject(ctx, s.db.Conn(), p.UUID)
		return nil, err
	}

	if err := s.writer.Write(s.layout.ScriptPath(unixName, false), in.Doc); err != nil {
		os.RemoveAll(dir)
		s.db.DeleteProject(ctx, s.db.Conn(), p.UUID)
		return nil, cerrors.Transient("write script.xml", err)
	}

	return p, nil
}

// Update persists name/description, bumps modified, and recomputes
// ProjectMedia edges as the symmetric difference between the project's
// current edges and the references in the new script. unix_name is
// immutable; rename is not supported.
func (s *Service) Update(ctx context.Context, projectUUID string, in ProjectInput) (*models.Project, error) {
	p, err := s.db.GetProject(ctx, s.db.Conn(), projectUUID)
	if err != nil {
		return nil, err
	}
	if p.InTrash {
		return nil, cerrors.NonExistentItem(projectUUID)
	}

	p.Name = sanitize.Name(in.Name)
	p.Description = sanitize.Description(in.Description)
	p.Modified = time.Now().UTC()

	if err := s.db.UpdateProject(ctx, s.db.Conn(), p); err != nil {
		return nil, err
	}

	oldRefs, err := s.db.ListMediaUUIDsForProject(ctx, s.db.Conn(), p.UUID)
	if err != nil {
		return nil, err
	}
	if err := s.materializeEdges(ctx, p.UUID, oldRefs, in.Doc); err != nil {
		return nil, err
	}

	if err := s.writer.Write(s.layout.ScriptPath(p.UnixName, false), in.Doc); err != nil {
		return nil, cerrors.Transient("write script.xml", err)
	}
	return p, nil
}

// Get returns the live project row, e.g. to resolve its unix_name for an
// engine handoff (project_ready/project_deploy).
func (s *Service) Get(ctx context.Context, projectUUID string) (*models.Project, error) {
	p, err := s.db.GetProject(ctx, s.db.Conn(), projectUUID)
	if err != nil {
		return nil, err
	}
	if p.InTrash {
		return nil, cerrors.NonExistentItem(projectUUID)
	}
	return p, nil
}

// Load returns the parsed script for the live project.
func (s *Service) Load(ctx context.Context, projectUUID string) (*script.Document, error) {
	p, err := s.db.GetProject(ctx, s.db.Conn(), projectUUID)
	if err != nil {
		return nil, err
	}
	if p.InTrash {
		return nil, cerrors.NonExistentItem(projectUUID)
	}
	doc, err := s.rw.Read(s.layout.ScriptPath(p.UnixName, false))
	if err != nil {
		return nil, cerrors.Transient("read script.xml", err)
	}
	return doc, nil
}

// List returns every live project with in-media counts.
func (s *Service) List(ctx context.Context) ([]models.ProjectCounts, error) {
	return s.db.ListProjectCounts(ctx, s.db.Conn(), false)
}

// ListTrash returns every trashed project with in-media counts.
func (s *Service) ListTrash(ctx context.Context) ([]models.ProjectCounts, error) {
	return s.db.ListProjectCounts(ctx, s.db.Conn(), true)
}

// materializeEdges resolves each media unix_name the script references
// against the Media table, failing if any reference does not resolve, and
// applies the add/remove sets relative to oldMediaUUIDs (pass nil to add
// every resolved edge unconditionally, as New does).
func (s *Service) materializeEdges(ctx context.Context, projectUUID string, oldMediaUUIDs []string, doc *script.Document) error {
	refs := script.MediaReferences(doc)

	wantUUIDs := make(map[string]bool, len(refs))
	for unixName := range refs {
		m, err := s.db.GetMediaByUnixName(ctx, s.db.Conn(), unixName)
		if err != nil {
			return cerrors.NonExistentItem(fmt.Sprintf("referenced media %q", unixName))
		}
		wantUUIDs[m.UUID] = true
	}

	have := make(map[string]bool, len(oldMediaUUIDs))
	for _, uuid := range oldMediaUUIDs {
		have[uuid] = true
	}

	for uuid := range have {
		if !wantUUIDs[uuid] {
			if err := s.db.RemoveProjectMedia(ctx, s.db.Conn(), projectUUID, uuid); err != nil {
				return err
			}
		}
	}
	for uuid := range wantUUIDs {
		if !have[uuid] {
			if err := s.db.AddProjectMedia(ctx, s.db.Conn(), projectUUID, uuid); err != nil {
				return err
			}
		}
	}
	return nil
}
