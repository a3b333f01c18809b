package session

import (
	"context"
	"fmt"

	"github.com/stagelab/cuems-core/internal/cerrors"
	"github.com/stagelab/cuems-core/internal/models"
	"github.com/stagelab/cuems-core/internal/project"
	"github.com/stagelab/cuems-core/internal/script"
	"github.com/stagelab/cuems-core/internal/validation"
	"github.com/stagelab/cuems-core/internal/wsproto"
)

// actionHandler implements one row of section 4.8's action surface table.
type actionHandler func(ctx context.Context, s *Session, in wsproto.Inbound)

// actionTable is the tagged-variant dispatcher design note 9 calls for:
// a single table from known action string to handler, so an unknown
// action is a table miss rather than a dynamic-dispatch fallthrough.
var actionTable = map[string]actionHandler{
	"project_list":         handleProjectList,
	"project_trash_list":   handleProjectTrashList,
	"project_load":         handleProjectLoad,
	"project_save":         handleProjectSave,
	"project_duplicate":    handleProjectDuplicate,
	"project_delete":       handleProjectDelete,
	"project_restore":      handleProjectRestore,
	"project_trash_delete": handleProjectTrashDelete,
	"file_list":            handleFileList,
	"file_trash_list":      handleFileTrashList,
	"file_save":            handleFileSave,
	"file_load_meta":       handleFileLoadMeta,
	"file_load_thumbnail":  handleFileLoadThumbnail,
	"file_load_waveform":   handleFileLoadWaveform,
	"file_delete":          handleFileDelete,
	"file_restore":         handleFileRestore,
	"file_trash_delete":    handleFileTrashDelete,
	"project_ready":        handleProjectReady,
	"project_deploy":       handleProjectDeploy,
	"hw_discovery":         handleHwDiscovery,
}

// dispatch decodes one inbound frame and invokes the handler for its
// action. A session-level decode failure (malformed JSON, missing or
// unknown action) yields the same {type:"error", ...} shape a
// handler-level failure would.
func (s *Session) dispatch(ctx context.Context, data []byte) {
	in, err := wsproto.DecodeInbound(data)
	if err != nil {
		s.Send(wsproto.Error("", "", "error decoding json", false))
		return
	}
	if in.Action == "" {
		s.Send(wsproto.Error("", "", "unsupported event: missing action", false))
		return
	}

	handler, ok := actionTable[in.Action]
	if !ok {
		s.Send(wsproto.Error(in.Action, "", fmt.Sprintf("unsupported action: %s", in.Action), false))
		return
	}
	handler(ctx, s, in)
}

func replyErr(s *Session, action, uuid string, err error) {
	s.Send(wsproto.Error(action, uuid, err.Error(), false))
}

func handleProjectList(ctx context.Context, s *Session, in wsproto.Inbound) {
	err := s.svc.Pool.Run(ctx, func() error {
		list, err := s.svc.Projects.List(ctx)
		if err != nil {
			return err
		}
		s.Send(wsproto.Reply(in.Action, list))
		return nil
	})
	if err != nil {
		replyErr(s, in.Action, "", err)
	}
}

func handleProjectTrashList(ctx context.Context, s *Session, in wsproto.Inbound) {
	err := s.svc.Pool.Run(ctx, func() error {
		list, err := s.svc.Projects.ListTrash(ctx)
		if err != nil {
			return err
		}
		s.Send(wsproto.Reply(in.Action, list))
		return nil
	})
	if err != nil {
		replyErr(s, in.Action, "", err)
	}
}

func handleProjectLoad(ctx context.Context, s *Session, in wsproto.Inbound) {
	var uuid string
	if err := in.Into(&uuid); err != nil {
		replyErr(s, in.Action, "", err)
		return
	}
	if uuid == "" {
		replyErr(s, in.Action, uuid, cerrors.NonExistentItem("project uuid is empty"))
		return
	}
	err := s.svc.Pool.Run(ctx, func() error {
		doc, err := s.svc.Projects.Load(ctx, uuid)
		if err != nil {
			return err
		}
		s.Send(wsproto.Reply(in.Action, doc))
		return nil
	})
	if err != nil {
		replyErr(s, in.Action, uuid, err)
		return
	}
	s.hub.SetLoadedProject(s.ID, uuid)
}

// projectSavePayload is the wire shape of a project_save value: the
// client's in-memory script wrapped under a CuemsScript key. An empty
// uuid means "create"; present means "update" (section 4.6).
type projectSavePayload struct {
	CuemsScript script.Document `json:"CuemsScript"`
}

// projectNameFields carries the same Name/Description bounds as
// models.Project, checked against a project_save payload before it
// reaches New/Update. UUID is intentionally absent: a create has none yet.
type projectNameFields struct {
	Name        string `validate:"required,max=255"`
	Description string `validate:"max=65535"`
}

func handleProjectSave(ctx context.Context, s *Session, in wsproto.Inbound) {
	var payload projectSavePayload
	if err := in.Into(&payload); err != nil {
		replyErr(s, in.Action, "", err)
		return
	}
	doc := payload.CuemsScript

	if verr := validation.ValidateStruct(&projectNameFields{Name: doc.Name, Description: doc.Description}); verr != nil {
		replyErr(s, in.Action, doc.UUID, verr)
		return
	}

	var projectUUID string
	err := s.svc.Pool.Run(ctx, func() error {
		if doc.UUID == "" {
			p, err := s.svc.Projects.New(ctx, project.ProjectInput{
				UnixName: doc.Name, Name: doc.Name, Description: doc.Description, Doc: &doc,
			})
			if err != nil {
				return err
			}
			projectUUID = p.UUID
			return nil
		}
		projectUUID = doc.UUID
		_, err := s.svc.Projects.Update(ctx, doc.UUID, project.ProjectInput{
			Name: doc.Name, Description: doc.Description, Doc: &doc,
		})
		return err
	})
	if err != nil {
		replyErr(s, "project_save", projectUUID, err)
		return
	}

	s.Send(wsproto.Reply(in.Action, projectUUID))
	s.hub.SetLoadedProject(s.ID, projectUUID)
	s.hub.BroadcastListUpdate(s, "project_list")
	s.hub.BroadcastProjectUpdate(s, projectUUID)
}

func handleProjectDuplicate(ctx context.Context, s *Session, in wsproto.Inbound) {
	var uuid string
	if err := in.Into(&uuid); err != nil {
		replyErr(s, in.Action, "", err)
		return
	}
	var newUUID string
	err := s.svc.Pool.Run(ctx, func() error {
		var err error
		newUUID, err = s.svc.Projects.Duplicate(ctx, uuid)
		return err
	})
	if err != nil {
		replyErr(s, in.Action, uuid, err)
		return
	}
	s.Send(wsproto.Reply(in.Action, map[string]string{"uuid": uuid, "new_uuid": newUUID}))
	s.hub.BroadcastListUpdate(s, "project_list")
	s.hub.BroadcastListUpdate(s, "file_list")
}

// mutateProject runs op against uuid (decoded from in.Value), replies
// with uuid on success, and fans out the broadcasts the original action
// calls for: a project_update to sessions sharing uuid (if
// broadcastProjectUpdate) plus a list_update per list in lists.
func mutateProject(ctx context.Context, s *Session, in wsproto.Inbound, op func(context.Context, string) error, broadcastProjectUpdate bool, lists ...string) {
	var uuid string
	if err := in.Into(&uuid); err != nil {
		replyErr(s, in.Action, "", err)
		return
	}
	if err := s.svc.Pool.Run(ctx, func() error { return op(ctx, uuid) }); err != nil {
		replyErr(s, in.Action, uuid, err)
		return
	}
	s.Send(wsproto.Reply(in.Action, uuid))
	if broadcastProjectUpdate {
		s.hub.BroadcastProjectUpdate(s, uuid)
	}
	for _, l := range lists {
		s.hub.BroadcastListUpdate(s, l)
	}
}

func handleProjectDelete(ctx context.Context, s *Session, in wsproto.Inbound) {
	mutateProject(ctx, s, in, s.svc.Projects.Delete, true, "project_list", "project_trash_list")
}

func handleProjectRestore(ctx context.Context, s *Session, in wsproto.Inbound) {
	mutateProject(ctx, s, in, s.svc.Projects.Restore, false, "project_list", "project_trash_list")
}

func handleProjectTrashDelete(ctx context.Context, s *Session, in wsproto.Inbound) {
	mutateProject(ctx, s, in, s.svc.Projects.Purge, false, "project_trash_list")
}

func handleFileList(ctx context.Context, s *Session, in wsproto.Inbound) {
	err := s.svc.Pool.Run(ctx, func() error {
		list, err := s.svc.Media.List(ctx)
		if err != nil {
			return err
		}
		s.Send(wsproto.Reply(in.Action, list))
		return nil
	})
	if err != nil {
		replyErr(s, in.Action, "", err)
	}
}

func handleFileTrashList(ctx context.Context, s *Session, in wsproto.Inbound) {
	err := s.svc.Pool.Run(ctx, func() error {
		list, err := s.svc.Media.ListTrash(ctx)
		if err != nil {
			return err
		}
		s.Send(wsproto.Reply(in.Action, list))
		return nil
	})
	if err != nil {
		replyErr(s, in.Action, "", err)
	}
}

func handleFileSave(ctx context.Context, s *Session, in wsproto.Inbound) {
	var req models.MediaSaveRequest
	if err := in.Into(&req); err != nil {
		replyErr(s, in.Action, "", err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		replyErr(s, in.Action, req.UUID, verr)
		return
	}
	err := s.svc.Pool.Run(ctx, func() error {
		_, err := s.svc.Media.Update(ctx, req.UUID, req.Name, req.Description)
		return err
	})
	if err != nil {
		replyErr(s, in.Action, req.UUID, err)
		return
	}
	s.Send(wsproto.Reply(in.Action, req.UUID))
}

func handleFileLoadMeta(ctx context.Context, s *Session, in wsproto.Inbound) {
	var uuid string
	if err := in.Into(&uuid); err != nil {
		replyErr(s, in.Action, "", err)
		return
	}
	err := s.svc.Pool.Run(ctx, func() error {
		meta, err := s.svc.Media.LoadMeta(ctx, uuid)
		if err != nil {
			return err
		}
		s.Send(wsproto.Reply(in.Action, meta))
		return nil
	})
	if err != nil {
		replyErr(s, in.Action, uuid, err)
	}
}

// loadBinary handles file_load_thumbnail/file_load_waveform: the reply
// is a binary frame (uuid-header-prefixed payload), not a JSON reply.
func loadBinary(ctx context.Context, s *Session, in wsproto.Inbound, load func(context.Context, string) ([]byte, error)) {
	var uuid string
	if err := in.Into(&uuid); err != nil {
		replyErr(s, in.Action, "", err)
		return
	}
	err := s.svc.Pool.Run(ctx, func() error {
		data, err := load(ctx, uuid)
		if err != nil {
			return err
		}
		s.SendBinary(data)
		return nil
	})
	if err != nil {
		replyErr(s, in.Action, uuid, err)
	}
}

func handleFileLoadThumbnail(ctx context.Context, s *Session, in wsproto.Inbound) {
	loadBinary(ctx, s, in, s.svc.Media.LoadThumbnail)
}

func handleFileLoadWaveform(ctx context.Context, s *Session, in wsproto.Inbound) {
	loadBinary(ctx, s, in, s.svc.Media.LoadWaveform)
}

func mutateMedia(ctx context.Context, s *Session, in wsproto.Inbound, op func(context.Context, string) error, lists ...string) {
	var uuid string
	if err := in.Into(&uuid); err != nil {
		replyErr(s, in.Action, "", err)
		return
	}
	if err := s.svc.Pool.Run(ctx, func() error { return op(ctx, uuid) }); err != nil {
		replyErr(s, in.Action, uuid, err)
		return
	}
	s.Send(wsproto.Reply(in.Action, uuid))
	for _, l := range lists {
		s.hub.BroadcastListUpdate(s, l)
	}
}

func handleFileDelete(ctx context.Context, s *Session, in wsproto.Inbound) {
	mutateMedia(ctx, s, in, s.svc.Media.Delete, "file_list", "file_trash_list")
}

func handleFileRestore(ctx context.Context, s *Session, in wsproto.Inbound) {
	mutateMedia(ctx, s, in, s.svc.Media.Restore, "file_list", "file_trash_list")
}

func handleFileTrashDelete(ctx context.Context, s *Session, in wsproto.Inbound) {
	mutateMedia(ctx, s, in, s.svc.Media.Purge, "file_trash_list")
}

// engineRequest resolves uuid's project to its unix_name and forwards a
// {engineAction, action_uuid, value:unix_name} request to the playback
// engine, replying with uuid once the engine confirms.
func engineRequest(ctx context.Context, s *Session, in wsproto.Inbound, engineAction string) {
	var uuid string
	if err := in.Into(&uuid); err != nil {
		replyErr(s, in.Action, "", err)
		return
	}
	err := s.svc.Pool.Run(ctx, func() error {
		p, err := s.svc.Projects.Get(ctx, uuid)
		if err != nil {
			return err
		}
		_, err = s.svc.Engine.Call(ctx, engineAction, p.UnixName)
		return err
	})
	if err != nil {
		replyErr(s, in.Action, uuid, err)
		return
	}
	s.Send(wsproto.Reply(in.Action, uuid))
}

func handleProjectReady(ctx context.Context, s *Session, in wsproto.Inbound) {
	engineRequest(ctx, s, in, "load_project")
}

func handleProjectDeploy(ctx context.Context, s *Session, in wsproto.Inbound) {
	engineRequest(ctx, s, in, "project_deploy")
}

func handleHwDiscovery(ctx context.Context, s *Session, in wsproto.Inbound) {
	var result any
	err := s.svc.Pool.Run(ctx, func() error {
		var err error
		result, err = s.svc.Engine.Call(ctx, "hw_discovery", nil)
		return err
	})
	if err != nil {
		replyErr(s, in.Action, "", err)
		return
	}
	s.Send(wsproto.Reply(in.Action, result))
}
