// Package models defines the entities persisted in the metadata store:
// Project, Media, and the ProjectMedia edge between them.
package models

import "time"

// MediaType classifies a Media row by its file extension.
type MediaType string

const (
	MediaTypeMovie MediaType = "MOVIE"
	MediaTypeAudio MediaType = "AUDIO"
	MediaTypeImage MediaType = "IMAGE"
)

// Project is a cue script and its metadata.
type Project struct {
	UUID        string    `json:"uuid" validate:"required,uuid"`
	Name        string    `json:"name" validate:"required,max=255"`
	UnixName    string    `json:"unix_name" validate:"required,max=255"`
	Description string    `json:"description" validate:"max=65535"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
	InTrash     bool      `json:"in_trash"`
}

// ProjectCounts reports, for one project row, how many of its referenced
// media are live versus trashed. Computed by a single grouped query;
// advisory only, never affects correctness.
type ProjectCounts struct {
	Project
	LiveMediaCount  int `json:"live_media_count"`
	TrashMediaCount int `json:"trash_media_count"`
}

// Media is a library asset (movie, audio, or image file) and its metadata.
type Media struct {
	UUID        string    `json:"uuid" validate:"required,uuid"`
	Name        string    `json:"name" validate:"required,max=255"`
	UnixName    string    `json:"unix_name" validate:"required,max=255"`
	Description string    `json:"description" validate:"max=65535"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
	Duration    string    `json:"duration,omitempty"` // HH:MM:SS.mmm, absent for images
	MediaType   MediaType `json:"media_type"`
	InTrash     bool      `json:"in_trash"`
}

// MediaCounts reports, for one media row, how many projects reference it,
// split by the referencing project's trash state.
type MediaCounts struct {
	Media
	LiveProjectCount  int `json:"live_project_count"`
	TrashProjectCount int `json:"trash_project_count"`
}

// ProjectMedia is the edge table: an edge exists iff the project's script
// currently references the media's unix_name.
type ProjectMedia struct {
	ID           int64  `json:"id"`
	ProjectUUID  string `json:"project_uuid"`
	MediaUUID    string `json:"media_uuid"`
}

// MediaSaveRequest is the payload of a file_save action: only name and
// description are mutable post-ingest.
type MediaSaveRequest struct {
	UUID        string `json:"uuid" validate:"required,uuid"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=65535"`
}

// ProjectMeta is the row shape store.ListProjects returns. The
// project_list/project_trash_list actions reply with ProjectCounts instead.
type ProjectMeta struct {
	UUID     string    `json:"uuid"`
	Name     string    `json:"name"`
	UnixName string    `json:"unix_name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// MediaMeta is the row shape store.ListMedia returns and the reply of
// file_load_meta, the latter additionally populating LiveProjects and
// TrashProjects. The file_list/file_trash_list actions reply with
// MediaCounts instead.
type MediaMeta struct {
	UUID         string    `json:"uuid"`
	Name         string    `json:"name"`
	UnixName     string    `json:"unix_name"`
	Description  string    `json:"description"`
	Created      time.Time `json:"created"`
	Modified     time.Time `json:"modified"`
	Duration     string    `json:"duration,omitempty"`
	MediaType    MediaType `json:"media_type"`
	LiveProjects []string  `json:"live_projects,omitempty"`
	TrashProjects []string `json:"trash_projects,omitempty"`
}
