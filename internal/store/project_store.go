package store

import (
	"context"
	"time"
)

// Project binds a repository to the directory and compose manifest it is
// deployed from.
type Project struct {
	ProjectID           int64     `json:"project_id"            param:"project_id"`
	Repository          string    `json:"repository"`
	WorkingPath         string    `json:"working_path"`
	ManifestFile        string    `json:"manifest_file"`
	ProjectCredentialID *int64    `json:"project_credential_id"`
	CreatedOn           time.Time `json:"created_on"`
}

type ProjectStore interface {
	CreateProject(context.Context, string, string, string, *int64) (*Project, error)
	ReadProjectByID(context.Context, int64) (*Project, error)
	ReadProjectByRepository(context.Context, string) (*Project, error)
	UpdateProject(context.Context, int64, string, string, *int64) error
	DeleteProject(context.Context, int64) error
	ListProjects(context.Context) ([]*Project, error)
}
