package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"
)

type ProjectSQLiteStore struct {
	rdb, rwdb *sql.DB
}

func NewProjectSQLiteStore(rdb, rwdb *sql.DB) *ProjectSQLiteStore {
	return &ProjectSQLiteStore{rdb, rwdb}
}

func (store *ProjectSQLiteStore) CreateProject(
	ctx context.Context,
	repository, workingPath, manifestFile string,
	credentialID *int64,
) (*Project, error) {
	p := &Project{
		Repository:          repository,
		WorkingPath:         workingPath,
		ManifestFile:        manifestFile,
		ProjectCredentialID: credentialID,
	}
	query := `insert into projects (
		repository,
		working_path,
		manifest_file,
		project_credential_id
	)
	values ($1, $2, $3, $4)
	returning project_id, created_on`
	if err := sqlscan.Get(
		ctx, store.rwdb, p, query,
		p.Repository,
		p.WorkingPath,
		p.ManifestFile,
		p.ProjectCredentialID,
	); err != nil {
		return nil, err
	}
	return p, nil
}

func (store *ProjectSQLiteStore) ReadProjectByID(ctx context.Context, id int64) (*Project, error) {
	p := new(Project)
	query := `select * from projects where project_id = $1`
	if err := sqlscan.Get(ctx, store.rdb, p, query, id); err != nil {
		return nil, err
	}
	return p, nil
}

// ReadProjectByRepository matches owner/name case-insensitively, as GitHub does.
func (store *ProjectSQLiteStore) ReadProjectByRepository(
	ctx context.Context,
	repository string,
) (*Project, error) {
	p := new(Project)
	query := `select * from projects where lower(repository) = $1`
	if err := sqlscan.Get(ctx, store.rdb, p, query, strings.ToLower(repository)); err != nil {
		return nil, err
	}
	return p, nil
}

func (store *ProjectSQLiteStore) UpdateProject(
	ctx context.Context,
	id int64,
	workingPath, manifestFile string,
	credentialID *int64,
) error {
	query := `update projects
	set working_path = $1,
		manifest_file = $2,
		project_credential_id = $3
	where project_id = $4`
	res, err := store.rwdb.ExecContext(ctx, query, workingPath, manifestFile, credentialID, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (store *ProjectSQLiteStore) DeleteProject(ctx context.Context, id int64) error {
	query := `delete from projects where project_id = $1`
	res, err := store.rwdb.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (store *ProjectSQLiteStore) ListProjects(ctx context.Context) ([]*Project, error) {
	query := `select * from projects order by repository`
	projects := make([]*Project, 0)
	err := sqlscan.Select(ctx, store.rdb, &projects, query)
	return projects, err
}
