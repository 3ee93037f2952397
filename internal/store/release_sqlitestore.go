package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/haatos/simple-release/internal"
)

type ReleaseSQLiteStore struct {
	rdb, rwdb *sql.DB
}

func NewReleaseSQLiteStore(rdb, rwdb *sql.DB) *ReleaseSQLiteStore {
	return &ReleaseSQLiteStore{rdb, rwdb}
}

func (store *ReleaseSQLiteStore) CreateRelease(
	ctx context.Context,
	projectID int64,
	tag string,
) (*Release, error) {
	r := &Release{
		ReleaseProjectID: projectID,
		Tag:              tag,
		Status:           StatusQueued,
	}
	query := `insert into releases (
		release_project_id,
		tag,
		status
	)
	values ($1, $2, $3)
	returning release_id, created_on`
	if err := sqlscan.Get(ctx, store.rwdb, r, query, r.ReleaseProjectID, r.Tag, r.Status); err != nil {
		return nil, err
	}
	return r, nil
}

func (store *ReleaseSQLiteStore) ReadReleaseByID(ctx context.Context, id int64) (*Release, error) {
	r := new(Release)
	query := `select * from releases where release_id = $1`
	if err := sqlscan.Get(ctx, store.rdb, r, query, id); err != nil {
		return nil, err
	}
	return r, nil
}

func (store *ReleaseSQLiteStore) UpdateReleaseStartedOn(
	ctx context.Context,
	id int64,
	startedOn time.Time,
) error {
	query := `update releases
	set status = $1,
		started_on = $2
	where release_id = $3`
	_, err := store.rwdb.ExecContext(
		ctx, query,
		StatusRunning,
		startedOn.UTC().Format(internal.DBTimestampLayout),
		id,
	)
	return err
}

func (store *ReleaseSQLiteStore) UpdateReleaseProgress(
	ctx context.Context,
	id int64,
	step int,
	message string,
) error {
	query := `update releases
	set step = $1,
		message = $2
	where release_id = $3`
	_, err := store.rwdb.ExecContext(ctx, query, step, message, id)
	return err
}

func (store *ReleaseSQLiteStore) UpdateReleaseEndedOn(ctx context.Context, r *Release) error {
	var endedOn any
	if r.EndedOn != nil {
		endedOn = r.EndedOn.UTC().Format(internal.DBTimestampLayout)
	}
	query := `update releases
	set status = $1,
		step = $2,
		message = $3,
		previous_revision = $4,
		previous_tag = $5,
		ended_on = $6
	where release_id = $7`
	_, err := store.rwdb.ExecContext(
		ctx, query,
		r.Status,
		r.Step,
		r.Message,
		r.PreviousRevision,
		r.PreviousTag,
		endedOn,
		r.ReleaseID,
	)
	return err
}

// ListProjectReleases returns the newest releases first.
func (store *ReleaseSQLiteStore) ListProjectReleases(
	ctx context.Context,
	projectID, limit int64,
) ([]*Release, error) {
	query := `select * from releases
	where release_project_id = $1
	order by created_on desc, release_id desc
	limit $2`
	releases := make([]*Release, 0)
	err := sqlscan.Select(ctx, store.rdb, &releases, query, projectID, limit)
	return releases, err
}

// FailUnfinishedReleases marks queued and running releases as failed. Queues are
// in-memory, so these cannot make progress after a restart.
func (store *ReleaseSQLiteStore) FailUnfinishedReleases(
	ctx context.Context,
	message string,
	endedOn time.Time,
) (int64, error) {
	query := `update releases
	set status = $1,
		message = $2,
		ended_on = $3
	where status in ($4, $5)`
	res, err := store.rwdb.ExecContext(
		ctx, query,
		StatusFailed,
		message,
		endedOn.UTC().Format(internal.DBTimestampLayout),
		StatusQueued,
		StatusRunning,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteReleasesBefore removes finished releases created before t.
func (store *ReleaseSQLiteStore) DeleteReleasesBefore(
	ctx context.Context,
	t time.Time,
) (int64, error) {
	query := `delete from releases
	where created_on < $1
	and status not in ($2, $3)`
	res, err := store.rwdb.ExecContext(
		ctx, query,
		t.UTC().Format(internal.DBTimestampLayout),
		StatusQueued,
		StatusRunning,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
