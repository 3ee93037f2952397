package store

import (
	"context"
	"time"
)

type ReleaseStatus string

const (
	StatusQueued         ReleaseStatus = "queued"
	StatusRunning        ReleaseStatus = "running"
	StatusFailed         ReleaseStatus = "failed"
	StatusDone           ReleaseStatus = "done"
	StatusRollbackFailed ReleaseStatus = "rollback_failed"
)

// Finished reports whether the release reached a terminal status.
func (s ReleaseStatus) Finished() bool {
	return s == StatusFailed || s == StatusDone || s == StatusRollbackFailed
}

type Release struct {
	ReleaseID        int64         `json:"release_id"         param:"release_id"`
	ReleaseProjectID int64         `json:"project_id"`
	Tag              string        `json:"tag"`
	Status           ReleaseStatus `json:"status"`
	Step             int           `json:"step"`
	Message          string        `json:"message"`
	PreviousRevision string        `json:"previous_revision"`
	PreviousTag      string        `json:"previous_tag"`
	CreatedOn        time.Time     `json:"created_on"`
	StartedOn        *time.Time    `json:"started_on"`
	EndedOn          *time.Time    `json:"ended_on"`
}

type ReleaseStore interface {
	CreateRelease(context.Context, int64, string) (*Release, error)
	ReadReleaseByID(context.Context, int64) (*Release, error)
	UpdateReleaseStartedOn(context.Context, int64, time.Time) error
	UpdateReleaseProgress(context.Context, int64, int, string) error
	UpdateReleaseEndedOn(context.Context, *Release) error
	ListProjectReleases(context.Context, int64, int64) ([]*Release, error)
	FailUnfinishedReleases(context.Context, string, time.Time) (int64, error)
	DeleteReleasesBefore(context.Context, time.Time) (int64, error)
}
