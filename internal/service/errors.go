package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTag        = errors.New("tag is not a valid semantic version")
	ErrInvalidAPIKey     = errors.New("invalid api key")
	ErrInvalidPrivateKey = errors.New("invalid ssh private key")
)

type ErrReleaseQueueFull struct {
	ProjectID int64
}

func (e ErrReleaseQueueFull) Error() string {
	return fmt.Sprintf("release queue of project %d is full", e.ProjectID)
}

func NewErrReleaseQueueFull(projectID int64) *ErrReleaseQueueFull {
	return &ErrReleaseQueueFull{ProjectID: projectID}
}

// InvalidProjectError reports a project definition that cannot be deployed.
type InvalidProjectError struct {
	Reason string
}

func (e InvalidProjectError) Error() string {
	return "invalid project: " + e.Reason
}
