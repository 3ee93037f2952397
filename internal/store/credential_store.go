package store

import (
	"context"
	"time"
)

// Credential is a deploy key used for the authenticated clone fallback.
type Credential struct {
	CredentialID      int64     `json:"credential_id"`
	Username          string    `json:"username"`
	Description       string    `json:"description"`
	SSHPrivateKeyHash string    `json:"-"`
	CreatedOn         time.Time `json:"created_on"`
}

type CredentialStore interface {
	CreateCredential(context.Context, string, string, string) (*Credential, error)
	ReadCredentialByID(context.Context, int64) (*Credential, error)
	DeleteCredential(context.Context, int64) error
	ListCredentials(context.Context) ([]*Credential, error)
}
