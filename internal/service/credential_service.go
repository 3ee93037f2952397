package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/haatos/simple-release/internal/security"
	"github.com/haatos/simple-release/internal/store"
	"golang.org/x/crypto/ssh"
)

type CredentialWriter interface {
	CreateCredential(context.Context, string, string, string) (*store.Credential, error)
	DeleteCredential(context.Context, int64) error
}

type CredentialReader interface {
	ReadCredentialByID(context.Context, int64) (*store.Credential, error)
	ListCredentials(context.Context) ([]*store.Credential, error)
}

type CredentialStore interface {
	CredentialWriter
	CredentialReader
}

type CredentialService struct {
	credentialStore CredentialStore
	encrypter       security.Encrypter
}

func NewCredentialService(
	s CredentialStore,
	encrypter security.Encrypter,
) *CredentialService {
	return &CredentialService{credentialStore: s, encrypter: encrypter}
}

// CreateCredential stores an encrypted deploy key. The key must parse as an
// unencrypted SSH private key.
func (s *CredentialService) CreateCredential(
	ctx context.Context,
	username, description, sshPrivateKey string,
) (*store.Credential, error) {
	if _, err := ssh.ParsePrivateKey([]byte(sshPrivateKey)); err != nil {
		return nil, errors.Join(ErrInvalidPrivateKey, err)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = "git"
	}
	hash, err := s.encrypter.EncryptAES(sshPrivateKey)
	if err != nil {
		return nil, err
	}
	return s.credentialStore.CreateCredential(
		ctx, username, strings.TrimSpace(description), hash,
	)
}

func (s *CredentialService) GetCredentialByID(
	ctx context.Context,
	credentialID int64,
) (*store.Credential, error) {
	return s.credentialStore.ReadCredentialByID(ctx, credentialID)
}

func (s *CredentialService) ListCredentials(ctx context.Context) ([]*store.Credential, error) {
	credentials, err := s.credentialStore.ListCredentials(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return credentials, nil
}

func (s *CredentialService) DeleteCredential(ctx context.Context, credentialID int64) error {
	return s.credentialStore.DeleteCredential(ctx, credentialID)
}
