package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/haatos/simple-release/internal/store"
)

type UUIDGenerator interface {
	GenerateUUID() string
}

func NewUUIDGen() *UUIDGen {
	return &UUIDGen{}
}

type UUIDGen struct{}

func (ug *UUIDGen) GenerateUUID() string {
	return uuid.NewString()
}

type APIKeyStore interface {
	CreateAPIKey(context.Context, string) (*store.APIKey, error)
	ReadAPIKeyByID(context.Context, int64) (*store.APIKey, error)
	ReadAPIKeyByValue(context.Context, string) (*store.APIKey, error)
	DeleteAPIKey(context.Context, int64) error
	ListAPIKeys(context.Context) ([]*store.APIKey, error)
	CountAPIKeys(context.Context) (int64, error)
}

type APIKeyService struct {
	store         APIKeyStore
	uuidGenerator UUIDGenerator
}

func NewAPIKeyService(store APIKeyStore, uuidGenerator UUIDGenerator) *APIKeyService {
	return &APIKeyService{store, uuidGenerator}
}

func (s *APIKeyService) CreateAPIKey(ctx context.Context) (*store.APIKey, error) {
	value := s.uuidGenerator.GenerateUUID()
	return s.store.CreateAPIKey(ctx, value)
}

func (s *APIKeyService) GetAPIKeyByID(ctx context.Context, id int64) (*store.APIKey, error) {
	return s.store.ReadAPIKeyByID(ctx, id)
}

func (s *APIKeyService) DeleteAPIKey(ctx context.Context, id int64) error {
	return s.store.DeleteAPIKey(ctx, id)
}

func (s *APIKeyService) ListAPIKeys(ctx context.Context) ([]*store.APIKey, error) {
	return s.store.ListAPIKeys(ctx)
}

// Authenticate returns ErrInvalidAPIKey for empty or unknown values.
func (s *APIKeyService) Authenticate(ctx context.Context, value string) error {
	if value == "" {
		return ErrInvalidAPIKey
	}
	if _, err := s.store.ReadAPIKeyByValue(ctx, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidAPIKey
		}
		return err
	}
	return nil
}

// EnsureAPIKey creates the first key of a fresh installation. created reports
// whether a key was generated.
func (s *APIKeyService) EnsureAPIKey(ctx context.Context) (key *store.APIKey, created bool, err error) {
	count, err := s.store.CountAPIKeys(ctx)
	if err != nil {
		return nil, false, err
	}
	if count > 0 {
		return nil, false, nil
	}
	key, err = s.CreateAPIKey(ctx)
	if err != nil {
		return nil, false, err
	}
	return key, true, nil
}
