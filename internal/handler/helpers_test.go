package handler

import (
	"io"
	"math/rand"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/haatos/simple-release/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func assertHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if assert.True(t, ok, "expected *echo.HTTPError, got %T", err) {
		assert.Equal(t, code, he.Code)
	}
}

func generateProject() *store.Project {
	return &store.Project{
		ProjectID:    rand.Int63(),
		Repository:   "acme/shop",
		WorkingPath:  "apps/shop",
		ManifestFile: "docker-compose.yml",
		CreatedOn:    time.Now().UTC(),
	}
}

func generateRelease(projectID int64) *store.Release {
	return &store.Release{
		ReleaseID:        rand.Int63(),
		ReleaseProjectID: projectID,
		Tag:              "v1.2.0",
		Status:           store.StatusQueued,
		CreatedOn:        time.Now().UTC(),
	}
}

func generateCredential() *store.Credential {
	return &store.Credential{
		CredentialID: rand.Int63(),
		Username:     "git",
		Description:  "deploy key",
		CreatedOn:    time.Now().UTC(),
	}
}

func generateAPIKey() *store.APIKey {
	return &store.APIKey{
		ID:        rand.Int63(),
		Value:     uuid.NewString(),
		CreatedOn: time.Now().UTC(),
	}
}

