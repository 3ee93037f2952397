package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type credentialSQLiteStoreSuite struct {
	credentialStore *CredentialSQLiteStore
	projectStore    *ProjectSQLiteStore
	db              *sql.DB
	suite.Suite
}

func TestCredentialSQLiteStore(t *testing.T) {
	suite.Run(t, new(credentialSQLiteStoreSuite))
}

func (suite *credentialSQLiteStoreSuite) SetupSuite() {
	suite.db = openTestDB()
	suite.credentialStore = NewCredentialSQLiteStore(suite.db, suite.db)
	suite.projectStore = NewProjectSQLiteStore(suite.db, suite.db)
}

func (suite *credentialSQLiteStoreSuite) TearDownSuite() {
	_ = suite.db.Close()
}

func (suite *credentialSQLiteStoreSuite) TestCredentialSQLiteStore_CreateCredential() {
	suite.Run("success - credential created", func() {
		// act
		c, err := suite.credentialStore.CreateCredential(
			context.Background(), "git", "deploy key", "hash",
		)

		// assert
		suite.NoError(err)
		suite.NotNil(c)
		suite.NotEqual(int64(0), c.CredentialID)
		suite.False(c.CreatedOn.IsZero())
		suite.Equal("git", c.Username)
		suite.Equal("deploy key", c.Description)
		suite.Equal("hash", c.SSHPrivateKeyHash)
	})
}

func (suite *credentialSQLiteStoreSuite) TestCredentialSQLiteStore_ReadCredentialByID() {
	suite.Run("success - credential found", func() {
		// arrange
		expectedCredential := suite.createCredential()

		// act
		c, err := suite.credentialStore.ReadCredentialByID(
			context.Background(),
			expectedCredential.CredentialID,
		)

		// assert
		suite.NoError(err)
		suite.NotNil(c)
		suite.Equal(expectedCredential.Username, c.Username)
		suite.Equal(expectedCredential.Description, c.Description)
		suite.Equal(expectedCredential.SSHPrivateKeyHash, c.SSHPrivateKeyHash)
	})
	suite.Run("failure - credential not found", func() {
		// act
		c, err := suite.credentialStore.ReadCredentialByID(context.Background(), 43241)

		// assert
		suite.ErrorIs(err, sql.ErrNoRows)
		suite.Nil(c)
	})
}

func (suite *credentialSQLiteStoreSuite) TestCredentialSQLiteStore_DeleteCredential() {
	suite.Run("success - credential is deleted and detached from projects", func() {
		// arrange
		credential := suite.createCredential()
		p, err := suite.projectStore.CreateProject(
			context.Background(),
			fmt.Sprintf("acme/deleted-key-%d", time.Now().UnixNano()),
			"/srv/apps/app",
			"docker-compose.yml",
			&credential.CredentialID,
		)
		suite.Require().NoError(err)

		// act
		deleteErr := suite.credentialStore.DeleteCredential(
			context.Background(),
			credential.CredentialID,
		)
		c, readErr := suite.credentialStore.ReadCredentialByID(
			context.Background(),
			credential.CredentialID,
		)
		project, projectErr := suite.projectStore.ReadProjectByID(context.Background(), p.ProjectID)

		// assert
		suite.NoError(deleteErr)
		suite.ErrorIs(readErr, sql.ErrNoRows)
		suite.Nil(c)
		suite.NoError(projectErr)
		suite.Nil(project.ProjectCredentialID)
	})
	suite.Run("failure - credential not found", func() {
		// act
		err := suite.credentialStore.DeleteCredential(context.Background(), 987654)

		// assert
		suite.ErrorIs(err, sql.ErrNoRows)
	})
}

func (suite *credentialSQLiteStoreSuite) TestCredentialSQLiteStore_ListCredentials() {
	suite.Run("success - credentials found", func() {
		// arrange
		expectedCredential := suite.createCredential()

		// act
		credentials, err := suite.credentialStore.ListCredentials(context.Background())

		// assert
		suite.NoError(err)
		suite.True(slices.ContainsFunc(credentials, func(c *Credential) bool {
			return c.CredentialID == expectedCredential.CredentialID
		}))
	})
}

func (suite *credentialSQLiteStoreSuite) createCredential() *Credential {
	c, err := suite.credentialStore.CreateCredential(
		context.Background(),
		fmt.Sprintf("testuser%d", time.Now().UTC().UnixNano()),
		fmt.Sprintf("credential%d", time.Now().UTC().UnixNano()),
		"hash",
	)
	suite.Require().NoError(err)
	return c
}
