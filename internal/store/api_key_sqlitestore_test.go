package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type apiKeySQLiteStoreSuite struct {
	apiKeyStore *APIKeySQLiteStore
	db          *sql.DB
	suite.Suite
}

func TestAPIKeySQLiteStore(t *testing.T) {
	suite.Run(t, new(apiKeySQLiteStoreSuite))
}

func (suite *apiKeySQLiteStoreSuite) SetupSuite() {
	suite.db = openTestDB()
	suite.apiKeyStore = NewAPIKeySQLiteStore(suite.db, suite.db)
}

func (suite *apiKeySQLiteStoreSuite) TearDownSuite() {
	_ = suite.db.Close()
}

func (suite *apiKeySQLiteStoreSuite) TestAPIKeySQLiteStore_CreateAndRead() {
	suite.Run("success - api key is found by id and value", func() {
		// arrange
		value := uuid.NewString()

		// act
		created, createErr := suite.apiKeyStore.CreateAPIKey(context.Background(), value)
		byID, byIDErr := suite.apiKeyStore.ReadAPIKeyByID(context.Background(), created.ID)
		byValue, byValueErr := suite.apiKeyStore.ReadAPIKeyByValue(context.Background(), value)

		// assert
		suite.NoError(createErr)
		suite.NoError(byIDErr)
		suite.NoError(byValueErr)
		suite.Equal(value, created.Value)
		suite.Equal(created.ID, byID.ID)
		suite.Equal(created.ID, byValue.ID)
	})
	suite.Run("failure - unknown value", func() {
		// act
		key, err := suite.apiKeyStore.ReadAPIKeyByValue(context.Background(), "nope")

		// assert
		suite.ErrorIs(err, sql.ErrNoRows)
		suite.Nil(key)
	})
	suite.Run("failure - duplicate value", func() {
		// arrange
		value := uuid.NewString()
		_, err := suite.apiKeyStore.CreateAPIKey(context.Background(), value)
		suite.Require().NoError(err)

		// act
		_, err = suite.apiKeyStore.CreateAPIKey(context.Background(), value)

		// assert
		suite.Error(err)
	})
}

func (suite *apiKeySQLiteStoreSuite) TestAPIKeySQLiteStore_ListCountDelete() {
	suite.Run("success - deleted key is no longer listed", func() {
		// arrange
		key, err := suite.apiKeyStore.CreateAPIKey(context.Background(), uuid.NewString())
		suite.Require().NoError(err)
		before, err := suite.apiKeyStore.CountAPIKeys(context.Background())
		suite.Require().NoError(err)

		// act
		deleteErr := suite.apiKeyStore.DeleteAPIKey(context.Background(), key.ID)
		after, countErr := suite.apiKeyStore.CountAPIKeys(context.Background())
		keys, listErr := suite.apiKeyStore.ListAPIKeys(context.Background())

		// assert
		suite.NoError(deleteErr)
		suite.NoError(countErr)
		suite.NoError(listErr)
		suite.Equal(before-1, after)
		suite.Len(keys, int(after))
		for _, k := range keys {
			suite.NotEqual(key.ID, k.ID)
		}
	})
}
