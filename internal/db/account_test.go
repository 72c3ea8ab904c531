package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/cscoin/carshare/internal/models"
	"github.com/cscoin/carshare/internal/state"
)

func TestMongoAccountCollection_InsertAccount(t *testing.T) {
	// Setup test database
	client, err := state.ConnectMongo()
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database("test_carshare")
	collection := db.Collection("accounts")

	// Clean up before test
	collection.Drop(context.Background())

	accountCollection := &MongoAccountCollection{Collection: collection}

	account := models.Account{
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "hashedpassword",
		Role:         models.RoleClient,
	}

	err = accountCollection.InsertAccount(context.Background(), account)
	assert.NoError(t, err)

	// Verify account was inserted
	var foundAccount models.Account
	err = collection.FindOne(context.Background(), bson.M{"username": "testuser"}).Decode(&foundAccount)
	assert.NoError(t, err)
	assert.Equal(t, account.Username, foundAccount.Username)
	assert.Equal(t, account.Email, foundAccount.Email)
	assert.Equal(t, account.Role, foundAccount.Role)
	assert.True(t, foundAccount.IsActive)
	assert.NotZero(t, foundAccount.CreatedAt)
	assert.NotZero(t, foundAccount.UpdatedAt)
}

func TestMongoAccountCollection_FindAccountByID(t *testing.T) {
	client, err := state.ConnectMongo()
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database("test_carshare")
	collection := db.Collection("accounts")
	collection.Drop(context.Background())

	accountCollection := &MongoAccountCollection{Collection: collection}

	// Insert test account
	account := models.Account{
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "hashedpassword",
		Role:         models.RoleClient,
	}

	err = accountCollection.InsertAccount(context.Background(), account)
	require.NoError(t, err)

	// Get the inserted account's ID
	var insertedAccount models.Account
	err = collection.FindOne(context.Background(), bson.M{"username": "testuser"}).Decode(&insertedAccount)
	require.NoError(t, err)

	// Find account by ID
	foundAccount, err := accountCollection.FindAccountByID(context.Background(), insertedAccount.ID.Hex())
	assert.NoError(t, err)
	assert.Equal(t, account.Username, foundAccount.Username)
	assert.Equal(t, account.Email, foundAccount.Email)

	// Test with invalid ID
	_, err = accountCollection.FindAccountByID(context.Background(), "invalid-id")
	assert.Error(t, err)
}

func TestMongoAccountCollection_FindAccountByUsername(t *testing.T) {
	client, err := state.ConnectMongo()
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database("test_carshare")
	collection := db.Collection("accounts")
	collection.Drop(context.Background())

	accountCollection := &MongoAccountCollection{Collection: collection}

	account := models.Account{
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "hashedpassword",
		Role:         models.RoleClient,
	}

	err = accountCollection.InsertAccount(context.Background(), account)
	require.NoError(t, err)

	// Find account by username
	foundAccount, err := accountCollection.FindAccountByUsername(context.Background(), "testuser")
	assert.NoError(t, err)
	assert.Equal(t, account.Username, foundAccount.Username)
	assert.Equal(t, account.Email, foundAccount.Email)

	// Test with non-existent username
	_, err = accountCollection.FindAccountByUsername(context.Background(), "nonexistent")
	assert.Error(t, err)
}

func TestMongoAccountCollection_FindAccountByEmail(t *testing.T) {
	client, err := state.ConnectMongo()
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database("test_carshare")
	collection := db.Collection("accounts")
	collection.Drop(context.Background())

	accountCollection := &MongoAccountCollection{Collection: collection}

	account := models.Account{
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "hashedpassword",
		Role:         models.RoleClient,
	}

	err = accountCollection.InsertAccount(context.Background(), account)
	require.NoError(t, err)

	// Find account by email
	foundAccount, err := accountCollection.FindAccountByEmail(context.Background(), "test@example.com")
	assert.NoError(t, err)
	assert.Equal(t, account.Username, foundAccount.Username)
	assert.Equal(t, account.Email, foundAccount.Email)

	// Test with non-existent email
	_, err = accountCollection.FindAccountByEmail(context.Background(), "nonexistent@example.com")
	assert.Error(t, err)
}

func TestMongoAccountCollection_UpdateAccount(t *testing.T) {
	client, err := state.ConnectMongo()
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database("test_carshare")
	collection := db.Collection("accounts")
	collection.Drop(context.Background())

	accountCollection := &MongoAccountCollection{Collection: collection}

	// Insert test account
	account := models.Account{
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "hashedpassword",
		Role:         models.RoleClient,
	}

	err = accountCollection.InsertAccount(context.Background(), account)
	require.NoError(t, err)

	// Get the inserted account
	var insertedAccount models.Account
	err = collection.FindOne(context.Background(), bson.M{"username": "testuser"}).Decode(&insertedAccount)
	require.NoError(t, err)

	// Update account
	updatedAccount := insertedAccount
	updatedAccount.Email = "updated@example.com"

	err = accountCollection.UpdateAccount(context.Background(), insertedAccount.ID.Hex(), updatedAccount)
	assert.NoError(t, err)

	// Verify update
	foundAccount, err := accountCollection.FindAccountByID(context.Background(), insertedAccount.ID.Hex())
	assert.NoError(t, err)
	assert.Equal(t, "updated@example.com", foundAccount.Email)
	assert.True(t, foundAccount.UpdatedAt.After(insertedAccount.UpdatedAt))
}

func TestMongoAccountCollection_DeleteAccount(t *testing.T) {
	client, err := state.ConnectMongo()
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database("test_carshare")
	collection := db.Collection("accounts")
	collection.Drop(context.Background())

	accountCollection := &MongoAccountCollection{Collection: collection}

	// Insert test account
	account := models.Account{
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "hashedpassword",
		Role:         models.RoleClient,
	}

	err = accountCollection.InsertAccount(context.Background(), account)
	require.NoError(t, err)

	// Get the inserted account
	var insertedAccount models.Account
	err = collection.FindOne(context.Background(), bson.M{"username": "testuser"}).Decode(&insertedAccount)
	require.NoError(t, err)

	// Delete account
	err = accountCollection.DeleteAccount(context.Background(), insertedAccount.ID.Hex())
	assert.NoError(t, err)

	// Verify account was deleted
	_, err = accountCollection.FindAccountByID(context.Background(), insertedAccount.ID.Hex())
	assert.Error(t, err)
}

func TestMongoAccountCollection_UpdateLastLogin(t *testing.T) {
	client, err := state.ConnectMongo()
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database("test_carshare")
	collection := db.Collection("accounts")
	collection.Drop(context.Background())

	accountCollection := &MongoAccountCollection{Collection: collection}

	// Insert test account
	account := models.Account{
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "hashedpassword",
		Role:         models.RoleClient,
	}

	err = accountCollection.InsertAccount(context.Background(), account)
	require.NoError(t, err)

	// Get the inserted account
	var insertedAccount models.Account
	err = collection.FindOne(context.Background(), bson.M{"username": "testuser"}).Decode(&insertedAccount)
	require.NoError(t, err)

	// Update last login
	err = accountCollection.UpdateLastLogin(context.Background(), insertedAccount.ID.Hex())
	assert.NoError(t, err)

	// Verify last login was updated
	updatedAccount, err := accountCollection.FindAccountByID(context.Background(), insertedAccount.ID.Hex())
	assert.NoError(t, err)
	assert.NotNil(t, updatedAccount.LastLogin)
	assert.True(t, updatedAccount.LastLogin.After(insertedAccount.CreatedAt))
}
