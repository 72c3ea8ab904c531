package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cscoin/carshare/internal/models"
)

// AccountCollection defines the interface for account database operations
type AccountCollection interface {
	InsertAccount(ctx context.Context, account models.Account) error
	FindAccountByID(ctx context.Context, id string) (*models.Account, error)
	FindAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	FindAccounts(ctx context.Context, filter bson.M) (*mongo.Cursor, error)
	UpdateAccount(ctx context.Context, id string, account models.Account) error
	DeleteAccount(ctx context.Context, id string) error
	UpdateLastLogin(ctx context.Context, id string) error
}

// MongoAccountCollection implements AccountCollection for MongoDB
type MongoAccountCollection struct {
	Collection *mongo.Collection
}

// InsertAccount inserts a new account into the database
func (c *MongoAccountCollection) InsertAccount(ctx context.Context, account models.Account) error {
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	account.IsActive = true

	_, err := c.Collection.InsertOne(ctx, account)
	return err
}

// FindAccountByID finds an account by its ID
func (c *MongoAccountCollection) FindAccountByID(ctx context.Context, id string) (*models.Account, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var account models.Account
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&account)
	if err != nil {
		return nil, err
	}

	return &account, nil
}

// FindAccountByUsername finds an account by its username
func (c *MongoAccountCollection) FindAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	err := c.Collection.FindOne(ctx, bson.M{"username": username}).Decode(&account)
	if err != nil {
		return nil, err
	}

	return &account, nil
}

// FindAccountByEmail finds an account by its email
func (c *MongoAccountCollection) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := c.Collection.FindOne(ctx, bson.M{"email": email}).Decode(&account)
	if err != nil {
		return nil, err
	}

	return &account, nil
}

// FindAccounts finds accounts with optional filtering
func (c *MongoAccountCollection) FindAccounts(ctx context.Context, filter bson.M) (*mongo.Cursor, error) {
	return c.Collection.Find(ctx, filter)
}

// UpdateAccount updates an account in the database
func (c *MongoAccountCollection) UpdateAccount(ctx context.Context, id string, account models.Account) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	account.UpdatedAt = time.Now()
	account.ID = objectID

	_, err = c.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, account)
	return err
}

// DeleteAccount deletes an account from the database
func (c *MongoAccountCollection) DeleteAccount(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	return err
}

// UpdateLastLogin updates the last login time for an account
func (c *MongoAccountCollection) UpdateLastLogin(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"last_login": now, "updated_at": now}},
	)
	return err
}
