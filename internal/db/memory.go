package db

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cscoin/carshare/internal/models"
)

// ErrAccountNotFound is returned by the in-memory collection when no
// account matches.
var ErrAccountNotFound = errors.New("account not found")

// MemAccountCollection is an in-memory AccountCollection used when the
// server runs without MongoDB.
type MemAccountCollection struct {
	mu       sync.RWMutex
	accounts map[string]models.Account // keyed by hex object id
}

// NewMemAccountCollection returns an empty in-memory collection.
func NewMemAccountCollection() *MemAccountCollection {
	return &MemAccountCollection{accounts: make(map[string]models.Account)}
}

func (c *MemAccountCollection) InsertAccount(ctx context.Context, account models.Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if account.ID.IsZero() {
		account.ID = primitive.NewObjectID()
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	account.IsActive = true
	c.accounts[account.ID.Hex()] = account
	return nil
}

func (c *MemAccountCollection) FindAccountByID(ctx context.Context, id string) (*models.Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	account, ok := c.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &account, nil
}

func (c *MemAccountCollection) FindAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, account := range c.accounts {
		if account.Username == username {
			a := account
			return &a, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (c *MemAccountCollection) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, account := range c.accounts {
		if account.Email == email {
			a := account
			return &a, nil
		}
	}
	return nil, ErrAccountNotFound
}

// FindAccounts is unsupported in memory; callers needing filtered
// listings run against MongoDB.
func (c *MemAccountCollection) FindAccounts(ctx context.Context, filter bson.M) (*mongo.Cursor, error) {
	return nil, errors.New("filtered account listing requires MongoDB")
}

func (c *MemAccountCollection) UpdateAccount(ctx context.Context, id string, account models.Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.accounts[id]; !ok {
		return ErrAccountNotFound
	}
	account.UpdatedAt = time.Now()
	c.accounts[id] = account
	return nil
}

func (c *MemAccountCollection) DeleteAccount(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.accounts[id]; !ok {
		return ErrAccountNotFound
	}
	delete(c.accounts, id)
	return nil
}

func (c *MemAccountCollection) UpdateLastLogin(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	account, ok := c.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	now := time.Now()
	account.LastLogin = &now
	account.UpdatedAt = now
	c.accounts[id] = account
	return nil
}
