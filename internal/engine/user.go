package engine

import (
	"context"
	"fmt"

	"github.com/cscoin/carshare/internal/models"
	"github.com/cscoin/carshare/internal/wallet"
)

// CreateUser mints a zero-balance ledger account for id.
func (e *Engine) CreateUser(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	exists, err := e.store.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: user %s already exists", ErrConflict, id)
	}
	user := models.NewUser(id)
	if err := e.store.Put(ctx, user.ID, user); err != nil {
		return nil, err
	}
	return user, nil
}

// FindUser returns the ledger account for id.
func (e *Engine) FindUser(ctx context.Context, id string) (*models.User, error) {
	return e.readUser(ctx, id)
}

// BuyCscoin tops up a user's balance. This is an explicit single-sided
// mint; it is the only way money enters the system.
func (e *Engine) BuyCscoin(ctx context.Context, to string, amount float64) (*models.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount to transfer must be greater than zero", ErrValidation)
	}
	user, err := e.readUser(ctx, to)
	if err != nil {
		return nil, err
	}
	if err := wallet.TransferTo(user, amount, models.FieldBalance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := e.store.Put(ctx, user.ID, user); err != nil {
		return nil, err
	}
	return user, nil
}
