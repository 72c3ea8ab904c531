package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cscoin/carshare/internal/models"
	"github.com/cscoin/carshare/internal/state"
)

var (
	// ErrValidation marks missing or malformed arguments.
	ErrValidation = errors.New("invalid argument")
	// ErrForbidden marks operations the caller is not allowed to perform.
	ErrForbidden = errors.New("operation not allowed")
	// ErrConflict marks operations that violate a business rule.
	ErrConflict = errors.New("operation conflicts with current state")
)

// SystemPrincipal is the default identity allowed to fund reward
// suggestions without a backing account.
const SystemPrincipal = "system"

// Engine executes marketplace operations against the ledger. Every
// operation is a sequence of independent single-key reads and writes;
// there is no cross-key atomicity, so entities mutated together are
// always re-persisted individually and in full.
type Engine struct {
	store  state.Store
	system string
}

// New returns an Engine over the given store. system is the principal
// treated as the platform itself; empty selects SystemPrincipal.
func New(store state.Store, system string) *Engine {
	if system == "" {
		system = SystemPrincipal
	}
	return &Engine{store: store, system: system}
}

// nowMillis is the epoch-millisecond clock all lifecycle rules use.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func (e *Engine) readUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := e.store.Get(ctx, id, &u); err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	if u.DocType != models.DocTypeUser {
		return nil, fmt.Errorf("user %s: %w", id, state.ErrNotFound)
	}
	return &u, nil
}

func (e *Engine) readCar(ctx context.Context, licensePlate string) (*models.Car, error) {
	var c models.Car
	if err := e.store.Get(ctx, licensePlate, &c); err != nil {
		return nil, fmt.Errorf("car %s: %w", licensePlate, err)
	}
	if c.DocType != models.DocTypeCar {
		return nil, fmt.Errorf("car %s: %w", licensePlate, state.ErrNotFound)
	}
	return &c, nil
}

func (e *Engine) readOffer(ctx context.Context, id string) (*models.Offer, error) {
	var o models.Offer
	if err := e.store.Get(ctx, id, &o); err != nil {
		return nil, fmt.Errorf("offer %s: %w", id, err)
	}
	if o.DocType != models.DocTypeOffer {
		return nil, fmt.Errorf("offer %s: %w", id, state.ErrNotFound)
	}
	return &o, nil
}

func (e *Engine) readTravel(ctx context.Context, id string) (*models.Travel, error) {
	var t models.Travel
	if err := e.store.Get(ctx, id, &t); err != nil {
		return nil, fmt.Errorf("travel %s: %w", id, err)
	}
	if t.DocType != models.DocTypeTravel {
		return nil, fmt.Errorf("travel %s: %w", id, state.ErrNotFound)
	}
	return &t, nil
}

// generateID builds the natural key for offers and travels. The format is
// licensePlate + creation time in milliseconds; two creations for the same
// plate inside one millisecond would collide.
func generateID(carLicensePlate string) string {
	return carLicensePlate + strconv.FormatInt(nowMillis(), 10)
}

// DeleteAsset removes a record by raw key. Authorization is the caller's
// responsibility; the HTTP layer restricts it to admins.
func (e *Engine) DeleteAsset(ctx context.Context, key string) error {
	return e.store.Delete(ctx, key)
}
