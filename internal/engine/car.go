package engine

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/cscoin/carshare/internal/models"
	"github.com/cscoin/carshare/internal/state"
)

// CarParams carries the mutable fields of a car record.
type CarParams struct {
	CarLicensePlate  string
	Brand            string
	Model            string
	Colour           string
	Seats            int
	YearOfEnrollment int
	Observations     string
}

func (p CarParams) validate() error {
	switch {
	case p.CarLicensePlate == "":
		return fmt.Errorf("%w: car license plate is required", ErrValidation)
	case p.Brand == "":
		return fmt.Errorf("%w: brand is required", ErrValidation)
	case p.Model == "":
		return fmt.Errorf("%w: model is required", ErrValidation)
	case p.Colour == "":
		return fmt.Errorf("%w: colour is required", ErrValidation)
	case p.Seats <= 0:
		return fmt.Errorf("%w: seats must be a positive number", ErrValidation)
	case p.YearOfEnrollment <= 0:
		return fmt.Errorf("%w: year of enrollment must be a positive number", ErrValidation)
	}
	return nil
}

// CreateCar lists a new car owned by the caller. A plate previously
// soft-deleted may be re-listed.
func (e *Engine) CreateCar(ctx context.Context, callerID string, p CarParams) (*models.Car, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	existing, err := e.readCar(ctx, p.CarLicensePlate)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.NotDeleted {
		return nil, fmt.Errorf("%w: car %s already exists", ErrConflict, p.CarLicensePlate)
	}

	car := &models.Car{
		DocType:          models.DocTypeCar,
		CarLicensePlate:  p.CarLicensePlate,
		Brand:            p.Brand,
		Model:            p.Model,
		Colour:           p.Colour,
		Seats:            p.Seats,
		YearOfEnrollment: p.YearOfEnrollment,
		OwnerID:          callerID,
		NotDeleted:       true,
		Status:           models.CarStatusNotChecked,
		Available:        true,
		Observations:     p.Observations,
	}
	if err := e.store.Put(ctx, car.CarLicensePlate, car); err != nil {
		return nil, err
	}
	return car, nil
}

// UpdateCar edits a car's descriptive fields. Owner only; deleted cars
// cannot be edited.
func (e *Engine) UpdateCar(ctx context.Context, callerID string, p CarParams) (*models.Car, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	car, err := e.readCar(ctx, p.CarLicensePlate)
	if err != nil {
		return nil, err
	}
	if !car.NotDeleted {
		return nil, fmt.Errorf("%w: cannot edit a deleted car", ErrConflict)
	}
	if car.OwnerID != callerID {
		return nil, fmt.Errorf("%w: only the owner can edit this car", ErrForbidden)
	}

	car.Brand = p.Brand
	car.Model = p.Model
	car.Colour = p.Colour
	car.Seats = p.Seats
	car.YearOfEnrollment = p.YearOfEnrollment
	car.Observations = p.Observations
	if err := e.store.Put(ctx, car.CarLicensePlate, car); err != nil {
		return nil, err
	}
	return car, nil
}

// DeleteCar soft-deletes a car. Blocked while any available offer still
// references the plate.
func (e *Engine) DeleteCar(ctx context.Context, callerID, carLicensePlate string) (*models.Car, error) {
	car, err := e.readCar(ctx, carLicensePlate)
	if err != nil {
		return nil, err
	}
	if car.OwnerID != callerID {
		return nil, fmt.Errorf("%w: you cannot delete a car you do not own", ErrForbidden)
	}

	var offers []models.Offer
	selector := bson.M{
		"docType":             models.DocTypeOffer,
		"available":           true,
		"car.carLicensePlate": carLicensePlate,
	}
	if err := e.store.Query(ctx, selector, &offers); err != nil {
		return nil, err
	}
	if len(offers) > 0 {
		return nil, fmt.Errorf("%w: you cannot delete a car within an offer", ErrConflict)
	}

	car.NotDeleted = false
	if err := e.store.Put(ctx, car.CarLicensePlate, car); err != nil {
		return nil, err
	}
	return car, nil
}

// FindCar returns one car by license plate.
func (e *Engine) FindCar(ctx context.Context, carLicensePlate string) (*models.Car, error) {
	return e.readCar(ctx, carLicensePlate)
}

// ListCars returns every car record.
func (e *Engine) ListCars(ctx context.Context) ([]models.Car, error) {
	var cars []models.Car
	if err := e.store.Query(ctx, bson.M{"docType": models.DocTypeCar}, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// FindCarsByOwner returns the caller's non-deleted cars.
func (e *Engine) FindCarsByOwner(ctx context.Context, callerID string) ([]models.Car, error) {
	var cars []models.Car
	selector := bson.M{
		"docType":    models.DocTypeCar,
		"ownerId":    callerID,
		"notDeleted": true,
	}
	if err := e.store.Query(ctx, selector, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}
