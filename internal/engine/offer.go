package engine

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/cscoin/carshare/internal/geo"
	"github.com/cscoin/carshare/internal/models"
)

// OfferParams carries the fields of an offer. PriceForKm and PriceForTime
// are zero when unset; at least one must be set.
type OfferParams struct {
	CarLicensePlate string
	PriceForKm      int
	PriceForTime    int
	StartDate       int64
	EndDate         int64
	Deposit         int
	StartPlace      string
	EndPlaces       []string
}

func (p OfferParams) validate() error {
	switch {
	case p.PriceForKm == 0 && p.PriceForTime == 0:
		return fmt.Errorf("%w: a price for km or for time is required", ErrValidation)
	case p.PriceForKm < 0 || p.PriceForTime < 0:
		return fmt.Errorf("%w: prices must be positive", ErrValidation)
	case p.StartDate == 0:
		return fmt.Errorf("%w: start date is required", ErrValidation)
	case p.EndDate == 0:
		return fmt.Errorf("%w: end date is required", ErrValidation)
	case p.Deposit <= 0:
		return fmt.Errorf("%w: deposit must be greater than zero", ErrValidation)
	case p.StartPlace == "":
		return fmt.Errorf("%w: start place is required", ErrValidation)
	case p.StartDate >= p.EndDate:
		return fmt.Errorf("%w: end date must be later than start date", ErrValidation)
	}
	if _, _, err := geo.ParseCoordinate(p.StartPlace); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	for _, place := range p.EndPlaces {
		if _, _, err := geo.ParseCoordinate(place); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	return nil
}

// CreateOffer publishes an offer for the caller's car. The car record is
// snapshotted by value into the offer.
func (e *Engine) CreateOffer(ctx context.Context, callerID string, p OfferParams) (*models.Offer, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.StartDate < nowMillis() {
		return nil, fmt.Errorf("%w: start date must be later than now", ErrValidation)
	}
	car, err := e.readCar(ctx, p.CarLicensePlate)
	if err != nil {
		return nil, err
	}
	if !car.NotDeleted {
		return nil, fmt.Errorf("%w: cannot create an offer with a deleted car", ErrConflict)
	}
	if car.OwnerID != callerID {
		return nil, fmt.Errorf("%w: you must be the car owner to add it to an offer", ErrForbidden)
	}

	offer := &models.Offer{
		DocType:      models.DocTypeOffer,
		ID:           generateID(car.CarLicensePlate),
		Car:          *car,
		PriceForKm:   p.PriceForKm,
		PriceForTime: p.PriceForTime,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		Deposit:      p.Deposit,
		StartPlace:   p.StartPlace,
		EndPlaces:    append([]string{}, p.EndPlaces...),
		Available:    true,
	}
	if err := e.store.Put(ctx, offer.ID, offer); err != nil {
		return nil, err
	}
	return offer, nil
}

// UpdateOffer overwrites an offer's mutable fields. Dates are not
// re-validated against the current time, so an edit may move them into
// the past.
func (e *Engine) UpdateOffer(ctx context.Context, callerID, offerID string, p OfferParams) (*models.Offer, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	car, err := e.readCar(ctx, p.CarLicensePlate)
	if err != nil {
		return nil, err
	}
	offer, err := e.readOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if car.OwnerID != callerID || offer.Car.OwnerID != callerID {
		return nil, fmt.Errorf("%w: you must be the car owner to edit this offer", ErrForbidden)
	}

	offer.Car = *car
	offer.PriceForKm = p.PriceForKm
	offer.PriceForTime = p.PriceForTime
	offer.StartDate = p.StartDate
	offer.EndDate = p.EndDate
	offer.Deposit = p.Deposit
	offer.StartPlace = p.StartPlace
	offer.EndPlaces = append([]string{}, p.EndPlaces...)
	if err := e.store.Put(ctx, offer.ID, offer); err != nil {
		return nil, err
	}
	return offer, nil
}

// FindOffer returns one offer by id.
func (e *Engine) FindOffer(ctx context.Context, offerID string) (*models.Offer, error) {
	return e.readOffer(ctx, offerID)
}

// ListOffers returns offers with at least seats car seats, optionally
// filtered by proximity of the offer's start place and end places.
func (e *Engine) ListOffers(ctx context.Context, seats int, startCoordinate, endCoordinate string, limitKm float64) ([]models.Offer, error) {
	selector := bson.M{"docType": models.DocTypeOffer}
	if seats > 0 {
		selector["car.seats"] = bson.M{"$gte": seats}
	}
	var offers []models.Offer
	if err := e.store.Query(ctx, selector, &offers); err != nil {
		return nil, err
	}
	if (startCoordinate != "" || endCoordinate != "") && limitKm > 0 {
		return FilterOffersByLimit(offers, startCoordinate, endCoordinate, limitKm)
	}
	return offers, nil
}

// FilterOffersByLimit keeps offers whose start place lies within limitKm
// of startCoordinate and/or with at least one end place within limitKm of
// endCoordinate. With both bounds the result is the intersection.
func FilterOffersByLimit(offers []models.Offer, startCoordinate, endCoordinate string, limitKm float64) ([]models.Offer, error) {
	result := make([]models.Offer, 0, len(offers))
	for _, offer := range offers {
		if startCoordinate != "" {
			ok, err := geo.WithinLimit(startCoordinate, offer.StartPlace, limitKm)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrValidation, err)
			}
			if !ok {
				continue
			}
		}
		if endCoordinate != "" {
			anyEnd := false
			for _, place := range offer.EndPlaces {
				ok, err := geo.WithinLimit(endCoordinate, place, limitKm)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrValidation, err)
				}
				if ok {
					anyEnd = true
					break
				}
			}
			if !anyEnd {
				continue
			}
		}
		result = append(result, offer)
	}
	return result, nil
}

// EditAvailability toggles an offer's availability. Owner only, and only
// while no travel on the offer is still unfinished.
func (e *Engine) EditAvailability(ctx context.Context, callerID, offerID string, available bool) (*models.Offer, error) {
	offer, err := e.readOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.Car.OwnerID != callerID {
		return nil, fmt.Errorf("%w: you cannot edit the availability of this offer", ErrForbidden)
	}
	travels, err := e.findTravelsByOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	for _, t := range travels {
		if t.RealFinalDate == 0 && !t.Deleted {
			return nil, fmt.Errorf("%w: you cannot edit the availability of an offer with pending travels", ErrConflict)
		}
	}
	offer.Available = available
	if err := e.store.Put(ctx, offer.ID, offer); err != nil {
		return nil, err
	}
	return offer, nil
}

func (e *Engine) findTravelsByOffer(ctx context.Context, offerID string) ([]models.Travel, error) {
	var travels []models.Travel
	selector := bson.M{"docType": models.DocTypeTravel, "offerId": offerID}
	if err := e.store.Query(ctx, selector, &travels); err != nil {
		return nil, err
	}
	return travels, nil
}
