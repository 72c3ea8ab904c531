package engine

import (
	"context"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/cscoin/carshare/internal/geo"
	"github.com/cscoin/carshare/internal/models"
	"github.com/cscoin/carshare/internal/wallet"
)

// TravelParams carries the arguments for creating a travel.
type TravelParams struct {
	OfferID      string
	InitTime     int64
	FinishTime   int64
	Passengers   int
	Destination  string
	RentForTime  bool
	Observations string
}

// CreateTravel books an offer. The total price is escrowed into the
// travel's priceBalance and the offer deposit into its depositBalance,
// both sourced from the creator's account.
func (e *Engine) CreateTravel(ctx context.Context, callerID string, p TravelParams) (*models.Travel, error) {
	client, err := e.readUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	offer, err := e.readOffer(ctx, p.OfferID)
	if err != nil {
		return nil, err
	}

	now := nowMillis()
	switch {
	case p.InitTime < offer.StartDate:
		return nil, fmt.Errorf("%w: init time must be equal or greater than the start date of the offer", ErrValidation)
	case p.InitTime < now:
		return nil, fmt.Errorf("%w: init time must be equal or greater than now", ErrValidation)
	case p.FinishTime > offer.EndDate:
		return nil, fmt.Errorf("%w: finish time must be equal or lower than the end date of the offer", ErrValidation)
	case p.InitTime >= p.FinishTime:
		return nil, fmt.Errorf("%w: init time must be lower than finish time", ErrValidation)
	case p.Passengers <= 0:
		return nil, fmt.Errorf("%w: the number of passengers must be greater than zero", ErrValidation)
	case p.Passengers > offer.Car.Seats:
		return nil, fmt.Errorf("%w: there are no seats for all passengers", ErrConflict)
	}

	var totalPrice float64
	if p.RentForTime {
		if offer.PriceForTime == 0 {
			return nil, fmt.Errorf("%w: the offer must have a price for time", ErrValidation)
		}
		hours := float64(p.FinishTime-p.InitTime) / 1000 / 60 / 60
		totalPrice = hours * float64(offer.PriceForTime)
	} else {
		if offer.PriceForKm == 0 {
			return nil, fmt.Errorf("%w: the offer must have a price for km", ErrValidation)
		}
		if p.Destination == "" {
			return nil, fmt.Errorf("%w: destination is required", ErrValidation)
		}
		km, err := geo.Distance(offer.StartPlace, p.Destination)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		totalPrice = km * float64(offer.PriceForKm)
	}

	travel := &models.Travel{
		DocType:               models.DocTypeTravel,
		ID:                    generateID(offer.Car.CarLicensePlate),
		OfferID:               offer.ID,
		CarLicensePlate:       offer.Car.CarLicensePlate,
		Users:                 []models.TravelUser{{ClientID: callerID, Passengers: p.Passengers}},
		Origin:                offer.StartPlace,
		Destination:           p.Destination,
		InitTime:              p.InitTime,
		FinishTime:            p.FinishTime,
		SuggestedDestinations: []models.SuggestedDestination{},
		RentForTime:           p.RentForTime,
		Seats:                 offer.Car.Seats - p.Passengers,
		TotalPrice:            totalPrice,
		Observations:          p.Observations,
		Finished:              []models.FinishConfirmation{},
		CarStatus:             models.CarStatusNotChecked,
	}

	// Both escrow transfers are applied in memory before any write so an
	// insufficient balance cannot leave a half-funded travel behind.
	if err := wallet.Transfer(client, travel, travel.TotalPrice, models.FieldBalance, models.FieldPriceBalance); err != nil {
		return nil, err
	}
	if err := wallet.Transfer(client, travel, float64(offer.Deposit), models.FieldBalance, models.FieldDepositBalance); err != nil {
		return nil, err
	}
	if err := e.store.Put(ctx, client.ID, client); err != nil {
		return nil, err
	}
	if err := e.store.Put(ctx, travel.ID, travel); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"travel": travel.ID,
		"offer":  offer.ID,
		"client": callerID,
		"price":  travel.TotalPrice,
	}).Info("travel created")
	return travel, nil
}

// AddUsers joins the caller to an existing travel with the given number
// of passengers and re-splits the escrow proportionally: the joiner pays
// their full share at the new per-passenger rate and every pre-existing
// participant is refunded the delta between their old and new share.
func (e *Engine) AddUsers(ctx context.Context, callerID, travelID string, passengers int) (*models.Travel, error) {
	travel, err := e.readTravel(ctx, travelID)
	if err != nil {
		return nil, err
	}
	if travel.Deleted {
		return nil, fmt.Errorf("%w: travel %s is cancelled", ErrConflict, travelID)
	}
	offer, err := e.readOffer(ctx, travel.OfferID)
	if err != nil {
		return nil, err
	}

	oldTotal := offer.Car.Seats - travel.Seats
	oldPricePerPassenger := travel.PriceBalance / float64(oldTotal)
	oldDepositPerPassenger := travel.DepositBalance / float64(oldTotal)

	if passengers <= 0 {
		return nil, fmt.Errorf("%w: the number of passengers must be greater than zero", ErrValidation)
	}
	if passengers > travel.Seats {
		return nil, fmt.Errorf("%w: you cannot add all the passengers to the travel", ErrConflict)
	}
	if _, ok := travel.UserEntry(callerID); ok {
		return nil, fmt.Errorf("%w: the client was already added to this travel", ErrConflict)
	}
	travel.Seats -= passengers
	travel.Users = append(travel.Users, models.TravelUser{ClientID: callerID, Passengers: passengers})

	newTotal := offer.Car.Seats - travel.Seats
	newPricePerPassenger := travel.PriceBalance / float64(newTotal)
	newDepositPerPassenger := travel.DepositBalance / float64(newTotal)

	for _, user := range travel.Users {
		client, err := e.readUser(ctx, user.ClientID)
		if err != nil {
			return nil, err
		}
		if user.ClientID == callerID {
			payByTravel := newPricePerPassenger * float64(user.Passengers)
			if err := wallet.Transfer(client, travel, payByTravel, models.FieldBalance, models.FieldPriceBalance); err != nil {
				return nil, err
			}
			payByDeposit := newDepositPerPassenger * float64(user.Passengers)
			if err := wallet.Transfer(client, travel, payByDeposit, models.FieldBalance, models.FieldDepositBalance); err != nil {
				return nil, err
			}
		} else {
			paidByTravel := oldPricePerPassenger * float64(user.Passengers)
			returnByTravel := paidByTravel - newPricePerPassenger*float64(user.Passengers)
			if err := wallet.Transfer(travel, client, returnByTravel, models.FieldPriceBalance, models.FieldBalance); err != nil {
				return nil, err
			}
			paidByDeposit := oldDepositPerPassenger * float64(user.Passengers)
			returnByDeposit := paidByDeposit - newDepositPerPassenger*float64(user.Passengers)
			if err := wallet.Transfer(travel, client, returnByDeposit, models.FieldDepositBalance, models.FieldBalance); err != nil {
				return nil, err
			}
		}
		if err := e.store.Put(ctx, client.ID, client); err != nil {
			return nil, err
		}
		if err := e.store.Put(ctx, travel.ID, travel); err != nil {
			return nil, err
		}
	}
	return travel, nil
}

// Finish records the caller's confirmation that the travel ended at the
// given coordinate. When the last participant confirms, the travel's real
// final date is fixed.
func (e *Engine) Finish(ctx context.Context, callerID, travelID string, coordinate models.Coordinate) (*models.Travel, error) {
	travel, err := e.readTravel(ctx, travelID)
	if err != nil {
		return nil, err
	}
	if _, ok := travel.UserEntry(callerID); !ok {
		return nil, fmt.Errorf("%w: you cannot finish this travel", ErrForbidden)
	}
	if travel.HasFinished(callerID) {
		return nil, fmt.Errorf("%w: you have already finished this travel", ErrConflict)
	}
	if err := geo.ValidateCoordinate(coordinate); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	moment := nowMillis()
	travel.Finished = append(travel.Finished, models.FinishConfirmation{
		User:       callerID,
		Moment:     moment,
		Coordinate: coordinate,
	})
	if len(travel.Finished) == len(travel.Users) {
		travel.RealFinalDate = moment
	}
	if err := e.store.Put(ctx, travel.ID, travel); err != nil {
		return nil, err
	}
	return travel, nil
}

// CheckCar records the car condition observed by a member of the next
// travel using the same car, then settles the checked travel. It requires
// exactly two unchecked travels for the plate: the one being checked and
// the next one, ordered by init time.
func (e *Engine) CheckCar(ctx context.Context, callerID, carLicensePlate string, status models.CarStatus) (*models.Travel, error) {
	if status != models.CarStatusOk && status != models.CarStatusNotOk {
		return nil, fmt.Errorf("%w: status must be Ok or NotOk", ErrValidation)
	}
	var travels []models.Travel
	selector := bson.M{
		"docType":         models.DocTypeTravel,
		"carLicensePlate": carLicensePlate,
		"carStatus":       int(models.CarStatusNotChecked),
	}
	if err := e.store.Query(ctx, selector, &travels); err != nil {
		return nil, err
	}
	sort.Slice(travels, func(i, j int) bool { return travels[i].InitTime < travels[j].InitTime })
	if len(travels) != 2 {
		return nil, fmt.Errorf("%w: you cannot check this car", ErrConflict)
	}

	travelToCheck := travels[0]
	nextTravel := travels[1]
	if _, ok := nextTravel.UserEntry(callerID); !ok {
		return nil, fmt.Errorf("%w: you must be part of the next travel to check the car", ErrForbidden)
	}

	travelToCheck.CarStatus = status
	return e.ResolveTravel(ctx, &travelToCheck)
}

// TravelEditParams carries the post-trip fields reported for a travel.
type TravelEditParams struct {
	SuggestedDestination *models.SuggestedDestination
	Observations         string
	RealDestination      string
	KmTraveled           float64
}

// UpdateTravel records the actually driven end point and distance, and
// optionally appends a suggested destination entry verbatim.
func (e *Engine) UpdateTravel(ctx context.Context, travelID string, p TravelEditParams) (*models.Travel, error) {
	travel, err := e.readTravel(ctx, travelID)
	if err != nil {
		return nil, err
	}
	if p.KmTraveled < 0 {
		return nil, fmt.Errorf("%w: kilometers traveled must be a positive number", ErrValidation)
	}
	if p.SuggestedDestination != nil {
		travel.SuggestedDestinations = append(travel.SuggestedDestinations, *p.SuggestedDestination)
	}
	travel.Observations = p.Observations
	travel.RealDestination = p.RealDestination
	travel.KmTraveled = p.KmTraveled
	if err := e.store.Put(ctx, travel.ID, travel); err != nil {
		return nil, err
	}
	return travel, nil
}

// AddSuggestedLocation proposes an alternative end point with a reward.
// Only the car owner or the system principal may suggest, and only after
// the travel has started. If the new reward exceeds the suggester's
// previous best, the difference is escrowed into the travel's reward
// balance, funded from the owner's account or minted for the system.
func (e *Engine) AddSuggestedLocation(ctx context.Context, callerID, travelID, location string, reward int) (*models.Travel, error) {
	travel, err := e.readTravel(ctx, travelID)
	if err != nil {
		return nil, err
	}
	offer, err := e.readOffer(ctx, travel.OfferID)
	if err != nil {
		return nil, err
	}
	owner, err := e.readUser(ctx, offer.Car.OwnerID)
	if err != nil {
		return nil, err
	}

	if callerID != owner.ID && callerID != e.system {
		return nil, fmt.Errorf("%w: you do not have permissions", ErrForbidden)
	}
	if travel.InitTime >= nowMillis() {
		return nil, fmt.Errorf("%w: you cannot add a suggested destination to a travel that has not started", ErrConflict)
	}
	if reward <= 0 {
		return nil, fmt.Errorf("%w: reward must be greater than zero", ErrValidation)
	}
	if _, _, err := geo.ParseCoordinate(location); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	for _, s := range travel.SuggestedDestinations {
		if s.Destination == location {
			return nil, fmt.Errorf("%w: the suggested destination was already added to this travel", ErrConflict)
		}
	}

	// Only the increase over the caller's previous best suggestion needs
	// extra escrow.
	diff := reward
	best := 0
	for _, s := range travel.SuggestedDestinations {
		if s.SuggestedBy == callerID && s.Reward > best {
			best = s.Reward
		}
	}
	diff -= best

	if diff > 0 {
		if callerID == e.system {
			if err := wallet.TransferTo(travel, float64(diff), models.FieldRewardBalance); err != nil {
				return nil, err
			}
		} else {
			if err := wallet.Transfer(owner, travel, float64(diff), models.FieldBalance, models.FieldRewardBalance); err != nil {
				return nil, err
			}
			if err := e.store.Put(ctx, owner.ID, owner); err != nil {
				return nil, err
			}
		}
	}
	travel.SuggestedDestinations = append(travel.SuggestedDestinations, models.SuggestedDestination{
		Destination: location,
		Reward:      reward,
		SuggestedBy: callerID,
	})
	if err := e.store.Put(ctx, travel.ID, travel); err != nil {
		return nil, err
	}
	return travel, nil
}

// FindTravel returns one travel by id.
func (e *Engine) FindTravel(ctx context.Context, travelID string) (*models.Travel, error) {
	return e.readTravel(ctx, travelID)
}

// ListTravels returns shared (distance-priced) travels with at least
// seats free, optionally filtered by origin/destination proximity.
func (e *Engine) ListTravels(ctx context.Context, seats int, startCoordinate, endCoordinate string, limitKm float64) ([]models.Travel, error) {
	selector := bson.M{
		"docType":     models.DocTypeTravel,
		"rentForTime": false,
	}
	if seats > 0 {
		selector["seats"] = bson.M{"$gte": seats}
	}
	var travels []models.Travel
	if err := e.store.Query(ctx, selector, &travels); err != nil {
		return nil, err
	}
	if (startCoordinate != "" || endCoordinate != "") && limitKm > 0 {
		return FilterTravelsByLimit(travels, startCoordinate, endCoordinate, limitKm)
	}
	return travels, nil
}

// FilterTravelsByLimit keeps travels whose origin lies within limitKm of
// startCoordinate and/or whose destination lies within limitKm of
// endCoordinate.
func FilterTravelsByLimit(travels []models.Travel, startCoordinate, endCoordinate string, limitKm float64) ([]models.Travel, error) {
	result := make([]models.Travel, 0, len(travels))
	for _, travel := range travels {
		if startCoordinate != "" {
			ok, err := geo.WithinLimit(startCoordinate, travel.Origin, limitKm)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrValidation, err)
			}
			if !ok {
				continue
			}
		}
		if endCoordinate != "" {
			ok, err := geo.WithinLimit(endCoordinate, travel.Destination, limitKm)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrValidation, err)
			}
			if !ok {
				continue
			}
		}
		result = append(result, travel)
	}
	return result, nil
}
