package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/cscoin/carshare/internal/geo"
	"github.com/cscoin/carshare/internal/models"
	"github.com/cscoin/carshare/internal/wallet"
)

const (
	// Cancellation tiers, measured as initTime minus now.
	fullRefundWindowMs      = 15 * 60 * 1000
	priceOnlyRefundWindowMs = 60 * 1000

	// destinationRangeKm is how close the real end point must be to a
	// candidate destination to count as reached.
	destinationRangeKm = 1
)

// ResolveTravel settles a checked travel: the owner is paid the price
// unless the trip finished on time, at an agreed destination and with the
// car in good condition, in which case passengers recover their deposit
// and reward shares. Reward escrowed by the owner but not claimed returns
// to the owner; unclaimed system-funded reward is burned.
func (e *Engine) ResolveTravel(ctx context.Context, travel *models.Travel) (*models.Travel, error) {
	offer, err := e.readOffer(ctx, travel.OfferID)
	if err != nil {
		return nil, err
	}
	owner, err := e.readUser(ctx, offer.Car.OwnerID)
	if err != nil {
		return nil, err
	}
	totalPassengers := offer.Car.Seats - travel.Seats
	depositPerPassenger := travel.DepositBalance / float64(totalPassengers)

	if travel.PriceBalance <= 0 {
		return nil, fmt.Errorf("%w: unable to resolve a resolved travel", ErrConflict)
	}

	penalizedByTime := travel.RealFinalDate > travel.FinishTime
	penalizedByDestination, reward, rewardToOwner, rewardToSystem := e.evaluateDestination(travel, owner.ID)
	rewardPerPassenger := float64(reward) / float64(totalPassengers)

	if err := wallet.Transfer(travel, owner, float64(rewardToOwner), models.FieldRewardBalance, models.FieldBalance); err != nil {
		return nil, err
	}
	if err := e.store.Put(ctx, travel.ID, travel); err != nil {
		return nil, err
	}
	if err := e.store.Put(ctx, owner.ID, owner); err != nil {
		return nil, err
	}

	if err := wallet.DeleteBalanceFrom(travel, float64(rewardToSystem), models.FieldRewardBalance); err != nil {
		return nil, err
	}
	if err := e.store.Put(ctx, travel.ID, travel); err != nil {
		return nil, err
	}

	if travel.CarStatus == models.CarStatusOk && !penalizedByTime && !penalizedByDestination {
		if err := wallet.Transfer(travel, owner, travel.PriceBalance, models.FieldPriceBalance, models.FieldBalance); err != nil {
			return nil, err
		}
		if err := e.store.Put(ctx, travel.ID, travel); err != nil {
			return nil, err
		}
		if err := e.store.Put(ctx, owner.ID, owner); err != nil {
			return nil, err
		}

		for _, user := range travel.Users {
			client, err := e.readUser(ctx, user.ClientID)
			if err != nil {
				return nil, err
			}
			paidByDeposit := depositPerPassenger * float64(user.Passengers)
			if err := wallet.Transfer(travel, client, paidByDeposit, models.FieldDepositBalance, models.FieldBalance); err != nil {
				return nil, err
			}
			paidByReward := rewardPerPassenger * float64(user.Passengers)
			if err := wallet.Transfer(travel, client, paidByReward, models.FieldRewardBalance, models.FieldBalance); err != nil {
				return nil, err
			}
			if err := e.store.Put(ctx, travel.ID, travel); err != nil {
				return nil, err
			}
			if err := e.store.Put(ctx, client.ID, client); err != nil {
				return nil, err
			}
		}
	} else if travel.CarStatus == models.CarStatusNotOk || penalizedByTime || penalizedByDestination {
		if !penalizedByDestination && reward > 0 {
			for _, user := range travel.Users {
				client, err := e.readUser(ctx, user.ClientID)
				if err != nil {
					return nil, err
				}
				paidByReward := rewardPerPassenger * float64(user.Passengers)
				if err := wallet.Transfer(travel, client, paidByReward, models.FieldRewardBalance, models.FieldBalance); err != nil {
					return nil, err
				}
				if err := e.store.Put(ctx, travel.ID, travel); err != nil {
					return nil, err
				}
				if err := e.store.Put(ctx, client.ID, client); err != nil {
					return nil, err
				}
			}
		}

		if err := wallet.Transfer(travel, owner, travel.PriceBalance, models.FieldPriceBalance, models.FieldBalance); err != nil {
			return nil, err
		}
		if err := wallet.Transfer(travel, owner, travel.DepositBalance, models.FieldDepositBalance, models.FieldBalance); err != nil {
			return nil, err
		}
		if err := e.store.Put(ctx, travel.ID, travel); err != nil {
			return nil, err
		}
		if err := e.store.Put(ctx, owner.ID, owner); err != nil {
			return nil, err
		}
	}

	log.WithFields(log.Fields{
		"travel":                   travel.ID,
		"car_status":               travel.CarStatus,
		"penalized_by_time":        penalizedByTime,
		"penalized_by_destination": penalizedByDestination,
	}).Info("travel resolved")
	return travel, nil
}

// evaluateDestination scans suggested destinations by reward descending
// and matches the real end point against each. It returns whether the
// travel is penalized, the claimed reward, and the unclaimed remainders
// owed back to the owner and the system respectively.
func (e *Engine) evaluateDestination(travel *models.Travel, ownerID string) (penalized bool, reward, rewardToOwner, rewardToSystem int) {
	penalized = true
	if travel.RentForTime {
		return false, 0, 0, 0
	}

	sorted := append([]models.SuggestedDestination{}, travel.SuggestedDestinations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Reward > sorted[j].Reward })

	for _, suggested := range sorted {
		if rewardToOwner == 0 && suggested.SuggestedBy == ownerID {
			rewardToOwner = suggested.Reward
		} else if rewardToSystem == 0 && suggested.SuggestedBy == e.system {
			rewardToSystem = suggested.Reward
		}

		if inDestination(suggested.Destination, travel.RealDestination) {
			penalized = false
			reward = suggested.Reward
			if suggested.SuggestedBy == ownerID {
				rewardToOwner -= reward
			} else {
				rewardToSystem -= reward
			}
			break
		}
	}

	if inDestination(travel.Destination, travel.RealDestination) {
		penalized = false
	}
	return penalized, reward, rewardToOwner, rewardToSystem
}

// inDestination reports whether realDestination lies within the agreed
// range of destination. A missing or malformed real end point never
// matches, which penalizes travels that were not reported finished
// anywhere.
func inDestination(destination, realDestination string) bool {
	ok, err := geo.WithinLimit(destination, realDestination, destinationRangeKm)
	if err != nil {
		return false
	}
	return ok
}

// CancelTravel removes the caller from a travel under the time-tiered
// refund policy. If rebalancing any remaining passenger fails on an
// insufficient balance, the whole group is cancelled instead: the store
// has no multi-key rollback, so the only safe compensation is to apply
// the same policy to everyone and retire the travel.
func (e *Engine) CancelTravel(ctx context.Context, callerID, travelID string) (*models.Travel, error) {
	travel, err := e.cancelTravel(ctx, callerID, travelID)
	if errors.Is(err, wallet.ErrInsufficientBalance) {
		log.WithFields(log.Fields{
			"travel": travelID,
			"client": callerID,
		}).Warn("rebalance failed, cancelling travel for all participants")
		return e.CancelTravelForAll(ctx, travelID)
	}
	return travel, err
}

func (e *Engine) cancelTravel(ctx context.Context, callerID, travelID string) (*models.Travel, error) {
	client, err := e.readUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
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
	entry, ok := travel.UserEntry(callerID)
	if !ok {
		return nil, fmt.Errorf("%w: you can only cancel your own trips", ErrForbidden)
	}

	timeUntilBegin := travel.InitTime - nowMillis()

	oldTotal := offer.Car.Seats - travel.Seats
	oldPricePerPassenger := travel.PriceBalance / float64(oldTotal)
	oldDepositPerPassenger := travel.DepositBalance / float64(oldTotal)

	if err := removeUser(travel, callerID); err != nil {
		return nil, err
	}
	newTotal := offer.Car.Seats - travel.Seats
	newPricePerPassenger := travel.PriceBalance / float64(newTotal)
	newDepositPerPassenger := travel.DepositBalance / float64(newTotal)

	refundByTravel := oldPricePerPassenger * float64(entry.Passengers)
	refundByDeposit := oldDepositPerPassenger * float64(entry.Passengers)

	switch {
	case timeUntilBegin >= fullRefundWindowMs:
		// Full refund; the remaining passengers take over the canceled
		// share at the new per-head rate.
		if err := e.transferAndSave(ctx, travel, client, refundByTravel, models.FieldPriceBalance, models.FieldBalance); err != nil {
			return nil, err
		}
		if err := e.transferAndSave(ctx, travel, client, refundByDeposit, models.FieldDepositBalance, models.FieldBalance); err != nil {
			return nil, err
		}

		for _, user := range travel.Users {
			remaining, err := e.readUser(ctx, user.ClientID)
			if err != nil {
				return nil, err
			}
			payByTravel := newPricePerPassenger*float64(user.Passengers) - oldPricePerPassenger*float64(user.Passengers)
			if err := e.transferAndSave(ctx, remaining, travel, payByTravel, models.FieldBalance, models.FieldPriceBalance); err != nil {
				return nil, err
			}
			payByDeposit := newDepositPerPassenger*float64(user.Passengers) - oldDepositPerPassenger*float64(user.Passengers)
			if err := e.transferAndSave(ctx, remaining, travel, payByDeposit, models.FieldBalance, models.FieldDepositBalance); err != nil {
				return nil, err
			}
		}

	case timeUntilBegin >= priceOnlyRefundWindowMs:
		// Price refunded, deposit forfeited to the owner.
		if err := e.transferAndSave(ctx, travel, client, refundByTravel, models.FieldPriceBalance, models.FieldBalance); err != nil {
			return nil, err
		}
		if err := e.transferAndSave(ctx, travel, owner, refundByDeposit, models.FieldDepositBalance, models.FieldBalance); err != nil {
			return nil, err
		}

		for _, user := range travel.Users {
			remaining, err := e.readUser(ctx, user.ClientID)
			if err != nil {
				return nil, err
			}
			payByTravel := newPricePerPassenger*float64(user.Passengers) - oldPricePerPassenger*float64(user.Passengers)
			if err := e.transferAndSave(ctx, remaining, travel, payByTravel, models.FieldBalance, models.FieldPriceBalance); err != nil {
				return nil, err
			}
		}

	default:
		// Too late: both portions forfeited to the owner.
		if err := e.transferAndSave(ctx, travel, owner, refundByTravel, models.FieldPriceBalance, models.FieldBalance); err != nil {
			return nil, err
		}
		if err := e.transferAndSave(ctx, travel, owner, refundByDeposit, models.FieldDepositBalance, models.FieldBalance); err != nil {
			return nil, err
		}
	}

	if len(travel.Users) == 0 && travel.PriceBalance == 0 && travel.DepositBalance == 0 && travel.RewardBalance == 0 {
		travel.Deleted = true
		if err := e.store.Put(ctx, travel.ID, travel); err != nil {
			return nil, err
		}
	}
	return travel, nil
}

// CancelTravelForAll applies the tiered cancellation policy to every
// remaining participant at once and retires the travel. It re-reads all
// entities, so it also serves as the compensation path after a partial
// cancellation failed.
func (e *Engine) CancelTravelForAll(ctx context.Context, travelID string) (*models.Travel, error) {
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

	timeUntilBegin := travel.InitTime - nowMillis()
	totalPassengers := offer.Car.Seats - travel.Seats
	pricePerPassenger := travel.PriceBalance / float64(totalPassengers)
	depositPerPassenger := travel.DepositBalance / float64(totalPassengers)

	switch {
	case timeUntilBegin >= fullRefundWindowMs:
		for _, user := range travel.Users {
			client, err := e.readUser(ctx, user.ClientID)
			if err != nil {
				return nil, err
			}
			paidByTravel := pricePerPassenger * float64(user.Passengers)
			paidByDeposit := depositPerPassenger * float64(user.Passengers)
			if err := wallet.Transfer(travel, client, paidByTravel, models.FieldPriceBalance, models.FieldBalance); err != nil {
				return nil, err
			}
			if err := wallet.Transfer(travel, client, paidByDeposit, models.FieldDepositBalance, models.FieldBalance); err != nil {
				return nil, err
			}
			if err := e.store.Put(ctx, client.ID, client); err != nil {
				return nil, err
			}
			if err := e.store.Put(ctx, travel.ID, travel); err != nil {
				return nil, err
			}
		}

	case timeUntilBegin >= priceOnlyRefundWindowMs:
		if err := e.transferAndSave(ctx, travel, owner, travel.DepositBalance, models.FieldDepositBalance, models.FieldBalance); err != nil {
			return nil, err
		}
		for _, user := range travel.Users {
			client, err := e.readUser(ctx, user.ClientID)
			if err != nil {
				return nil, err
			}
			paidByTravel := pricePerPassenger * float64(user.Passengers)
			if err := e.transferAndSave(ctx, travel, client, paidByTravel, models.FieldPriceBalance, models.FieldBalance); err != nil {
				return nil, err
			}
		}

	default:
		if err := wallet.Transfer(travel, owner, travel.PriceBalance, models.FieldPriceBalance, models.FieldBalance); err != nil {
			return nil, err
		}
		if err := wallet.Transfer(travel, owner, travel.DepositBalance, models.FieldDepositBalance, models.FieldBalance); err != nil {
			return nil, err
		}
		if err := e.store.Put(ctx, travel.ID, travel); err != nil {
			return nil, err
		}
		if err := e.store.Put(ctx, owner.ID, owner); err != nil {
			return nil, err
		}
	}

	travel.Deleted = true
	if err := e.store.Put(ctx, travel.ID, travel); err != nil {
		return nil, err
	}
	log.WithField("travel", travel.ID).Info("travel cancelled for all participants")
	return travel, nil
}

// transferAndSave runs one wallet transfer and persists both sides. The
// two saves are deliberate: skipping either would break conservation.
func (e *Engine) transferAndSave(ctx context.Context, from, to wallet.Account, amount float64, fromField, toField string) error {
	if err := wallet.Transfer(from, to, amount, fromField, toField); err != nil {
		return err
	}
	if err := e.store.Put(ctx, accountKey(from), from); err != nil {
		return err
	}
	return e.store.Put(ctx, accountKey(to), to)
}

func accountKey(a wallet.Account) string {
	switch v := a.(type) {
	case *models.User:
		return v.ID
	case *models.Travel:
		return v.ID
	}
	return ""
}

// removeUser takes clientID out of the travel and releases their seats.
func removeUser(travel *models.Travel, clientID string) error {
	for i, user := range travel.Users {
		if user.ClientID == clientID {
			travel.Seats += user.Passengers
			travel.Users = append(travel.Users[:i], travel.Users[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: the client is not part of this travel", ErrConflict)
}
