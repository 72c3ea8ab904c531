package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cscoin/carshare/internal/models"
)

func testOfferParams(plate string) OfferParams {
	now := time.Now().UnixMilli()
	return OfferParams{
		CarLicensePlate: plate,
		PriceForKm:      2,
		StartDate:       now + time.Hour.Milliseconds(),
		EndDate:         now + 72*time.Hour.Milliseconds(),
		Deposit:         50,
		StartPlace:      "45.2554;75.5875",
		EndPlaces:       []string{"45.2564;75.5885"},
	}
}

func TestCreateOffer(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	_, err := e.CreateCar(ctx, "owner", testCarParams("1234ABC"))
	require.NoError(t, err)

	offer, err := e.CreateOffer(ctx, "owner", testOfferParams("1234ABC"))
	require.NoError(t, err)
	assert.True(t, offer.Available)
	assert.Equal(t, "1234ABC", offer.Car.CarLicensePlate)
	assert.NotEmpty(t, offer.ID)
}

func TestCreateOffer_Validation(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	_, err := e.CreateCar(ctx, "owner", testCarParams("1234ABC"))
	require.NoError(t, err)

	p := testOfferParams("1234ABC")
	p.PriceForKm = 0
	p.PriceForTime = 0
	_, err = e.CreateOffer(ctx, "owner", p)
	assert.ErrorIs(t, err, ErrValidation)

	p = testOfferParams("1234ABC")
	p.Deposit = 0
	_, err = e.CreateOffer(ctx, "owner", p)
	assert.ErrorIs(t, err, ErrValidation)

	p = testOfferParams("1234ABC")
	p.StartDate, p.EndDate = p.EndDate, p.StartDate
	_, err = e.CreateOffer(ctx, "owner", p)
	assert.ErrorIs(t, err, ErrValidation)

	p = testOfferParams("1234ABC")
	p.StartPlace = "not a coordinate"
	_, err = e.CreateOffer(ctx, "owner", p)
	assert.ErrorIs(t, err, ErrValidation)

	p = testOfferParams("1234ABC")
	p.EndPlaces = []string{"45.1;75.1", "garbage"}
	_, err = e.CreateOffer(ctx, "owner", p)
	assert.ErrorIs(t, err, ErrValidation)

	p = testOfferParams("1234ABC")
	p.StartDate = time.Now().UnixMilli() - time.Minute.Milliseconds()
	_, err = e.CreateOffer(ctx, "owner", p)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateOffer_Ownership(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	_, err := e.CreateCar(ctx, "owner", testCarParams("1234ABC"))
	require.NoError(t, err)

	_, err = e.CreateOffer(ctx, "intruder", testOfferParams("1234ABC"))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.DeleteCar(ctx, "owner", "1234ABC")
	require.NoError(t, err)
	_, err = e.CreateOffer(ctx, "owner", testOfferParams("1234ABC"))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUpdateOffer(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	offer := seedOffer(t, e, "1234ABC", 4, 2, 0, 50)

	p := testOfferParams("1234ABC")
	p.Deposit = 75
	p.PriceForTime = 10
	updated, err := e.UpdateOffer(ctx, "owner", offer.ID, p)
	require.NoError(t, err)
	assert.Equal(t, 75, updated.Deposit)
	assert.Equal(t, 10, updated.PriceForTime)

	_, err = e.UpdateOffer(ctx, "intruder", offer.ID, p)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListOffers_SeatsFilter(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	seedOffer(t, e, "1234ABC", 2, 2, 0, 50)
	seedOffer(t, e, "5678DEF", 5, 2, 0, 50)

	offers, err := e.ListOffers(ctx, 4, "", "", 0)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, "5678DEF", offers[0].Car.CarLicensePlate)

	offers, err = e.ListOffers(ctx, 0, "", "", 0)
	require.NoError(t, err)
	assert.Len(t, offers, 2)
}

func TestFilterOffersByLimit(t *testing.T) {
	madrid := "40.4168;-3.7038"
	barcelona := "41.3874;2.1686"
	offers := []models.Offer{
		{ID: "from-madrid", StartPlace: madrid, EndPlaces: []string{barcelona}},
		{ID: "from-barcelona", StartPlace: barcelona, EndPlaces: []string{madrid}},
	}

	result, err := FilterOffersByLimit(offers, madrid, "", 1)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "from-madrid", result[0].ID)

	// Both bounds intersect
	result, err = FilterOffersByLimit(offers, madrid, barcelona, 1)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "from-madrid", result[0].ID)

	result, err = FilterOffersByLimit(offers, madrid, madrid, 1)
	require.NoError(t, err)
	assert.Empty(t, result)

	_, err = FilterOffersByLimit(offers, "garbage", "", 1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEditAvailability(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	offer := seedOffer(t, e, "1234ABC", 4, 2, 0, 50)

	_, err := e.EditAvailability(ctx, "intruder", offer.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := e.EditAvailability(ctx, "owner", offer.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Available)
}

func TestEditAvailability_PendingTravel(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	seedUser(t, e, "owner", 0)
	seedUser(t, e, "alice", 1000)
	offer := seedOffer(t, e, "1234ABC", 4, 2, 0, 50)

	now := time.Now().UnixMilli()
	travel, err := e.CreateTravel(ctx, "alice", TravelParams{
		OfferID:     offer.ID,
		InitTime:    now + 20*time.Minute.Milliseconds() + time.Hour.Milliseconds(),
		FinishTime:  now + 4*time.Hour.Milliseconds(),
		Passengers:  2,
		Destination: offer.EndPlaces[0],
	})
	require.NoError(t, err)

	_, err = e.EditAvailability(ctx, "owner", offer.ID, false)
	assert.ErrorIs(t, err, ErrConflict)

	// A cancelled travel no longer blocks the edit
	cancelled, err := e.CancelTravel(ctx, "alice", travel.ID)
	require.NoError(t, err)
	require.True(t, cancelled.Deleted)

	updated, err := e.EditAvailability(ctx, "owner", offer.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Available)
}
