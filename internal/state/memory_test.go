package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/cscoin/carshare/internal/models"
)

func TestMemStore_PutGetDelete(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	car := models.Car{
		DocType:         models.DocTypeCar,
		CarLicensePlate: "1234ABC",
		Brand:           "Seat",
		Seats:           4,
		NotDeleted:      true,
	}
	require.NoError(t, store.Put(ctx, car.CarLicensePlate, &car))

	exists, err := store.Exists(ctx, "1234ABC")
	require.NoError(t, err)
	assert.True(t, exists)

	var got models.Car
	require.NoError(t, store.Get(ctx, "1234ABC", &got))
	assert.Equal(t, car.Brand, got.Brand)
	assert.Equal(t, car.Seats, got.Seats)

	require.NoError(t, store.Delete(ctx, "1234ABC"))
	err = store.Get(ctx, "1234ABC", &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStore_GetReturnsSnapshot(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	user := models.NewUser("alice")
	require.NoError(t, store.Put(ctx, user.ID, user))

	var first models.User
	require.NoError(t, store.Get(ctx, "alice", &first))
	first.Bal = 999

	// Mutating the read copy must not leak into the store
	var second models.User
	require.NoError(t, store.Get(ctx, "alice", &second))
	assert.Equal(t, 0.0, second.Bal)
}

func TestMemStore_QueryEquality(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	for _, plate := range []string{"AAA", "BBB"} {
		car := models.Car{DocType: models.DocTypeCar, CarLicensePlate: plate, OwnerID: "alice", NotDeleted: true, Seats: 4}
		require.NoError(t, store.Put(ctx, plate, &car))
	}
	other := models.Car{DocType: models.DocTypeCar, CarLicensePlate: "CCC", OwnerID: "bob", NotDeleted: true, Seats: 2}
	require.NoError(t, store.Put(ctx, "CCC", &other))

	var cars []models.Car
	require.NoError(t, store.Query(ctx, bson.M{"docType": models.DocTypeCar, "ownerId": "alice"}, &cars))
	assert.Len(t, cars, 2)

	cars = nil
	require.NoError(t, store.Query(ctx, bson.M{"docType": models.DocTypeCar, "ownerId": "nobody"}, &cars))
	assert.Empty(t, cars)
}

func TestMemStore_QueryDottedPathAndGte(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	small := models.Offer{
		DocType: models.DocTypeOffer,
		ID:      "offer-small",
		Car:     models.Car{DocType: models.DocTypeCar, CarLicensePlate: "AAA", Seats: 2},
	}
	big := models.Offer{
		DocType: models.DocTypeOffer,
		ID:      "offer-big",
		Car:     models.Car{DocType: models.DocTypeCar, CarLicensePlate: "BBB", Seats: 5},
	}
	require.NoError(t, store.Put(ctx, small.ID, &small))
	require.NoError(t, store.Put(ctx, big.ID, &big))

	var offers []models.Offer
	selector := bson.M{
		"docType":   models.DocTypeOffer,
		"car.seats": bson.M{"$gte": 4},
	}
	require.NoError(t, store.Query(ctx, selector, &offers))
	require.Len(t, offers, 1)
	assert.Equal(t, "offer-big", offers[0].ID)

	// Dotted equality
	offers = nil
	require.NoError(t, store.Query(ctx, bson.M{"car.carLicensePlate": "AAA"}, &offers))
	require.Len(t, offers, 1)
	assert.Equal(t, "offer-small", offers[0].ID)
}

func TestMemStore_QueryBooleanField(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	active := models.Offer{DocType: models.DocTypeOffer, ID: "o1", Available: true}
	inactive := models.Offer{DocType: models.DocTypeOffer, ID: "o2", Available: false}
	require.NoError(t, store.Put(ctx, active.ID, &active))
	require.NoError(t, store.Put(ctx, inactive.ID, &inactive))

	var offers []models.Offer
	require.NoError(t, store.Query(ctx, bson.M{"docType": models.DocTypeOffer, "available": true}, &offers))
	require.Len(t, offers, 1)
	assert.Equal(t, "o1", offers[0].ID)
}
