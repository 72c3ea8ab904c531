package wallet

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeAccount is a minimal Account over a field map.
type fakeAccount struct {
	fields map[string]float64
}

func newFakeAccount(fields map[string]float64) *fakeAccount {
	return &fakeAccount{fields: fields}
}

func (a *fakeAccount) Balance(field string) float64 {
	return a.fields[field]
}

func (a *fakeAccount) SetBalance(field string, amount float64) {
	a.fields[field] = amount
}

func TestTransfer(t *testing.T) {
	t.Run("moves the amount and conserves the total", func(t *testing.T) {
		from := newFakeAccount(map[string]float64{"balance": 100})
		to := newFakeAccount(map[string]float64{"priceBalance": 10})

		err := Transfer(from, to, 30, "balance", "priceBalance")
		assert.NoError(t, err)
		assert.InDelta(t, 70.0, from.Balance("balance"), 1e-9)
		assert.InDelta(t, 40.0, to.Balance("priceBalance"), 1e-9)
		assert.InDelta(t, 110.0, from.Balance("balance")+to.Balance("priceBalance"), 1e-9)
	})

	t.Run("insufficient balance leaves both sides untouched", func(t *testing.T) {
		from := newFakeAccount(map[string]float64{"balance": 20})
		to := newFakeAccount(map[string]float64{"balance": 5})

		err := Transfer(from, to, 30, "balance", "balance")
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.InDelta(t, 20.0, from.Balance("balance"), 1e-9)
		assert.InDelta(t, 5.0, to.Balance("balance"), 1e-9)
	})

	t.Run("zero amount is a no-op", func(t *testing.T) {
		from := newFakeAccount(map[string]float64{"balance": 0})
		to := newFakeAccount(map[string]float64{"balance": 0})

		err := Transfer(from, to, 0, "balance", "balance")
		assert.NoError(t, err)
		assert.Equal(t, 0.0, from.Balance("balance"))
		assert.Equal(t, 0.0, to.Balance("balance"))
	})

	t.Run("rejects non-finite amounts", func(t *testing.T) {
		from := newFakeAccount(map[string]float64{"balance": 100})
		to := newFakeAccount(map[string]float64{"balance": 0})

		assert.ErrorIs(t, Transfer(from, to, math.NaN(), "balance", "balance"), ErrInvalidAmount)
		assert.ErrorIs(t, Transfer(from, to, math.Inf(1), "balance", "balance"), ErrInvalidAmount)
		assert.InDelta(t, 100.0, from.Balance("balance"), 1e-9)
	})
}

func TestTransferTo(t *testing.T) {
	to := newFakeAccount(map[string]float64{"rewardBalance": 5})

	assert.NoError(t, TransferTo(to, 20, "rewardBalance"))
	assert.InDelta(t, 25.0, to.Balance("rewardBalance"), 1e-9)

	assert.NoError(t, TransferTo(to, 0, "rewardBalance"))
	assert.InDelta(t, 25.0, to.Balance("rewardBalance"), 1e-9)

	assert.ErrorIs(t, TransferTo(to, math.NaN(), "rewardBalance"), ErrInvalidAmount)
}

func TestDeleteBalanceFrom(t *testing.T) {
	from := newFakeAccount(map[string]float64{"rewardBalance": 25})

	assert.NoError(t, DeleteBalanceFrom(from, 25, "rewardBalance"))
	assert.InDelta(t, 0.0, from.Balance("rewardBalance"), 1e-9)

	assert.ErrorIs(t, DeleteBalanceFrom(from, math.Inf(-1), "rewardBalance"), ErrInvalidAmount)
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("250.5")
	assert.NoError(t, err)
	assert.InDelta(t, 250.5, v, 1e-9)

	for _, s := range []string{"", "lots", "NaN", "Inf", "-Inf", "1e999"} {
		_, err := ParseAmount(s)
		assert.ErrorIs(t, err, ErrInvalidAmount, s)
	}
}
