package models

// DocTypeUser is the docType discriminator for ledger account records.
const DocTypeUser = "user"

// User is a ledger account holding the spendable balance for one caller
// identity. Travel escrow fields behave identically, so the wallet
// primitives accept either.
type User struct {
	DocType string  `bson:"docType" json:"docType"`
	ID      string  `bson:"_id" json:"id"`
	Bal     float64 `bson:"balance" json:"balance"`
}

// NewUser returns a zero-balance account for id.
func NewUser(id string) *User {
	return &User{DocType: DocTypeUser, ID: id, Bal: 0}
}

// Balance returns the named balance. Accounts carry a single field.
func (u *User) Balance(field string) float64 {
	if field == FieldBalance {
		return u.Bal
	}
	return 0
}

// SetBalance sets the named balance.
func (u *User) SetBalance(field string, amount float64) {
	if field == FieldBalance {
		u.Bal = amount
	}
}
