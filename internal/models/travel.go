package models

// DocTypeTravel is the docType discriminator for travel records.
const DocTypeTravel = "travel"

// Balance field names accepted by the wallet primitives.
const (
	FieldBalance        = "balance"
	FieldPriceBalance   = "priceBalance"
	FieldDepositBalance = "depositBalance"
	FieldRewardBalance  = "rewardBalance"
)

// TravelUser is one participant and the number of seats they occupy.
// Order in Travel.Users is join order.
type TravelUser struct {
	ClientID   string `bson:"clientId" json:"clientId"`
	Passengers int    `bson:"passengers" json:"passengers"`
}

// SuggestedDestination is an end point proposed by the car owner or the
// system principal, carrying a reward escrowed in the travel.
type SuggestedDestination struct {
	Destination string `bson:"destination" json:"destination"`
	Reward      int    `bson:"reward" json:"reward"`
	SuggestedBy string `bson:"suggestedBy" json:"suggestedBy"`
}

// FinishConfirmation records one participant's finish vote.
type FinishConfirmation struct {
	User       string     `bson:"user" json:"user"`
	Moment     int64      `bson:"moment" json:"moment"`
	Coordinate Coordinate `bson:"coordinate" json:"coordinate"`
}

// Travel is a concrete booking of an offer. The three *Balance fields are
// escrow accumulators owned by the travel record itself, so a travel acts
// as an account for the wallet transfer primitive.
type Travel struct {
	DocType               string                 `bson:"docType" json:"docType"`
	ID                    string                 `bson:"_id" json:"id"`
	OfferID               string                 `bson:"offerId" json:"offerId"`
	CarLicensePlate       string                 `bson:"carLicensePlate" json:"carLicensePlate"`
	Users                 []TravelUser           `bson:"users" json:"users"`
	Origin                string                 `bson:"origin" json:"origin"`
	Destination           string                 `bson:"destination" json:"destination"`
	RealDestination       string                 `bson:"realDestination,omitempty" json:"realDestination,omitempty"`
	InitTime              int64                  `bson:"initTime" json:"initTime"`
	FinishTime            int64                  `bson:"finishTime" json:"finishTime"`
	RealFinalDate         int64                  `bson:"realFinalDate,omitempty" json:"realFinalDate,omitempty"`
	SuggestedDestinations []SuggestedDestination `bson:"suggestedDestinations" json:"suggestedDestinations"`
	RentForTime           bool                   `bson:"rentForTime" json:"rentForTime"`
	Seats                 int                    `bson:"seats" json:"seats"`
	TotalPrice            float64                `bson:"totalPrice" json:"totalPrice"`
	Observations          string                 `bson:"observations" json:"observations"`
	Finished              []FinishConfirmation   `bson:"finished" json:"finished"`
	KmTraveled            float64                `bson:"kmTraveled" json:"kmTraveled"`
	PriceBalance          float64                `bson:"priceBalance" json:"priceBalance"`
	DepositBalance        float64                `bson:"depositBalance" json:"depositBalance"`
	RewardBalance         float64                `bson:"rewardBalance" json:"rewardBalance"`
	CarStatus             CarStatus              `bson:"carStatus" json:"carStatus"`
	Deleted               bool                   `bson:"deleted" json:"deleted"`
}

// Balance returns the named escrow balance.
func (t *Travel) Balance(field string) float64 {
	switch field {
	case FieldPriceBalance:
		return t.PriceBalance
	case FieldDepositBalance:
		return t.DepositBalance
	case FieldRewardBalance:
		return t.RewardBalance
	}
	return 0
}

// SetBalance sets the named escrow balance.
func (t *Travel) SetBalance(field string, amount float64) {
	switch field {
	case FieldPriceBalance:
		t.PriceBalance = amount
	case FieldDepositBalance:
		t.DepositBalance = amount
	case FieldRewardBalance:
		t.RewardBalance = amount
	}
}

// UserEntry returns the participant entry for clientID, if present.
func (t *Travel) UserEntry(clientID string) (TravelUser, bool) {
	for _, u := range t.Users {
		if u.ClientID == clientID {
			return u, true
		}
	}
	return TravelUser{}, false
}

// HasFinished reports whether clientID already recorded a finish vote.
func (t *Travel) HasFinished(clientID string) bool {
	for _, f := range t.Finished {
		if f.User == clientID {
			return true
		}
	}
	return false
}
