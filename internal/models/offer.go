package models

// DocTypeOffer is the docType discriminator for offer records.
const DocTypeOffer = "offer"

// Offer is a car owner's published availability and pricing for a time
// window. The car is embedded by value: later edits to the car record do
// not retroactively change an existing offer.
type Offer struct {
	DocType      string   `bson:"docType" json:"docType"`
	ID           string   `bson:"_id" json:"id"`
	Car          Car      `bson:"car" json:"car"`
	PriceForKm   int      `bson:"priceForKm,omitempty" json:"priceForKm,omitempty"`
	PriceForTime int      `bson:"priceForTime,omitempty" json:"priceForTime,omitempty"`
	StartDate    int64    `bson:"startDate" json:"startDate"`
	EndDate      int64    `bson:"endDate" json:"endDate"`
	Deposit      int      `bson:"deposit" json:"deposit"`
	StartPlace   string   `bson:"startPlace" json:"startPlace"`
	EndPlaces    []string `bson:"endPlaces" json:"endPlaces"`
	Available    bool     `bson:"available" json:"available"`
}
