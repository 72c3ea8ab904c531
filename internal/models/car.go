package models

// CarStatus is the condition reported for a car after a travel.
type CarStatus int

const (
	CarStatusOk         CarStatus = 0
	CarStatusNotOk      CarStatus = 1
	CarStatusNotChecked CarStatus = 2
)

// Car represents a vehicle listed by an owner. Cars are soft-deleted via
// NotDeleted rather than removed from the ledger.
type Car struct {
	DocType          string    `bson:"docType" json:"docType"`
	CarLicensePlate  string    `bson:"carLicensePlate" json:"carLicensePlate"`
	Brand            string    `bson:"brand" json:"brand"`
	Model            string    `bson:"model" json:"model"`
	Colour           string    `bson:"colour" json:"colour"`
	Seats            int       `bson:"seats" json:"seats"`
	YearOfEnrollment int       `bson:"yearOfEnrollment" json:"yearOfEnrollment"`
	OwnerID          string    `bson:"ownerId" json:"ownerId"`
	NotDeleted       bool      `bson:"notDeleted" json:"notDeleted"`
	Status           CarStatus `bson:"status" json:"status"`
	Available        bool      `bson:"available" json:"available"`
	Observations     string    `bson:"observations" json:"observations"`
}

// DocTypeCar is the docType discriminator for car records.
const DocTypeCar = "car"
