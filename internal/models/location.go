package models

// Coordinate represents a geographical point as exchanged on the wire
// for finish confirmations and telemetry reports.
type Coordinate struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}
