package telemetry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTravelIDFromTopic(t *testing.T) {
	id, err := TravelIDFromTopic("carshare/travel/1234ABC1700000000000/position")
	assert.NoError(t, err)
	assert.Equal(t, "1234ABC1700000000000", id)

	for _, topic := range []string{
		"carshare/travel//position",
		"carshare/travel/abc",
		"rides/travel/abc/position",
		"carshare/car/abc/position",
		"carshare/travel/abc/status",
	} {
		_, err := TravelIDFromTopic(topic)
		assert.Error(t, err, topic)
	}
}

func TestPositionReportDecode(t *testing.T) {
	payload := []byte(`{"coordinate":"45.2554;75.5875","kmTraveled":12.4,"realDestination":"45.2564;75.5885","observations":"smooth ride"}`)

	var report PositionReport
	err := json.Unmarshal(payload, &report)
	assert.NoError(t, err)
	assert.Equal(t, "45.2554;75.5875", report.Coordinate)
	assert.InDelta(t, 12.4, report.KmTraveled, 1e-9)
	assert.Equal(t, "45.2564;75.5885", report.RealDestination)
	assert.Equal(t, "smooth ride", report.Observations)
}
