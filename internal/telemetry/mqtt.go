package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/cscoin/carshare/internal/engine"
)

// positionTopic is the subscription filter for travel position reports.
// The single-level wildcard holds the travel id.
const positionTopic = "carshare/travel/+/position"

// PositionReport is the payload cars publish while a travel is running.
// It carries the same fields as the travel edit operation.
type PositionReport struct {
	Coordinate      string  `json:"coordinate"`
	KmTraveled      float64 `json:"kmTraveled"`
	RealDestination string  `json:"realDestination"`
	Observations    string  `json:"observations"`
}

// Ingestor subscribes to car position reports and applies them to the
// matching travel record.
type Ingestor struct {
	client mqtt.Client
	engine *engine.Engine
}

// NewIngestor connects to the broker at brokerURL and returns an
// Ingestor ready to Start.
func NewIngestor(brokerURL, clientID string, eng *engine.Engine) (*Ingestor, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &Ingestor{client: client, engine: eng}, nil
}

// Start subscribes to the position topic. Reports for unknown travels
// are logged and dropped.
func (i *Ingestor) Start() error {
	token := i.client.Subscribe(positionTopic, 1, i.handle)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt subscribe: %w", token.Error())
	}
	logrus.WithField("topic", positionTopic).Info("telemetry ingest started")
	return nil
}

// Stop unsubscribes and disconnects.
func (i *Ingestor) Stop() {
	i.client.Unsubscribe(positionTopic)
	i.client.Disconnect(250)
}

func (i *Ingestor) handle(_ mqtt.Client, msg mqtt.Message) {
	travelID, err := TravelIDFromTopic(msg.Topic())
	if err != nil {
		logrus.WithError(err).Warn("telemetry report on malformed topic")
		return
	}
	var report PositionReport
	if err := json.Unmarshal(msg.Payload(), &report); err != nil {
		logrus.WithError(err).WithField("travel", travelID).Warn("malformed telemetry payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = i.engine.UpdateTravel(ctx, travelID, engine.TravelEditParams{
		Observations:    report.Observations,
		RealDestination: report.RealDestination,
		KmTraveled:      report.KmTraveled,
	})
	if err != nil {
		logrus.WithError(err).WithField("travel", travelID).Warn("telemetry report dropped")
		return
	}
	logrus.WithFields(logrus.Fields{
		"travel": travelID,
		"km":     report.KmTraveled,
	}).Debug("travel position updated")
}

// TravelIDFromTopic extracts the travel id from a position topic.
func TravelIDFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "carshare" || parts[1] != "travel" || parts[3] != "position" || parts[2] == "" {
		return "", fmt.Errorf("unexpected topic %q", topic)
	}
	return parts[2], nil
}
