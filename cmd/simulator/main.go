package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64
	Lon float64
}

func (l Location) String() string {
	return fmt.Sprintf("%.6f;%.6f", l.Lat, l.Lon)
}

// Cities for realistic trips
var cities = []Location{
	{Lat: 40.4168, Lon: -3.7038}, // Madrid
	{Lat: 41.3874, Lon: 2.1686},  // Barcelona
	{Lat: 39.4699, Lon: -0.3763}, // Valencia
	{Lat: 37.3891, Lon: -5.9845}, // Seville
	{Lat: 43.2630, Lon: -2.9350}, // Bilbao
	{Lat: 41.6488, Lon: -0.8891}, // Zaragoza
}

func jitterLocation(base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

func haversineKm(a, b Location) float64 {
	R := 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return R * c
}

func lerp(a, b Location, t float64) Location {
	return Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lon: a.Lon + (b.Lon-a.Lon)*t}
}

// client is a registered caller with its bearer token.
type client struct {
	apiURL   string
	username string
	token    string
	http     *http.Client
}

func newClient(apiURL, username string) (*client, error) {
	c := &client{
		apiURL:   apiURL,
		username: username,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	payload := map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "simulator-pass-123",
		"role":     "client",
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.post("/auth/register", payload, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	log.WithField("username", username).Info("Registered account")
	return c, nil
}

func (c *client) do(method, path string, payload, out interface{}) error {
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, c.apiURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed with status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *client) post(path string, payload, out interface{}) error {
	return c.do(http.MethodPost, path, payload, out)
}

// scenario runs one full marketplace trip: the owner lists a car and an
// offer, the client funds a wallet and books, and the car streams its
// position over MQTT until the client confirms the finish.
func scenario(n int, apiURL string, broker mqtt.Client, interval time.Duration) {
	owner, err := newClient(apiURL, fmt.Sprintf("sim-owner-%d-%d", n, time.Now().Unix()))
	if err != nil {
		log.WithError(err).Error("Failed to register owner")
		return
	}
	rider, err := newClient(apiURL, fmt.Sprintf("sim-rider-%d-%d", n, time.Now().Unix()))
	if err != nil {
		log.WithError(err).Error("Failed to register rider")
		return
	}

	if err := rider.post("/wallet/buy", map[string]string{"amount": "5000"}, nil); err != nil {
		log.WithError(err).Error("Failed to fund rider")
		return
	}

	plate := fmt.Sprintf("%04dSIM%d", rand.Intn(10000), n)
	car := map[string]string{
		"carLicensePlate":  plate,
		"brand":            "Seat",
		"model":            "Leon",
		"colour":           "red",
		"seats":            "4",
		"yearOfEnrollment": "2021",
	}
	if err := owner.post("/cars", car, nil); err != nil {
		log.WithError(err).Error("Failed to create car")
		return
	}

	origin := jitterLocation(cities[rand.Intn(len(cities))], 500)
	destination := jitterLocation(cities[rand.Intn(len(cities))], 500)
	now := time.Now().UnixMilli()
	offer := map[string]interface{}{
		"carLicensePlate": plate,
		"priceForKm":      "2",
		"startDate":       strconv.FormatInt(now+5_000, 10),
		"endDate":         strconv.FormatInt(now+24*3600_000, 10),
		"deposit":         "100",
		"startPlace":      origin.String(),
		"endPlaces":       []string{destination.String()},
	}
	var createdOffer struct {
		ID string `json:"id"`
	}
	if err := owner.post("/offers", offer, &createdOffer); err != nil {
		log.WithError(err).Error("Failed to create offer")
		return
	}

	travelReq := map[string]interface{}{
		"offerId":     createdOffer.ID,
		"initTime":    strconv.FormatInt(now+10_000, 10),
		"finishTime":  strconv.FormatInt(now+2*3600_000, 10),
		"passengers":  "2",
		"destination": destination.String(),
		"rentForTime": false,
	}
	var travel struct {
		ID string `json:"id"`
	}
	if err := rider.post("/travels", travelReq, &travel); err != nil {
		log.WithError(err).Error("Failed to book travel")
		return
	}
	log.WithFields(log.Fields{"travel": travel.ID, "plate": plate}).Info("Travel booked")

	// Stream positions along the straight line between origin and
	// destination until the trip completes.
	topic := fmt.Sprintf("carshare/travel/%s/position", travel.ID)
	totalKm := haversineKm(origin, destination)
	steps := 20
	for step := 0; step <= steps; step++ {
		t := float64(step) / float64(steps)
		pos := lerp(origin, destination, t)
		report := map[string]interface{}{
			"coordinate":      pos.String(),
			"kmTraveled":      totalKm * t,
			"realDestination": pos.String(),
		}
		payload, _ := json.Marshal(report)
		if broker != nil {
			token := broker.Publish(topic, 1, false, payload)
			token.Wait()
			if token.Error() != nil {
				log.WithError(token.Error()).Warn("Failed to publish position")
			}
		}
		time.Sleep(interval)
	}

	finishReq := map[string]string{
		"travelId":   travel.ID,
		"coordinate": destination.String(),
	}
	if err := rider.post("/travels/finish", finishReq, nil); err != nil {
		log.WithError(err).Error("Failed to finish travel")
		return
	}
	log.WithField("travel", travel.ID).Info("Travel finished")
}

func main() {
	trips := 3
	if val := os.Getenv("SIM_TRIPS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			trips = n
		}
	}

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	interval := 2 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	var broker mqtt.Client
	if url := os.Getenv("MQTT_BROKER"); url != "" {
		opts := mqtt.NewClientOptions().AddBroker(url).SetClientID("carshare-simulator")
		broker = mqtt.NewClient(opts)
		if token := broker.Connect(); token.Wait() && token.Error() != nil {
			log.WithError(token.Error()).Fatal("Failed to connect to MQTT broker")
		}
	} else {
		log.Info("MQTT_BROKER not set, position reports disabled")
	}

	log.WithFields(log.Fields{
		"trips":    trips,
		"api_url":  apiURL,
		"interval": interval,
	}).Info("Starting marketplace simulation")

	done := make(chan struct{})
	for i := 0; i < trips; i++ {
		go func(n int) {
			scenario(n, apiURL, broker, interval)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < trips; i++ {
		<-done
	}
	log.Info("Simulation completed")
}
