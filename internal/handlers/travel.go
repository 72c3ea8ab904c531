package handlers

import (
	"net/http"
	"strconv"

	"github.com/cscoin/carshare/internal/engine"
	"github.com/cscoin/carshare/internal/geo"
	"github.com/cscoin/carshare/internal/models"
)

// TravelHandler handles travel lifecycle requests
type TravelHandler struct {
	engine *engine.Engine
}

// NewTravelHandler creates a new travel handler
func NewTravelHandler(eng *engine.Engine) *TravelHandler {
	return &TravelHandler{engine: eng}
}

type travelRequest struct {
	OfferID      string `json:"offerId"`
	InitTime     string `json:"initTime"`
	FinishTime   string `json:"finishTime"`
	Passengers   string `json:"passengers"`
	Destination  string `json:"destination"`
	RentForTime  bool   `json:"rentForTime"`
	Observations string `json:"observations"`
}

func (req travelRequest) params() (engine.TravelParams, error) {
	var p engine.TravelParams
	var err error
	if p.InitTime, err = strconv.ParseInt(req.InitTime, 10, 64); err != nil {
		return p, err
	}
	if p.FinishTime, err = strconv.ParseInt(req.FinishTime, 10, 64); err != nil {
		return p, err
	}
	if p.Passengers, err = strconv.Atoi(req.Passengers); err != nil {
		return p, err
	}
	p.OfferID = req.OfferID
	p.Destination = req.Destination
	p.RentForTime = req.RentForTime
	p.Observations = req.Observations
	return p, nil
}

// HandleTravels dispatches /api/travels by method: GET lists shared
// travels (seats, start, end and limit query parameters) or fetches one
// by ?id=, POST books an offer.
func (h *TravelHandler) HandleTravels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TravelHandler) get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if id := q.Get("id"); id != "" {
		travel, err := h.engine.FindTravel(r.Context(), id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, travel)
		return
	}

	seats := 0
	if s := q.Get("seats"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "seats must be a number", http.StatusBadRequest)
			return
		}
		seats = n
	}
	limit := 0.0
	if l := q.Get("limit"); l != "" {
		f, err := strconv.ParseFloat(l, 64)
		if err != nil {
			http.Error(w, "limit must be a number", http.StatusBadRequest)
			return
		}
		limit = f
	}
	travels, err := h.engine.ListTravels(r.Context(), seats, q.Get("start"), q.Get("end"), limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, travels)
}

func (h *TravelHandler) create(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	var req travelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	params, err := req.params()
	if err != nil {
		http.Error(w, "times and passengers must be numbers", http.StatusBadRequest)
		return
	}
	travel, err := h.engine.CreateTravel(r.Context(), callerID, params)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, travel)
}

// Join adds the caller to an existing travel
func (h *TravelHandler) Join(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		TravelID   string `json:"travelId"`
		Passengers string `json:"passengers"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	passengers, err := strconv.Atoi(req.Passengers)
	if err != nil {
		http.Error(w, "passengers must be a number", http.StatusBadRequest)
		return
	}
	travel, err := h.engine.AddUsers(r.Context(), callerID, req.TravelID, passengers)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, travel)
}

// Finish records the caller's end-of-travel confirmation
func (h *TravelHandler) Finish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		TravelID   string `json:"travelId"`
		Coordinate string `json:"coordinate"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	lat, lon, err := geo.ParseCoordinate(req.Coordinate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	travel, err := h.engine.Finish(r.Context(), callerID, req.TravelID, models.Coordinate{Latitude: lat, Longitude: lon})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, travel)
}

// CheckCar records the car condition and settles the checked travel
func (h *TravelHandler) CheckCar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		CarLicensePlate string `json:"carLicensePlate"`
		Status          string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	status, err := strconv.Atoi(req.Status)
	if err != nil {
		http.Error(w, "status must be a number", http.StatusBadRequest)
		return
	}
	travel, err := h.engine.CheckCar(r.Context(), callerID, req.CarLicensePlate, models.CarStatus(status))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, travel)
}

// Suggest proposes an alternative destination with a reward
func (h *TravelHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		TravelID string `json:"travelId"`
		Location string `json:"location"`
		Reward   string `json:"reward"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	reward, err := strconv.Atoi(req.Reward)
	if err != nil {
		http.Error(w, "reward must be a number", http.StatusBadRequest)
		return
	}
	travel, err := h.engine.AddSuggestedLocation(r.Context(), callerID, req.TravelID, req.Location, reward)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, travel)
}

// Update records the actually driven end point and distance
func (h *TravelHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := caller(w, r); !ok {
		return
	}
	var req struct {
		TravelID        string                       `json:"travelId"`
		Suggestion      *models.SuggestedDestination `json:"suggestion,omitempty"`
		Observations    string                       `json:"observations"`
		RealDestination string                       `json:"realDestination"`
		KmTraveled      string                       `json:"kmTraveled"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	km := 0.0
	if req.KmTraveled != "" {
		f, err := strconv.ParseFloat(req.KmTraveled, 64)
		if err != nil {
			http.Error(w, "kmTraveled must be a number", http.StatusBadRequest)
			return
		}
		km = f
	}
	travel, err := h.engine.UpdateTravel(r.Context(), req.TravelID, engine.TravelEditParams{
		SuggestedDestination: req.Suggestion,
		Observations:         req.Observations,
		RealDestination:      req.RealDestination,
		KmTraveled:           km,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, travel)
}

// Cancel withdraws the caller from a travel, refunding per the
// cancellation tier; an unfunded refund cancels the travel for everyone.
func (h *TravelHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		TravelID string `json:"travelId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	travel, err := h.engine.CancelTravel(r.Context(), callerID, req.TravelID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, travel)
}
