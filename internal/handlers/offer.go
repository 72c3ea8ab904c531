package handlers

import (
	"net/http"
	"strconv"

	"github.com/cscoin/carshare/internal/engine"
)

// OfferHandler handles offer requests
type OfferHandler struct {
	engine *engine.Engine
}

// NewOfferHandler creates a new offer handler
func NewOfferHandler(eng *engine.Engine) *OfferHandler {
	return &OfferHandler{engine: eng}
}

// Numeric fields arrive as strings and are parsed strictly; an empty
// price string means the price mode is unset.
type offerRequest struct {
	ID              string   `json:"id"`
	CarLicensePlate string   `json:"carLicensePlate"`
	PriceForKm      string   `json:"priceForKm"`
	PriceForTime    string   `json:"priceForTime"`
	StartDate       string   `json:"startDate"`
	EndDate         string   `json:"endDate"`
	Deposit         string   `json:"deposit"`
	StartPlace      string   `json:"startPlace"`
	EndPlaces       []string `json:"endPlaces"`
}

func (req offerRequest) params() (engine.OfferParams, error) {
	var p engine.OfferParams
	var err error
	if req.PriceForKm != "" {
		if p.PriceForKm, err = strconv.Atoi(req.PriceForKm); err != nil {
			return p, err
		}
	}
	if req.PriceForTime != "" {
		if p.PriceForTime, err = strconv.Atoi(req.PriceForTime); err != nil {
			return p, err
		}
	}
	if p.StartDate, err = strconv.ParseInt(req.StartDate, 10, 64); err != nil {
		return p, err
	}
	if p.EndDate, err = strconv.ParseInt(req.EndDate, 10, 64); err != nil {
		return p, err
	}
	if p.Deposit, err = strconv.Atoi(req.Deposit); err != nil {
		return p, err
	}
	p.CarLicensePlate = req.CarLicensePlate
	p.StartPlace = req.StartPlace
	p.EndPlaces = req.EndPlaces
	return p, nil
}

// HandleOffers dispatches /api/offers by method: GET lists (seats,
// start, end and limit query parameters) or fetches one by ?id=, POST
// publishes and PUT edits.
func (h *OfferHandler) HandleOffers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost:
		h.create(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *OfferHandler) get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if id := q.Get("id"); id != "" {
		offer, err := h.engine.FindOffer(r.Context(), id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, offer)
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
	offers, err := h.engine.ListOffers(r.Context(), seats, q.Get("start"), q.Get("end"), limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

func (h *OfferHandler) create(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	var req offerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	params, err := req.params()
	if err != nil {
		http.Error(w, "prices, dates and deposit must be numbers", http.StatusBadRequest)
		return
	}
	offer, err := h.engine.CreateOffer(r.Context(), callerID, params)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

func (h *OfferHandler) update(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	var req offerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" {
		http.Error(w, "offer id is required", http.StatusBadRequest)
		return
	}
	params, err := req.params()
	if err != nil {
		http.Error(w, "prices, dates and deposit must be numbers", http.StatusBadRequest)
		return
	}
	offer, err := h.engine.UpdateOffer(r.Context(), callerID, req.ID, params)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

// EditAvailability toggles an offer's availability
func (h *OfferHandler) EditAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		ID        string `json:"id"`
		Available bool   `json:"available"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" {
		http.Error(w, "offer id is required", http.StatusBadRequest)
		return
	}
	offer, err := h.engine.EditAvailability(r.Context(), callerID, req.ID, req.Available)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}
