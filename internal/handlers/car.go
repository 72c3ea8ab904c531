package handlers

import (
	"net/http"
	"strconv"

	"github.com/cscoin/carshare/internal/engine"
)

// CarHandler handles car CRUD requests
type CarHandler struct {
	engine *engine.Engine
}

// NewCarHandler creates a new car handler
func NewCarHandler(eng *engine.Engine) *CarHandler {
	return &CarHandler{engine: eng}
}

type carRequest struct {
	CarLicensePlate  string `json:"carLicensePlate"`
	Brand            string `json:"brand"`
	Model            string `json:"model"`
	Colour           string `json:"colour"`
	Seats            string `json:"seats"`
	YearOfEnrollment string `json:"yearOfEnrollment"`
	Observations     string `json:"observations"`
}

func (req carRequest) params() (engine.CarParams, error) {
	seats, err := strconv.Atoi(req.Seats)
	if err != nil {
		return engine.CarParams{}, err
	}
	year, err := strconv.Atoi(req.YearOfEnrollment)
	if err != nil {
		return engine.CarParams{}, err
	}
	return engine.CarParams{
		CarLicensePlate:  req.CarLicensePlate,
		Brand:            req.Brand,
		Model:            req.Model,
		Colour:           req.Colour,
		Seats:            seats,
		YearOfEnrollment: year,
		Observations:     req.Observations,
	}, nil
}

// HandleCars dispatches /api/cars by method: GET lists every car (or one
// by ?plate=), POST creates, PUT edits and DELETE soft-deletes.
func (h *CarHandler) HandleCars(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost:
		h.create(w, r)
	case http.MethodPut:
		h.update(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// MyCars returns the caller's non-deleted cars
func (h *CarHandler) MyCars(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	cars, err := h.engine.FindCarsByOwner(r.Context(), callerID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

func (h *CarHandler) get(w http.ResponseWriter, r *http.Request) {
	if plate := r.URL.Query().Get("plate"); plate != "" {
		car, err := h.engine.FindCar(r.Context(), plate)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, car)
		return
	}
	cars, err := h.engine.ListCars(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

func (h *CarHandler) create(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	var req carRequest
	if !decodeBody(w, r, &req) {
		return
	}
	params, err := req.params()
	if err != nil {
		http.Error(w, "seats and yearOfEnrollment must be numbers", http.StatusBadRequest)
		return
	}
	car, err := h.engine.CreateCar(r.Context(), callerID, params)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, car)
}

func (h *CarHandler) update(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	var req carRequest
	if !decodeBody(w, r, &req) {
		return
	}
	params, err := req.params()
	if err != nil {
		http.Error(w, "seats and yearOfEnrollment must be numbers", http.StatusBadRequest)
		return
	}
	car, err := h.engine.UpdateCar(r.Context(), callerID, params)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, car)
}

func (h *CarHandler) delete(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	plate := r.URL.Query().Get("plate")
	if plate == "" {
		http.Error(w, "plate query parameter is required", http.StatusBadRequest)
		return
	}
	car, err := h.engine.DeleteCar(r.Context(), callerID, plate)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, car)
}
