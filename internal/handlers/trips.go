package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ukydev/drive-passport/internal/db"
	"github.com/ukydev/drive-passport/internal/location"
	"github.com/ukydev/drive-passport/internal/models"
	"github.com/ukydev/drive-passport/internal/trip"
)

// LifecycleController is the part of the trip controller the HTTP layer
// drives.
type LifecycleController interface {
	Start(ctx context.Context, vehicleID string) (*models.Trip, error)
	Stop(ctx context.Context) error
	ActiveTrip() *models.Trip
	IsRecording() bool
	HasInterruptedTrip(ctx context.Context) bool
}

// TripHandler handles trip lifecycle and trip collection requests
type TripHandler struct {
	controller     LifecycleController
	tripCollection db.TripCollection
	stateStore     db.StateStore
	source         location.Source
}

// NewTripHandler creates a new trip handler
func NewTripHandler(controller LifecycleController, tripCollection db.TripCollection, stateStore db.StateStore, source location.Source) *TripHandler {
	return &TripHandler{
		controller:     controller,
		tripCollection: tripCollection,
		stateStore:     stateStore,
		source:         source,
	}
}

// StartTrip begins recording a trip. The endpoint is idempotent for
// automation callers: an already-recording controller answers 200 instead
// of an error, since the desired end state was already reached.
func (h *TripHandler) StartTrip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var startReq struct {
		VehicleID string `json:"vehicle_id"`
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &startReq); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
	}

	if !location.CanTrackInBackground(h.source) {
		http.Error(w, "Location tracking unavailable", http.StatusServiceUnavailable)
		return
	}

	// Fall back to the default vehicle when none was named
	vehicleID := startReq.VehicleID
	if vehicleID == "" {
		if v, err := h.stateStore.Get(r.Context(), db.StateKeyDefaultVehicle); err == nil {
			vehicleID = v
		}
	}

	started, err := h.controller.Start(r.Context(), vehicleID)
	if errors.Is(err, trip.ErrTripAlreadyInProgress) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "already_recording",
			"trip":   h.controller.ActiveTrip(),
		})
		return
	}
	if errors.Is(err, trip.ErrLocationUnavailable) {
		http.Error(w, "Unable to get current location", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		log.WithError(err).Error("Failed to start trip")
		http.Error(w, "Failed to start trip", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "recording",
		"trip":   started,
	})
}

// StopTrip finishes the active trip. Like StartTrip, an idle controller
// answers 200 so repeated automation triggers are harmless.
func (h *TripHandler) StopTrip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	active := h.controller.ActiveTrip()
	err := h.controller.Stop(r.Context())
	if errors.Is(err, trip.ErrNoTripInProgress) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "not_recording"})
		return
	}
	if err != nil {
		log.WithError(err).Error("Failed to stop trip")
		http.Error(w, "Failed to stop trip", http.StatusInternalServerError)
		return
	}

	// Re-read the saved trip so the response carries the final fields
	stopped := active
	if active != nil {
		if saved, ferr := h.tripCollection.FindTripByID(r.Context(), active.ID); ferr == nil {
			stopped = saved
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "stopped",
		"trip":   stopped,
	})
}

// GetActiveTrip reports the recording state and the in-progress trip
func (h *TripHandler) GetActiveTrip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"recording":   h.controller.IsRecording(),
		"interrupted": h.controller.HasInterruptedTrip(r.Context()),
	}
	if active := h.controller.ActiveTrip(); active != nil {
		response["trip"] = active
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// HandleTrips serves the trip collection: GET lists, DELETE wipes
func (h *TripHandler) HandleTrips(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTrips(w, r)
	case http.MethodDelete:
		h.deleteAllTrips(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TripHandler) listTrips(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if r.URL.Query().Get("include_hidden") != "true" {
		filter["is_hidden"] = false
	}
	if vehicleID := r.URL.Query().Get("vehicle_id"); vehicleID != "" {
		filter["vehicle_id"] = vehicleID
	}
	if category := r.URL.Query().Get("category"); category != "" {
		if !models.ValidCategory(models.TripCategory(category)) {
			http.Error(w, "Invalid category", http.StatusBadRequest)
			return
		}
		filter["category"] = category
	}

	trips, err := h.tripCollection.FindTrips(r.Context(), filter)
	if err != nil {
		log.WithError(err).Error("Failed to list trips")
		http.Error(w, "Failed to list trips", http.StatusInternalServerError)
		return
	}

	if year := r.URL.Query().Get("year"); year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			http.Error(w, "Invalid year", http.StatusBadRequest)
			return
		}
		filtered := trips[:0]
		for _, t := range trips {
			if t.StartTime.Year() == y {
				filtered = append(filtered, t)
			}
		}
		trips = filtered
	}

	if trips == nil {
		trips = []*models.Trip{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trips)
}

func (h *TripHandler) deleteAllTrips(w http.ResponseWriter, r *http.Request) {
	if err := h.tripCollection.DeleteAllTrips(r.Context()); err != nil {
		log.WithError(err).Error("Failed to delete trips")
		http.Error(w, "Failed to delete trips", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "All trips deleted"})
}

// HandleTripByID serves a single trip: GET, PUT metadata, DELETE
func (h *TripHandler) HandleTripByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/trips/")
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		http.Error(w, "Invalid trip id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getTrip(w, r, id)
	case http.MethodPut:
		h.updateTrip(w, r, id)
	case http.MethodDelete:
		h.deleteTrip(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TripHandler) getTrip(w http.ResponseWriter, r *http.Request, id primitive.ObjectID) {
	t, err := h.tripCollection.FindTripByID(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Trip not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load trip", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

// updateTrip edits user-facing metadata only; recorded facts like the
// route and distance are not editable.
func (h *TripHandler) updateTrip(w http.ResponseWriter, r *http.Request, id primitive.ObjectID) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var updateReq struct {
		Category   *string   `json:"category"`
		Tags       *[]string `json:"tags"`
		Notes      *string   `json:"notes"`
		IsFavorite *bool     `json:"is_favorite"`
		IsHidden   *bool     `json:"is_hidden"`
		VehicleID  *string   `json:"vehicle_id"`
	}
	if err := json.Unmarshal(body, &updateReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	t, err := h.tripCollection.FindTripByID(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Trip not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load trip", http.StatusInternalServerError)
		return
	}

	if updateReq.Category != nil {
		category := models.TripCategory(*updateReq.Category)
		if !models.ValidCategory(category) {
			http.Error(w, "Invalid category", http.StatusBadRequest)
			return
		}
		t.Category = category
	}
	if updateReq.Tags != nil {
		t.Tags = *updateReq.Tags
	}
	if updateReq.Notes != nil {
		t.Notes = *updateReq.Notes
	}
	if updateReq.IsFavorite != nil {
		t.IsFavorite = *updateReq.IsFavorite
	}
	if updateReq.IsHidden != nil {
		t.IsHidden = *updateReq.IsHidden
	}
	if updateReq.VehicleID != nil {
		t.VehicleID = *updateReq.VehicleID
	}

	if err := h.tripCollection.UpdateTrip(r.Context(), t); err != nil {
		log.WithError(err).Error("Failed to update trip")
		http.Error(w, "Failed to update trip", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

func (h *TripHandler) deleteTrip(w http.ResponseWriter, r *http.Request, id primitive.ObjectID) {
	err := h.tripCollection.DeleteTrip(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Trip not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.WithError(err).Error("Failed to delete trip")
		http.Error(w, "Failed to delete trip", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Trip deleted"})
}
