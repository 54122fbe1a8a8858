package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ukydev/drive-passport/internal/db"
	"github.com/ukydev/drive-passport/internal/models"
)

// VehicleHandler handles vehicle CRUD and default-vehicle selection
type VehicleHandler struct {
	vehicleCollection db.VehicleCollection
	stateStore        db.StateStore
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(vehicleCollection db.VehicleCollection, stateStore db.StateStore) *VehicleHandler {
	return &VehicleHandler{
		vehicleCollection: vehicleCollection,
		stateStore:        stateStore,
	}
}

// HandleVehicles serves the vehicle collection: GET lists, POST creates,
// DELETE wipes
func (h *VehicleHandler) HandleVehicles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listVehicles(w, r)
	case http.MethodPost:
		h.createVehicle(w, r)
	case http.MethodDelete:
		h.deleteAllVehicles(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *VehicleHandler) listVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.vehicleCollection.FindVehicles(r.Context(), bson.M{})
	if err != nil {
		log.WithError(err).Error("Failed to list vehicles")
		http.Error(w, "Failed to list vehicles", http.StatusInternalServerError)
		return
	}
	if vehicles == nil {
		vehicles = []*models.Vehicle{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(vehicles)
}

func (h *VehicleHandler) createVehicle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var createReq struct {
		Name  string `json:"name"`
		Make  string `json:"make"`
		Model string `json:"model"`
		Year  int    `json:"year"`
	}
	if err := json.Unmarshal(body, &createReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if createReq.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	vehicle := models.NewVehicle(createReq.Name)
	vehicle.Make = createReq.Make
	vehicle.Model = createReq.Model
	vehicle.Year = createReq.Year

	if err := h.vehicleCollection.InsertVehicle(r.Context(), vehicle); err != nil {
		log.WithError(err).Error("Failed to create vehicle")
		http.Error(w, "Failed to create vehicle", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(vehicle)
}

func (h *VehicleHandler) deleteAllVehicles(w http.ResponseWriter, r *http.Request) {
	if err := h.vehicleCollection.DeleteAllVehicles(r.Context()); err != nil {
		log.WithError(err).Error("Failed to delete vehicles")
		http.Error(w, "Failed to delete vehicles", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "All vehicles deleted"})
}

// HandleDefaultVehicle serves the default-vehicle selection: GET reads,
// PUT sets, DELETE clears
func (h *VehicleHandler) HandleDefaultVehicle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getDefaultVehicle(w, r)
	case http.MethodPut:
		h.setDefaultVehicle(w, r)
	case http.MethodDelete:
		h.clearDefaultVehicle(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *VehicleHandler) getDefaultVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := h.stateStore.Get(r.Context(), db.StateKeyDefaultVehicle)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "No default vehicle", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to read default vehicle", http.StatusInternalServerError)
		return
	}

	vehicle, err := h.vehicleCollection.FindVehicleByID(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "No default vehicle", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load default vehicle", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(vehicle)
}

func (h *VehicleHandler) setDefaultVehicle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var setReq struct {
		VehicleID string `json:"vehicle_id"`
	}
	if err := json.Unmarshal(body, &setReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if setReq.VehicleID == "" {
		http.Error(w, "vehicle_id is required", http.StatusBadRequest)
		return
	}

	// The vehicle has to exist before it can be the default
	if _, err := h.vehicleCollection.FindVehicleByID(r.Context(), setReq.VehicleID); err != nil {
		http.Error(w, "Vehicle not found", http.StatusNotFound)
		return
	}

	if err := h.stateStore.Set(r.Context(), db.StateKeyDefaultVehicle, setReq.VehicleID); err != nil {
		log.WithError(err).Error("Failed to set default vehicle")
		http.Error(w, "Failed to set default vehicle", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"default_vehicle_id": setReq.VehicleID})
}

func (h *VehicleHandler) clearDefaultVehicle(w http.ResponseWriter, r *http.Request) {
	if err := h.stateStore.Delete(r.Context(), db.StateKeyDefaultVehicle); err != nil {
		http.Error(w, "Failed to clear default vehicle", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Default vehicle cleared"})
}

// HandleVehicleByID serves a single vehicle: GET, PUT, DELETE
func (h *VehicleHandler) HandleVehicleByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/vehicles/")
	if id == "" {
		http.Error(w, "Vehicle id required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getVehicle(w, r, id)
	case http.MethodPut:
		h.updateVehicle(w, r, id)
	case http.MethodDelete:
		h.deleteVehicle(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *VehicleHandler) getVehicle(w http.ResponseWriter, r *http.Request, id string) {
	vehicle, err := h.vehicleCollection.FindVehicleByID(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Vehicle not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load vehicle", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(vehicle)
}

func (h *VehicleHandler) updateVehicle(w http.ResponseWriter, r *http.Request, id string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var updateReq struct {
		Name     *string `json:"name"`
		Make     *string `json:"make"`
		Model    *string `json:"model"`
		Year     *int    `json:"year"`
		IsActive *bool   `json:"is_active"`
	}
	if err := json.Unmarshal(body, &updateReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	vehicle, err := h.vehicleCollection.FindVehicleByID(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Vehicle not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load vehicle", http.StatusInternalServerError)
		return
	}

	if updateReq.Name != nil {
		if *updateReq.Name == "" {
			http.Error(w, "Name cannot be empty", http.StatusBadRequest)
			return
		}
		vehicle.Name = *updateReq.Name
	}
	if updateReq.Make != nil {
		vehicle.Make = *updateReq.Make
	}
	if updateReq.Model != nil {
		vehicle.Model = *updateReq.Model
	}
	if updateReq.Year != nil {
		vehicle.Year = *updateReq.Year
	}
	if updateReq.IsActive != nil {
		vehicle.IsActive = *updateReq.IsActive
	}

	if err := h.vehicleCollection.UpdateVehicle(r.Context(), id, vehicle); err != nil {
		log.WithError(err).Error("Failed to update vehicle")
		http.Error(w, "Failed to update vehicle", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(vehicle)
}

func (h *VehicleHandler) deleteVehicle(w http.ResponseWriter, r *http.Request, id string) {
	err := h.vehicleCollection.DeleteVehicle(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Vehicle not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.WithError(err).Error("Failed to delete vehicle")
		http.Error(w, "Failed to delete vehicle", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Vehicle deleted"})
}
