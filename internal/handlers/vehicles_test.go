package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ukydev/drive-passport/internal/db"
	"github.com/ukydev/drive-passport/internal/models"
)

// MockVehicleCollection is a mock implementation of VehicleCollection
type MockVehicleCollection struct {
	mock.Mock
}

func (m *MockVehicleCollection) InsertVehicle(ctx context.Context, v *models.Vehicle) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockVehicleCollection) FindVehicles(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*models.Vehicle, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Vehicle), args.Error(1)
}

func (m *MockVehicleCollection) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

func (m *MockVehicleCollection) UpdateVehicle(ctx context.Context, id string, v *models.Vehicle) error {
	args := m.Called(ctx, id, v)
	return args.Error(0)
}

func (m *MockVehicleCollection) DeleteVehicle(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockVehicleCollection) DeleteAllVehicles(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestVehicleHandler_HandleVehicles(t *testing.T) {
	t.Run("create vehicle", func(t *testing.T) {
		vehicles := new(MockVehicleCollection)
		vehicles.On("InsertVehicle", mock.Anything, mock.AnythingOfType("*models.Vehicle")).Return(nil)
		handler := NewVehicleHandler(vehicles, &stubState{values: map[string]string{}})

		body, _ := json.Marshal(map[string]interface{}{
			"name": "Wagon", "make": "Subaru", "model": "Outback", "year": 2021,
		})
		req := httptest.NewRequest("POST", "/api/vehicles", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		handler.HandleVehicles(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var created models.Vehicle
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.Equal(t, "Wagon", created.Name)
		assert.Equal(t, 2021, created.Year)
		assert.True(t, created.IsActive)
	})

	t.Run("create requires name", func(t *testing.T) {
		handler := NewVehicleHandler(new(MockVehicleCollection), &stubState{values: map[string]string{}})

		body, _ := json.Marshal(map[string]string{"make": "Subaru"})
		req := httptest.NewRequest("POST", "/api/vehicles", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		handler.HandleVehicles(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list vehicles", func(t *testing.T) {
		vehicles := new(MockVehicleCollection)
		vehicles.On("FindVehicles", mock.Anything, bson.M{}).Return([]*models.Vehicle{models.NewVehicle("Wagon")}, nil)
		handler := NewVehicleHandler(vehicles, &stubState{values: map[string]string{}})

		req := httptest.NewRequest("GET", "/api/vehicles", nil)
		w := httptest.NewRecorder()

		handler.HandleVehicles(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var listed []*models.Vehicle
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
		assert.Len(t, listed, 1)
	})
}

func TestVehicleHandler_DefaultVehicle(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		vehicle := models.NewVehicle("Wagon")
		vehicles := new(MockVehicleCollection)
		vehicles.On("FindVehicleByID", mock.Anything, vehicle.ID.Hex()).Return(vehicle, nil)
		state := &stubState{values: map[string]string{}}
		handler := NewVehicleHandler(vehicles, state)

		body, _ := json.Marshal(map[string]string{"vehicle_id": vehicle.ID.Hex()})
		req := httptest.NewRequest("PUT", "/api/vehicles/default", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		handler.HandleDefaultVehicle(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, vehicle.ID.Hex(), state.values[db.StateKeyDefaultVehicle])

		req = httptest.NewRequest("GET", "/api/vehicles/default", nil)
		w = httptest.NewRecorder()
		handler.HandleDefaultVehicle(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		var got models.Vehicle
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, vehicle.ID, got.ID)
	})

	t.Run("set rejects unknown vehicle", func(t *testing.T) {
		vehicles := new(MockVehicleCollection)
		vehicles.On("FindVehicleByID", mock.Anything, "missing").Return(nil, db.ErrNotFound)
		state := &stubState{values: map[string]string{}}
		handler := NewVehicleHandler(vehicles, state)

		body, _ := json.Marshal(map[string]string{"vehicle_id": "missing"})
		req := httptest.NewRequest("PUT", "/api/vehicles/default", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		handler.HandleDefaultVehicle(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, state.values)
	})

	t.Run("get with none set", func(t *testing.T) {
		handler := NewVehicleHandler(new(MockVehicleCollection), &stubState{values: map[string]string{}})

		req := httptest.NewRequest("GET", "/api/vehicles/default", nil)
		w := httptest.NewRecorder()
		handler.HandleDefaultVehicle(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("clear", func(t *testing.T) {
		state := &stubState{values: map[string]string{db.StateKeyDefaultVehicle: "abc"}}
		handler := NewVehicleHandler(new(MockVehicleCollection), state)

		req := httptest.NewRequest("DELETE", "/api/vehicles/default", nil)
		w := httptest.NewRecorder()
		handler.HandleDefaultVehicle(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, state.values)
	})
}

func TestVehicleHandler_HandleVehicleByID(t *testing.T) {
	t.Run("update fields", func(t *testing.T) {
		vehicle := models.NewVehicle("Wagon")
		vehicles := new(MockVehicleCollection)
		vehicles.On("FindVehicleByID", mock.Anything, vehicle.ID.Hex()).Return(vehicle, nil)
		vehicles.On("UpdateVehicle", mock.Anything, vehicle.ID.Hex(), mock.AnythingOfType("*models.Vehicle")).Return(nil)
		handler := NewVehicleHandler(vehicles, &stubState{values: map[string]string{}})

		body, _ := json.Marshal(map[string]interface{}{"name": "Family Wagon", "is_active": false})
		req := httptest.NewRequest("PUT", "/api/vehicles/"+vehicle.ID.Hex(), bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		handler.HandleVehicleByID(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var updated models.Vehicle
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
		assert.Equal(t, "Family Wagon", updated.Name)
		assert.False(t, updated.IsActive)
	})

	t.Run("delete missing vehicle", func(t *testing.T) {
		vehicles := new(MockVehicleCollection)
		vehicles.On("DeleteVehicle", mock.Anything, "missing").Return(db.ErrNotFound)
		handler := NewVehicleHandler(vehicles, &stubState{values: map[string]string{}})

		req := httptest.NewRequest("DELETE", "/api/vehicles/missing", nil)
		w := httptest.NewRecorder()

		handler.HandleVehicleByID(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
