package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ukydev/drive-passport/internal/models"
	"github.com/ukydev/drive-passport/internal/stats"
)

func passportFixtures() []*models.Trip {
	build := func(start time.Time, miles float64) *models.Trip {
		t := models.NewTrip(start, 40.7, -74.0)
		end := start.Add(30 * time.Minute)
		t.EndTime = &end
		t.DistanceMeters = miles / 0.000621371
		return t
	}
	return []*models.Trip{
		build(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), 10),
		build(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC), 20),
	}
}

func TestPassportHandler_GetPassport(t *testing.T) {
	trips := new(MockTripCollection)
	trips.On("FindTrips", mock.Anything, bson.M{"is_hidden": false}).Return(passportFixtures(), nil)
	handler := NewPassportHandler(stats.NewEngine(trips))

	t.Run("all time", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/passport", nil)
		w := httptest.NewRecorder()

		handler.GetPassport(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var passport stats.Passport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &passport))
		assert.Equal(t, 2, passport.TotalTrips)
		assert.InDelta(t, 30, passport.TotalMiles, 0.01)
		assert.Nil(t, passport.Year)
	})

	t.Run("year filter", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/passport?year=2025", nil)
		w := httptest.NewRecorder()

		handler.GetPassport(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var passport stats.Passport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &passport))
		assert.Equal(t, 1, passport.TotalTrips)
		assert.InDelta(t, 20, passport.TotalMiles, 0.01)
		require.NotNil(t, passport.Year)
		assert.Equal(t, 2025, *passport.Year)
	})

	t.Run("bad year", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/passport?year=yesterday", nil)
		w := httptest.NewRecorder()

		handler.GetPassport(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPassportHandler_GetYears(t *testing.T) {
	trips := new(MockTripCollection)
	trips.On("FindTrips", mock.Anything, bson.M{"is_hidden": false}).Return(passportFixtures(), nil)
	handler := NewPassportHandler(stats.NewEngine(trips))

	req := httptest.NewRequest("GET", "/api/passport/years", nil)
	w := httptest.NewRecorder()

	handler.GetYears(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string][]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, []int{2025, 2024}, response["years"])
}
