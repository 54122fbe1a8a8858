package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/drive-passport/internal/stats"
)

// PassportHandler serves the statistics snapshot
type PassportHandler struct {
	engine *stats.Engine
}

// NewPassportHandler creates a new passport handler
func NewPassportHandler(engine *stats.Engine) *PassportHandler {
	return &PassportHandler{engine: engine}
}

// GetPassport returns the full statistics snapshot, optionally restricted
// to one calendar year via ?year=
func (h *PassportHandler) GetPassport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			http.Error(w, "Invalid year", http.StatusBadRequest)
			return
		}
		h.engine.SetSelectedYear(year)
	} else {
		h.engine.ClearSelectedYear()
	}

	passport, err := h.engine.Passport(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to compute passport")
		http.Error(w, "Failed to compute passport", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(passport)
}

// GetYears lists the years with at least one recorded trip
func (h *PassportHandler) GetYears(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	years, err := h.engine.AvailableYears(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to list years")
		http.Error(w, "Failed to list years", http.StatusInternalServerError)
		return
	}
	if years == nil {
		years = []int{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]int{"years": years})
}
