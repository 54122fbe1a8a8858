package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
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
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// fix is the wire shape published to the position topic.
type fix struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Speed    float64 `json:"speed"`
	Accuracy float64 `json:"accuracy"`
	Ts       int64   `json:"ts"`
}

// Cities for realistic drivable routes
var cities = []Location{
	{Lat: 40.7128, Lon: -74.0060},  // New York
	{Lat: 42.3601, Lon: -71.0589},  // Boston
	{Lat: 39.9526, Lon: -75.1652},  // Philadelphia
	{Lat: 38.9072, Lon: -77.0369},  // Washington DC
	{Lat: 41.7658, Lon: -72.6734},  // Hartford
	{Lat: 42.6526, Lon: -73.7562},  // Albany
	{Lat: 39.2904, Lon: -76.6122},  // Baltimore
	{Lat: 40.4406, Lon: -79.9959},  // Pittsburgh
	{Lat: 41.8240, Lon: -71.4128},  // Providence
	{Lat: 43.0481, Lon: -76.1474},  // Syracuse
}

func jitterLocation(base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

func randomLocation() Location {
	base := cities[rand.Intn(len(cities))]
	return jitterLocation(base, 500) // start close to roads
}

var authToken string

func authorizedRequest(method, url string, body *bytes.Buffer) (*http.Response, error) {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

// login registers the owner account on first run and falls back to a
// plain login once registration is closed.
func login(apiURL, username, password string) error {
	creds, _ := json.Marshal(map[string]string{"username": username, "password": password})

	resp, err := authorizedRequest(http.MethodPost, apiURL+"/auth/register", bytes.NewBuffer(creds))
	if err != nil {
		return fmt.Errorf("register request failed: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusForbidden {
		log.Debug("Registration closed, owner account already exists")
	}

	resp, err = authorizedRequest(http.MethodPost, apiURL+"/auth/login", bytes.NewBuffer(creds))
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}
	if result.Token == "" {
		return fmt.Errorf("no token in login response")
	}
	authToken = result.Token
	return nil
}

// ensureVehicle creates a vehicle to attach simulated trips to.
func ensureVehicle(apiURL string) (string, error) {
	makes := []string{"Ford", "Chevrolet", "Toyota", "Honda", "Subaru"}
	models := []string{"F-150", "Silverado", "Camry", "Civic", "Outback"}

	i := rand.Intn(len(makes))
	vehicle := map[string]interface{}{
		"name":  fmt.Sprintf("Sim %s", models[i]),
		"make":  makes[i],
		"model": models[i],
		"year":  2020 + rand.Intn(5),
	}

	data, err := json.Marshal(vehicle)
	if err != nil {
		return "", fmt.Errorf("failed to marshal vehicle: %w", err)
	}

	resp, err := authorizedRequest(http.MethodPost, apiURL+"/vehicles", bytes.NewBuffer(data))
	if err != nil {
		return "", fmt.Errorf("failed to create vehicle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("vehicle creation failed with status: %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	vehicleID, ok := result["id"].(string)
	if !ok {
		return "", fmt.Errorf("invalid vehicle ID in response")
	}

	log.WithField("vehicle_id", vehicleID).Info("Created vehicle")
	return vehicleID, nil
}

// --- Routing & movement ---

type Route struct {
	Points    []Location
	SegIndex  int
	SegOffset float64 // km along current segment
}

type DriveState struct {
	Position Location
	SpeedKmh float64
	Route    *Route
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

func fetchOSRMRoute(start, end Location) ([]Location, error) {
	url := fmt.Sprintf("https://router.project-osrm.org/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson", start.Lon, start.Lat, end.Lon, end.Lat)
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("osrm status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var obj struct {
		Routes []struct {
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"routes"`
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, err
	}
	if len(obj.Routes) == 0 || len(obj.Routes[0].Geometry.Coordinates) < 2 {
		return nil, fmt.Errorf("no route")
	}
	coords := obj.Routes[0].Geometry.Coordinates
	pts := make([]Location, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		pts = append(pts, Location{Lat: c[1], Lon: c[0]})
	}
	return pts, nil
}

func planNewRoute(s *DriveState) {
	start := s.Position
	// pick far city
	var end Location
	for i := 0; i < 10; i++ {
		cand := cities[rand.Intn(len(cities))]
		if haversineKm(start, cand) > 50 {
			end = jitterLocation(cand, 500)
			break
		}
	}
	pts, err := fetchOSRMRoute(start, end)
	if err != nil {
		// fallback small jitter loop
		s.Route = &Route{Points: []Location{start, jitterLocation(start, 2000)}, SegIndex: 0, SegOffset: 0}
		return
	}
	s.Route = &Route{Points: pts, SegIndex: 0, SegOffset: 0}
}

func stepAlongRoute(s *DriveState, tickSec float64) {
	if s.Route == nil || len(s.Route.Points) < 2 {
		planNewRoute(s)
	}
	remKm := s.SpeedKmh * (tickSec / 3600.0)
	for remKm > 0 && s.Route.SegIndex < len(s.Route.Points)-1 {
		a := s.Route.Points[s.Route.SegIndex]
		b := s.Route.Points[s.Route.SegIndex+1]
		segLen := haversineKm(a, b)
		leftOnSeg := segLen - s.Route.SegOffset
		if remKm >= leftOnSeg {
			// advance to next segment
			s.Position = b
			s.Route.SegIndex++
			s.Route.SegOffset = 0
			remKm -= leftOnSeg
			continue
		}
		// stay on current segment
		t := (s.Route.SegOffset + remKm) / segLen
		if t < 0 {
			t = 0
		}
		if t > 1 {
			t = 1
		}
		s.Position = lerp(a, b, t)
		s.Route.SegOffset += remKm
		remKm = 0
	}
	// if reached end, plan new
	if s.Route.SegIndex >= len(s.Route.Points)-1 {
		planNewRoute(s)
	}
}

func fixFromState(s *DriveState) fix {
	return fix{
		Lat:      s.Position.Lat,
		Lon:      s.Position.Lon,
		Speed:    s.SpeedKmh / 3.6, // m/s on the wire
		Accuracy: 5 + rand.Float64()*10,
		Ts:       time.Now().Unix(),
	}
}

func publishFix(client mqtt.Client, topic string, f fix) {
	data, err := json.Marshal(f)
	if err != nil {
		log.WithError(err).Error("Failed to marshal fix")
		return
	}
	token := client.Publish(topic, 1, false, data)
	token.Wait()
	if token.Error() != nil {
		log.WithError(token.Error()).Error("Failed to publish fix")
	}
}

func triggerIntent(apiURL, path string, body map[string]string) error {
	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewBuffer(data)
	}
	resp, err := authorizedRequest(http.MethodPost, apiURL+path, buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s failed with status: %d", path, resp.StatusCode)
	}
	return nil
}

// driveTrip publishes fixes along a planned route for the trip duration,
// bracketed by the start and stop intents.
func driveTrip(apiURL string, client mqtt.Client, topic, vehicleID string, duration, interval time.Duration) {
	s := &DriveState{
		Position: randomLocation(),
		SpeedKmh: 40 + rand.Float64()*40,
	}
	planNewRoute(s)

	// Seed a fix first so the start intent can acquire a position
	publishFix(client, topic, fixFromState(s))

	if err := triggerIntent(apiURL, "/trips/start", map[string]string{"vehicle_id": vehicleID}); err != nil {
		log.WithError(err).Error("Failed to start trip")
		return
	}
	log.Info("Trip started")

	deadline := time.Now().Add(duration)
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for range tick.C {
		if time.Now().After(deadline) {
			break
		}
		// small speed noise
		s.SpeedKmh += (rand.Float64()*2 - 1) * 1.5
		if s.SpeedKmh < 15 {
			s.SpeedKmh = 15
		}
		if s.SpeedKmh > 90 {
			s.SpeedKmh = 90
		}

		stepAlongRoute(s, interval.Seconds())
		publishFix(client, topic, fixFromState(s))
	}

	if err := triggerIntent(apiURL, "/trips/stop", nil); err != nil {
		log.WithError(err).Error("Failed to stop trip")
		return
	}
	log.Info("Trip stopped")
}

func main() {
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		broker = "tcp://localhost:1883"
	}
	topic := os.Getenv("MQTT_FIX_TOPIC")
	if topic == "" {
		topic = "drive/fixes"
	}

	username := os.Getenv("SIM_USERNAME")
	if username == "" {
		username = "owner"
	}
	password := os.Getenv("SIM_PASSWORD")
	if password == "" {
		password = "password123"
	}

	interval := 2 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	tripMinutes := 5
	if v := os.Getenv("SIM_TRIP_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			tripMinutes = n
		}
	}

	log.WithFields(log.Fields{
		"api_url":  apiURL,
		"broker":   broker,
		"topic":    topic,
		"interval": interval,
	}).Info("Starting drive simulation")

	if err := login(apiURL, username, password); err != nil {
		log.WithError(err).Fatal("Failed to authenticate")
	}

	vehicleID, err := ensureVehicle(apiURL)
	if err != nil {
		log.WithError(err).Error("Failed to create vehicle, trips will have none")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("drive-passport-sim").
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).Fatal("Failed to connect to MQTT broker")
	}
	defer client.Disconnect(250)

	for {
		driveTrip(apiURL, client, topic, vehicleID, time.Duration(tripMinutes)*time.Minute, interval)
		pause := time.Duration(1+rand.Intn(3)) * time.Minute
		log.WithField("pause", pause.String()).Info("Parked between trips")
		time.Sleep(pause)
	}
}
