package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/drive-passport/internal/auth"
	"github.com/ukydev/drive-passport/internal/config"
	"github.com/ukydev/drive-passport/internal/db"
	"github.com/ukydev/drive-passport/internal/geocode"
	"github.com/ukydev/drive-passport/internal/handlers"
	"github.com/ukydev/drive-passport/internal/location"
	"github.com/ukydev/drive-passport/internal/middleware"
	"github.com/ukydev/drive-passport/internal/stats"
	"github.com/ukydev/drive-passport/internal/trip"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using environment as-is")
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if os.Getenv("LOG_LEVEL") == "debug" {
		log.SetLevel(log.DebugLevel)
	}

	cfg := config.Load()

	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	log.Info("Connected to MongoDB")

	database := client.Database(cfg.MongoDB)
	stateStore := &db.MongoStateStore{Collection: database.Collection("app_state")}
	tripCollection := &db.MongoTripCollection{Collection: database.Collection("trips")}
	vehicleCollection := &db.MongoVehicleCollection{
		Collection: database.Collection("vehicles"),
		Trips:      tripCollection,
		State:      stateStore,
	}
	userCollection := &db.MongoUserCollection{Collection: database.Collection("users")}

	source, err := location.NewMQTTSource(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MQTT broker")
	}
	log.WithField("broker", cfg.MQTTBroker).Info("Connected to MQTT broker")

	geocoder := geocode.NewClient(cfg.GeocoderBaseURL)

	controller := trip.NewController(
		context.Background(),
		tripCollection,
		vehicleCollection,
		stateStore,
		source,
		geocoder,
		cfg.Tuning,
	)
	if controller.IsRecording() {
		log.Info("Resumed recording an interrupted trip")
	}

	engine := stats.NewEngine(tripCollection)

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("Failed to create auth service")
	}

	authHandler := handlers.NewAuthHandler(authService, userCollection)
	tripHandler := handlers.NewTripHandler(controller, tripCollection, stateStore, source)
	vehicleHandler := handlers.NewVehicleHandler(vehicleCollection, stateStore)
	passportHandler := handlers.NewPassportHandler(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/register", authHandler.Register)
	mux.HandleFunc("/api/auth/profile", authHandler.GetProfile)

	mux.HandleFunc("/api/trips/start", tripHandler.StartTrip)
	mux.HandleFunc("/api/trips/stop", tripHandler.StopTrip)
	mux.HandleFunc("/api/trips/active", tripHandler.GetActiveTrip)
	mux.HandleFunc("/api/trips", tripHandler.HandleTrips)
	mux.HandleFunc("/api/trips/", tripHandler.HandleTripByID)

	mux.HandleFunc("/api/vehicles/default", vehicleHandler.HandleDefaultVehicle)
	mux.HandleFunc("/api/vehicles", vehicleHandler.HandleVehicles)
	mux.HandleFunc("/api/vehicles/", vehicleHandler.HandleVehicleByID)

	mux.HandleFunc("/api/passport", passportHandler.GetPassport)
	mux.HandleFunc("/api/passport/years", passportHandler.GetYears)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	authMiddleware := middleware.NewAuthMiddleware(authService)
	rateLimiter := middleware.NewRateLimitMiddleware()
	handler := rateLimiter.RateLimit(120, 60)(authMiddleware.Authenticate(mux))

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP shutdown failed")
	}

	// The active-trip pointer stays persisted; the next start resumes it.
	controller.Close()
	source.Close()
	if err := client.Disconnect(shutdownCtx); err != nil {
		log.WithError(err).Error("Mongo disconnect failed")
	}
}
