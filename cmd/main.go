package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/cscoin/carshare/internal/auth"
	"github.com/cscoin/carshare/internal/db"
	"github.com/cscoin/carshare/internal/engine"
	"github.com/cscoin/carshare/internal/handlers"
	"github.com/cscoin/carshare/internal/middleware"
	"github.com/cscoin/carshare/internal/models"
	"github.com/cscoin/carshare/internal/state"
	"github.com/cscoin/carshare/internal/telemetry"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	if os.Getenv("LOG_LEVEL") == "debug" {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	store, accounts := buildStores()
	eng := engine.New(store, os.Getenv("SYSTEM_PRINCIPAL"))

	authService, err := auth.NewService()
	if err != nil {
		logrus.WithError(err).Fatal("failed to create auth service")
	}

	authHandler := handlers.NewAuthHandler(authService, accounts, eng)
	carHandler := handlers.NewCarHandler(eng)
	offerHandler := handlers.NewOfferHandler(eng)
	travelHandler := handlers.NewTravelHandler(eng)
	walletHandler := handlers.NewWalletHandler(eng)
	assetHandler := handlers.NewAssetHandler(eng)

	authMW := middleware.NewAuthMiddleware(authService)
	rateMW := middleware.NewRateLimitMiddleware()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/auth/register", authHandler.Register)
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/profile", authHandler.GetProfile)
	mux.HandleFunc("/api/auth/change-password", authHandler.ChangePassword)

	mux.HandleFunc("/api/cars", carHandler.HandleCars)
	mux.HandleFunc("/api/cars/mine", carHandler.MyCars)

	mux.HandleFunc("/api/offers", offerHandler.HandleOffers)
	mux.HandleFunc("/api/offers/availability", offerHandler.EditAvailability)

	mux.HandleFunc("/api/travels", travelHandler.HandleTravels)
	mux.HandleFunc("/api/travels/join", travelHandler.Join)
	mux.HandleFunc("/api/travels/finish", travelHandler.Finish)
	mux.HandleFunc("/api/travels/check-car", travelHandler.CheckCar)
	mux.HandleFunc("/api/travels/suggest", travelHandler.Suggest)
	mux.HandleFunc("/api/travels/update", travelHandler.Update)
	mux.HandleFunc("/api/travels/cancel", travelHandler.Cancel)

	mux.HandleFunc("/api/wallet/buy", walletHandler.Buy)
	mux.HandleFunc("/api/wallet/balance", walletHandler.Balance)

	mux.Handle("/api/assets", authMW.RequireRole(models.RoleAdmin)(http.HandlerFunc(assetHandler.Delete)))

	handler := middleware.RequestID(rateMW.RateLimit(100, 60)(authMW.Authenticate(mux)))

	startTelemetry(eng)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logrus.WithField("port", port).Info("HTTP server listening")
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

// buildStores selects the ledger and account backends. MONGO_URI=memory
// runs everything in process, which is what the simulator uses.
func buildStores() (state.Store, db.AccountCollection) {
	if os.Getenv("MONGO_URI") == "memory" {
		logrus.Warn("running with in-memory state, nothing will be persisted")
		return state.NewMemStore(), db.NewMemAccountCollection()
	}

	client, err := state.ConnectMongo()
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to MongoDB")
	}
	logrus.Info("connected to MongoDB")

	database := client.Database(databaseName())
	ledger := state.NewMongoStore(database.Collection("ledger"))
	accounts := &db.MongoAccountCollection{Collection: database.Collection("accounts")}
	return ledger, accounts
}

func databaseName() string {
	if name := os.Getenv("MONGO_DATABASE"); name != "" {
		return name
	}
	return "carshare"
}

func startTelemetry(eng *engine.Engine) {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		logrus.Info("MQTT_BROKER not set, telemetry ingest disabled")
		return
	}
	ingestor, err := telemetry.NewIngestor(broker, "carshare-server", eng)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to MQTT broker")
	}
	if err := ingestor.Start(); err != nil {
		logrus.WithError(err).Fatal("failed to start telemetry ingest")
	}
}
