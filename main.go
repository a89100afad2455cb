package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"activities-service/clients"
	"activities-service/handlers"
	"activities-service/logging"
	"activities-service/models"
	"activities-service/repositories"
	"activities-service/services"
	"activities-service/store"
	"activities-service/utils"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func newBreaker(name string, timeout time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
}

func main() {
	logging.InitLogger()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Activities Service...")
	err := godotenv.Load(".env")
	if err != nil {
		logging.Logger.Fatalf("Event ID: ENV_LOAD_ERROR, Description: Error loading .env file: %v", err)
	}

	mongoURI := os.Getenv("MONGO_URI")
	mongoDBName := os.Getenv("MONGO_DB_NAME")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer mongoClient.Disconnect(ctx)

	if err := mongoClient.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", mongoURI)

	st := store.NewStore(mongoClient, mongoDBName)

	updatesLogger := log.New(os.Stdout, "[updates-repo] ", log.LstdFlags)
	updatesRepo, err := repositories.NewUpdatesRepo(updatesLogger)
	if err != nil {
		logging.Logger.Fatalf("Event ID: CASS_CONNECTION_FAILED, Description: Cassandra connection failed: %v", err)
	}
	defer updatesRepo.CloseSession()
	updatesRepo.CreateTable()

	httpClient := utils.NewHTTPClient()

	usersBreaker := newBreaker("UsersServiceCB", 2*time.Second)
	mapsBreaker := newBreaker("MapsServiceCB", 5*time.Second)
	pushBreaker := newBreaker("PushServiceCB", 5*time.Second)

	identity := clients.NewUsersClient(os.Getenv("USERS_SERVICE_URL"), httpClient, usersBreaker)
	maps := clients.NewHTTPMapsClient(os.Getenv("MAPS_API_URL"), os.Getenv("MAPS_API_KEY"), httpClient, mapsBreaker)
	push := clients.NewHTTPPushClient(os.Getenv("PUSH_SERVICE_URL"), httpClient, pushBreaker)

	events := make(chan models.ChangeEvent, 256)

	addendumService := services.NewAddendumService(st, maps, push, updatesRepo)
	triggerService := services.NewTriggerService(st, identity, maps, addendumService, os.Getenv("ENVIRONMENT"))
	activityService := services.NewActivityService(st, identity, events)
	activityHandler := handlers.NewActivityHandler(activityService)

	triggerCtx, stopTrigger := context.WithCancel(context.Background())
	defer stopTrigger()
	go triggerService.Run(triggerCtx, events)

	r := mux.NewRouter()

	r.HandleFunc("/api/activities/create", activityHandler.Create).Methods(http.MethodPost)
	r.HandleFunc("/api/activities/update", activityHandler.Update).Methods(http.MethodPost)
	r.HandleFunc("/api/activities/change-status", activityHandler.ChangeStatus).Methods(http.MethodPost)
	r.HandleFunc("/api/activities/share", activityHandler.Share).Methods(http.MethodPost)
	r.HandleFunc("/api/activities/remove", activityHandler.Remove).Methods(http.MethodPost)
	r.HandleFunc("/api/activities/comment", activityHandler.Comment).Methods(http.MethodPost)

	corsRouter := enableCORS(handlers.AuthMiddleware(r))

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: SERVER_PORT is not set in the environment variables.")
	}

	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
