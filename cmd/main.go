package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/profiler"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/opsboard/opsboard-backend/pkg/communication"
	"github.com/opsboard/opsboard-backend/pkg/environment"
	"github.com/opsboard/opsboard-backend/pkg/locking"
	"github.com/opsboard/opsboard-backend/pkg/logger"
	"github.com/opsboard/opsboard-backend/pkg/notifications"
	"github.com/opsboard/opsboard-backend/pkg/schedule"
	"github.com/opsboard/opsboard-backend/pkg/tasks"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

const bookingCacheSize = 1024

func main() {
	var logging logger.Interface = logger.Logger{}
	fmt.Println("Server is starting up...")

	err := environment.Initialize()
	if err != nil {
		logging.Fatal(err)
	}
	env := environment.Global

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if env.Logging == "gcp" {
		cloudLogger, err := logger.NewGoogleCloudLogger(ctx, env.GCPProjectID)
		if err != nil {
			logging.Fatal(err)
		}
		defer cloudLogger.Close()
		logging = cloudLogger
	}

	if env.IsProduction() {
		err = profiler.Start(profiler.Config{
			Service:   logger.LogID,
			ProjectID: env.GCPProjectID,
		})
		if err != nil {
			logging.Error("Could not start profiler", err)
		}
	}

	location, err := time.LoadLocation(env.TimeZone)
	if err != nil {
		logging.Fatal(err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(env.DatabaseURL))
	if err != nil {
		logging.Fatal(err)
	}

	err = client.Ping(connectCtx, nil)
	if err != nil {
		logging.Fatal(err)
	}

	defer func() {
		err := client.Disconnect(context.Background())
		if err != nil {
			logging.Error("Could not disconnect from database", err)
		}
	}()

	logging.Info("Database connected")

	db := client.Database(env.Database)

	taskRepository := &tasks.MongoDBTaskRepository{DB: db.Collection("Tasks"), Logger: logging}
	mongoScheduleRepository := &schedule.MongoDBScheduleRepository{DB: db.Collection("Schedules"), Logger: logging}

	err = taskRepository.EnsureIndexes(connectCtx)
	if err != nil {
		logging.Fatal(err)
	}

	err = mongoScheduleRepository.EnsureIndexes(connectCtx)
	if err != nil {
		logging.Fatal(err)
	}

	var locker locking.LockerInterface
	var bookingCache schedule.BookingCacheInterface

	if env.Redis != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     env.Redis,
			Password: env.RedisPassword,
		})

		err = redisClient.Ping(connectCtx).Err()
		if err != nil {
			logging.Fatal(err)
		}

		locker = locking.NewLockerRedis(redisClient)
		bookingCache = schedule.NewBookingCacheRedis(redisClient)
		logging.Info("Redis connected")
	} else {
		locker = locking.NewLockerMemory()
		bookingCache, err = schedule.NewBookingCacheMemory(bookingCacheSize)
		if err != nil {
			logging.Fatal(err)
		}
	}

	scheduleRepository := &schedule.CachedScheduleRepository{
		Repository: mongoScheduleRepository,
		Cache:      bookingCache,
		Logger:     logging,
	}

	responseManager := &communication.ResponseManager{Logger: logging}

	schedulingService := tasks.NewSchedulingService(taskRepository, scheduleRepository, locker, logging, location)

	hub := notifications.NewHub(logging, responseManager)
	schedulingService.Subscribe(hub)

	if env.Firebase != "" {
		notificationController, err := notifications.NewNotificationController(ctx, logging, env.GCPProjectID, env.Firebase)
		if err != nil {
			logging.Fatal(err)
		}
		schedulingService.Subscribe(notificationController)
	}

	taskHandler := tasks.Handler{
		Service:         schedulingService,
		TaskRepository:  taskRepository,
		Logger:          logging,
		ResponseManager: responseManager,
	}

	scheduleHandler := schedule.Handler{
		AvailabilityEngine: &schedule.AvailabilityEngine{Repository: scheduleRepository, Location: location},
		Repository:         scheduleRepository,
		Logger:             logging,
		ResponseManager:    responseManager,
	}

	r := mux.NewRouter()
	r.HandleFunc("/", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)

		_, err := fmt.Fprint(writer, "Welcome to the API!")
		if err != nil {
			logging.Error("Could not write welcome", err)
		}
	})

	// websocket upgrades must not get the json content type
	r.Handle("/v1/events", hub).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Content-Type", "application/json")
			next.ServeHTTP(w, r)
		})
	})

	v1.HandleFunc("/tasks", taskHandler.TaskAdd).Methods(http.MethodPost)
	v1.HandleFunc("/tasks", taskHandler.GetAllTasks).Methods(http.MethodGet)
	v1.HandleFunc("/tasks/{taskID}", taskHandler.TaskGet).Methods(http.MethodGet)
	v1.HandleFunc("/tasks/{taskID}", taskHandler.TaskDelete).Methods(http.MethodDelete)
	v1.HandleFunc("/tasks/{taskID}/slots/{slotID}", taskHandler.SlotUpdate).Methods(http.MethodPatch)
	v1.HandleFunc("/tasks/{taskID}/schedule/sync", taskHandler.ScheduleSync).Methods(http.MethodPost)
	v1.HandleFunc("/tasks/{taskID}/slots/{slotID}/extensions", taskHandler.ExtensionAdd).Methods(http.MethodPost)
	v1.HandleFunc("/tasks/{taskID}/slots/{slotID}/extensions/{requestID}", taskHandler.ExtensionRespond).Methods(http.MethodPut)
	v1.HandleFunc("/schedule/{personID}/availability", scheduleHandler.GetAvailability).Methods(http.MethodGet)
	v1.HandleFunc("/schedule/{personID}", scheduleHandler.GetBookings).Methods(http.MethodGet)
	v1.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNoContent)
	})

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", env.Cors)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	server := &http.Server{
		Addr:    ":" + env.Port,
		Handler: r,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logging.Info("Listening on port " + env.Port)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = group.Wait()
	if err != nil {
		logging.Error("Server stopped", err)
	}
}
