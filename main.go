package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/option"

	"fitTrackAPI/handlers"
	"fitTrackAPI/internal/cache"
	"fitTrackAPI/internal/store"
	fsstore "fitTrackAPI/internal/store/firestore"
	pgstore "fitTrackAPI/internal/store/postgres"
	"fitTrackAPI/internal/workers"
	"fitTrackAPI/middleware"
	"fitTrackAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool             *pgxpool.Pool
	dataStore          store.Store
	tokenVerifier      middleware.TokenVerifier
	leaderboardCache   *cache.Cache
	userService        *services.UserService
	fitnessService     *services.FitnessService
	workoutService     *services.WorkoutService
	leaderboardService *services.LeaderboardService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var firebaseApp *firebase.App
	backend := os.Getenv("STORE_BACKEND")
	authProvider := os.Getenv("AUTH_PROVIDER")
	if backend == "firestore" || (authProvider != "clerk" && authProvider != "local") {
		var err error
		firebaseApp, err = newFirebaseApp(ctx)
		if err != nil {
			log.Fatal("Failed to initialize Firebase app:", err)
		}
	}

	switch backend {
	case "firestore":
		client, err := firebaseApp.Firestore(ctx)
		if err != nil {
			log.Fatal("Failed to create Firestore client:", err)
		}
		dataStore = fsstore.New(client)
		log.Println("Successfully connected to Firestore")
	default:
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL == "" {
			log.Fatal("DATABASE_URL environment variable is not set")
		}

		poolConfig, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			log.Fatal("Failed to parse database URL:", err)
		}

		poolConfig.MaxConns = 25
		poolConfig.MinConns = 5
		poolConfig.MaxConnLifetime = time.Hour
		poolConfig.MaxConnIdleTime = 30 * time.Minute
		poolConfig.HealthCheckPeriod = time.Minute

		dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			log.Fatal("Failed to create connection pool:", err)
		}

		if err := dbPool.Ping(ctx); err != nil {
			log.Fatal("Failed to ping database:", err)
		}

		dataStore = pgstore.New(dbPool)
		log.Println("Successfully connected to Postgres")
	}

	switch authProvider {
	case "clerk":
		clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
		if clerkSecretKey == "" {
			log.Fatal("CLERK_SECRET_KEY environment variable is not set")
		}
		clerk.SetKey(clerkSecretKey)
		tokenVerifier = &middleware.ClerkVerifier{}
		log.Println("Clerk initialized successfully")
	case "local":
		secret := os.Getenv("LOCAL_JWT_SECRET")
		if secret == "" {
			log.Fatal("LOCAL_JWT_SECRET environment variable is not set")
		}
		tokenVerifier = &middleware.LocalVerifier{Secret: secret}
		log.Println("Local JWT auth initialized (development only)")
	default:
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			log.Fatal("Failed to create Firebase Auth client:", err)
		}
		tokenVerifier = &middleware.FirebaseVerifier{Client: authClient}
		log.Println("Firebase Auth initialized successfully")
	}

	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		var err error
		leaderboardCache, err = cache.New(ctx, redisAddr)
		if err != nil {
			log.Printf("Warning: Could not connect to Redis, leaderboard caching disabled: %v", err)
		} else {
			log.Println("Redis cache initialized successfully")
		}
	}

	userService = services.NewUserService(dataStore)
	fitnessService = services.NewFitnessService(dataStore)
	workoutService = services.NewWorkoutService(dataStore)
	leaderboardService = services.NewLeaderboardService(dataStore, leaderboardCache)

	middleware.InitPrometheus()
}

func newFirebaseApp(ctx context.Context) (*firebase.App, error) {
	if credFile := os.Getenv("FIREBASE_CREDENTIALS_FILE"); credFile != "" {
		return firebase.NewApp(ctx, nil, option.WithCredentialsFile(credFile))
	}
	return firebase.NewApp(ctx, nil)
}

func main() {
	defer func() {
		if dbPool != nil {
			log.Println("Closing database connection pool...")
			dbPool.Close()
		}
		if leaderboardCache != nil {
			leaderboardCache.Close()
		}
	}()

	userHandler := handlers.NewUserHandler(userService, fitnessService)
	fitnessHandler := handlers.NewFitnessHandler(fitnessService)
	workoutHandler := handlers.NewWorkoutHandler(workoutService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := dataStore.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "store connection failed"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "fitTrack-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := r.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.AuthMiddleware(tokenVerifier))

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user", userHandler.CreateProfile).Methods("POST")
	protected.HandleFunc("/user/update-profile", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user/delete-account", userHandler.DeleteAccount).Methods("DELETE")

	protected.HandleFunc("/fitness/dashboard", fitnessHandler.GetDashboard).Methods("GET")
	protected.HandleFunc("/fitness/daily", fitnessHandler.GetDay).Methods("GET")
	protected.HandleFunc("/fitness/daily", fitnessHandler.SaveDay).Methods("PUT")
	protected.HandleFunc("/fitness/steps", fitnessHandler.SaveSteps).Methods("PUT")
	protected.HandleFunc("/fitness/water", fitnessHandler.AddWater).Methods("POST")
	protected.HandleFunc("/fitness/progress", fitnessHandler.GetProgress).Methods("GET")
	protected.HandleFunc("/fitness/calendar", fitnessHandler.GetCalendar).Methods("GET")

	protected.HandleFunc("/workouts", workoutHandler.AddWorkout).Methods("POST")
	protected.HandleFunc("/workouts", workoutHandler.GetWorkouts).Methods("GET")

	protected.HandleFunc("/leaderboard", leaderboardHandler.GetLeaderboard).Methods("GET")

	simCtx, simCancel := context.WithCancel(context.Background())
	defer simCancel()
	if simUsers := os.Getenv("SIMULATED_UIDS"); simUsers != "" {
		interval := 10 * time.Second
		if raw := os.Getenv("SIMULATOR_INTERVAL"); raw != "" {
			if parsed, err := time.ParseDuration(raw); err == nil {
				interval = parsed
			}
		}
		sim := workers.NewStepSimulator(fitnessService, strings.Split(simUsers, ","), interval)
		sim.Start(simCtx)
	}

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	simCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
