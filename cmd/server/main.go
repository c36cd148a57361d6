package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"haulr-dispatch/internal/database"
	"haulr-dispatch/internal/services"
	"haulr-dispatch/internal/websocket"
)

func fatal(title string, err error, hints ...string) {
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("❌ FATAL ERROR: %s", title)
	if err != nil {
		log.Printf("   Error: %v", err)
	}
	for _, hint := range hints {
		log.Printf("   %s", hint)
	}
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	if err == nil {
		err = errors.New(title)
	}
	log.Fatal(err)
}

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 HAULR DISPATCH SYNC SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	log.Println("🔍 Checking DATABASE_URL environment variable...")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		fatal("DATABASE_URL environment variable is required", nil,
			"Please set DATABASE_URL in the environment or .env file")
	}
	log.Println("✅ DATABASE_URL found")

	if os.Getenv("APP_JWT_SECRET") == "" {
		fatal("APP_JWT_SECRET environment variable is required", nil,
			"Login tokens cannot be signed without it")
	}

	// Connect to database
	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(dbURL)
	if err != nil {
		fatal("Database connection failed", err,
			"This is usually caused by:",
			"1. Wrong DATABASE_URL format",
			"2. PostgreSQL service is down",
			"3. Network connectivity issue",
			"4. Invalid credentials")
	}
	defer db.Close()
	log.Println("✅ Database connection established")

	// Run migrations
	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		fatal("Database migrations failed", err)
	}
	log.Println("✅ Database migrations completed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collections := database.NewCollectionRepo(db)
	accounts := database.NewAccountRepo(db)

	// Seed database
	log.Println("🌱 Seeding database with initial data...")
	if err := database.SeedDispatchers(db); err != nil {
		fatal("Dispatcher seeding failed", err)
	}
	if err := database.SeedCollections(ctx, collections); err != nil {
		fatal("Collection seeding failed", err)
	}
	log.Println("✅ Seed data ready")

	// Initialize Firebase Cloud Messaging
	// Supports both file path and base64-encoded credentials
	var pusher services.Pusher
	if creds := os.Getenv("FIREBASE_CREDENTIALS_BASE64"); creds != "" {
		fcm, err := services.NewFCMServiceFromBase64(creds)
		if err != nil {
			log.Printf("⚠️  Warning: Failed to initialize FCM from base64: %v", err)
		} else {
			pusher = fcm
			log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		}
	} else if path := os.Getenv("FIREBASE_CREDENTIALS_PATH"); path != "" {
		fcm, err := services.NewFCMService(path)
		if err != nil {
			log.Printf("⚠️  Warning: Failed to initialize FCM from file: %v", err)
		} else {
			pusher = fcm
			log.Println("✅ Firebase Cloud Messaging initialized from file")
		}
	} else {
		log.Println("⚠️  FCM not configured, push notifications disabled")
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)
	log.Println("✅ WebSocket hub started")

	notifier := services.NewSyncNotifier(wsHub, pusher, accounts)
	router := newRouter(collections, accounts, notifier, wsHub)

	log.Println("🔍 Checking PORT environment variable...")
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		log.Printf("⚠️  PORT not set, using default: %s", port)
	} else {
		log.Printf("✅ PORT found: %s", port)
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("🛑 Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️  Graceful shutdown failed: %v", err)
		}
	}()

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", port)
	log.Println("🔌 Ready to accept requests!")
	log.Println("═══════════════════════════════════════════════════════════════════")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("Server failed to start", err, "Port: "+port)
	}
	log.Println("👋 Server stopped")
}
