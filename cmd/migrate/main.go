package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"haulr-dispatch/internal/database"
)

// migrate prepares a database without starting the server: schema, seed data,
// and optionally one extra dispatcher account from DISPATCHER_EMAIL,
// DISPATCHER_PASSWORD and DISPATCHER_NAME.
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	collections := database.NewCollectionRepo(db)
	if err := database.SeedCollections(ctx, collections); err != nil {
		log.Fatalf("Seeding collections failed: %v", err)
	}
	if err := database.SeedDispatchers(db); err != nil {
		log.Fatalf("Seeding dispatchers failed: %v", err)
	}

	if email := os.Getenv("DISPATCHER_EMAIL"); email != "" {
		name := os.Getenv("DISPATCHER_NAME")
		if name == "" {
			name = email
		}
		created, err := database.CreateDispatcher(db, email, os.Getenv("DISPATCHER_PASSWORD"), name)
		if err != nil {
			log.Fatalf("Failed to create dispatcher %s: %v", email, err)
		}
		if created {
			log.Printf("✅ Created dispatcher: %s", email)
		}
	}

	log.Println("Migration completed successfully!")

	stats, err := collections.Summary(ctx)
	if err != nil {
		log.Fatalf("Failed to query summary: %v", err)
	}

	// Display results
	fmt.Println("\n============================================================")
	fmt.Println("COLLECTIONS SUMMARY")
	fmt.Println("============================================================")
	for _, s := range stats {
		updated := time.UnixMilli(s.UpdatedAt).UTC().Format(time.RFC3339)
		fmt.Printf("%-22s %6d items   updated %s\n", s.Name, s.Items, updated)
	}
	if len(stats) == 0 {
		fmt.Println("(no collections stored)")
	}
	fmt.Println("============================================================")
}
