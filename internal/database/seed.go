package database

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"haulr-dispatch/internal/models"
	"haulr-dispatch/internal/seed"
)

// SeedCollections stores the sample master data when no collection has ever been synced
func SeedCollections(ctx context.Context, repo *CollectionRepo) error {
	count, err := repo.Count(ctx)
	if err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Collections already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding master data collections...")

	drivers := seed.Drivers()
	trucks := seed.Trucks()
	dumpSites := seed.DumpSites()
	customers := seed.Customers()
	ack, err := repo.Sync(ctx, models.SyncRequest{
		Drivers:   &drivers,
		Trucks:    &trucks,
		DumpSites: &dumpSites,
		Customers: &customers,
	})
	if err != nil {
		return err
	}

	log.Printf("✓ Successfully seeded %d collections", len(ack.Collections))
	log.Printf("  🚛 %d drivers, %d trucks, %d dump sites, %d customers", len(drivers), len(trucks), len(dumpSites), len(customers))
	return nil
}

// SeedDispatchers creates the default office account on an empty dispatchers table
func SeedDispatchers(db *sqlx.DB) error {
	// Check if dispatchers already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM dispatchers"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Dispatchers already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding dispatcher account...")

	created, err := CreateDispatcher(db, "dispatch@haulr.example", "admin123", "Dispatch Office")
	if err != nil {
		return err
	}
	if created {
		log.Println("✓ Successfully seeded dispatcher account")
		log.Println("  📧 Dispatcher: dispatch@haulr.example / admin123")
	}
	return nil
}

// CreateDispatcher adds an account unless the email is already taken. It
// reports whether a row was inserted.
func CreateDispatcher(db *sqlx.DB, email, password, name string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, models.Invalid("dispatcher email and password are required")
	}

	var exists bool
	if err := db.Get(&exists, "SELECT EXISTS(SELECT 1 FROM dispatchers WHERE LOWER(email) = $1)", email); err != nil {
		return false, err
	}
	if exists {
		log.Printf("⚠️  Dispatcher already exists: %s", email)
		return false, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}

	account := map[string]interface{}{
		"id":       uuid.New().String(),
		"email":    email,
		"password": string(hashed),
		"name":     name,
	}
	query := `
		INSERT INTO dispatchers (id, email, password, name)
		VALUES (:id, :email, :password, :name)
	`
	if _, err := db.NamedExec(query, account); err != nil {
		return false, err
	}

	log.Printf("  ✓ Created dispatcher: %s", email)
	return true, nil
}
