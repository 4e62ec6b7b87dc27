package main

import (
	"log"
	"os"

	"referral-ledger/internal/config"
	"referral-ledger/internal/database"
)

// Brings the schema up to date, then applies any SQL files given as arguments
// in order.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	for _, path := range os.Args[1:] {
		sqlBytes, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("Failed to read migration file: %v", err)
		}

		log.Printf("Applying migration: %s", path)
		if err := db.Exec(string(sqlBytes)).Error; err != nil {
			log.Fatalf("Failed to apply migration %s: %v", path, err)
		}
	}

	log.Println("Migrations applied successfully")
}
