package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/rentamate/booking-backend/internal/config"
	"github.com/rentamate/booking-backend/internal/database"
)

// tables owned by the booking core, children first
var tables = []string{"payment_events", "bookings", "mate_profiles"}

func main() {
	var dbURLFlag string
	var keepProfiles bool
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.BoolVar(&keepProfiles, "keep-profiles", false, "keep mate profiles and their ratings")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	targets := tables
	if keepProfiles {
		targets = tables[:2]
	}

	fmt.Println("Connected to database. Truncating booking tables...")
	for _, t := range targets {
		if _, err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", t)); err != nil {
			log.Fatalf("failed to truncate %s: %v", t, err)
		}
	}

	fmt.Println("Post-clear row counts:")
	for _, t := range tables {
		var count int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&count); err != nil {
			fmt.Printf("  %s: error: %v\n", t, err)
			continue
		}
		fmt.Printf("  %s: %d\n", t, count)
	}
}
