package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rentamate/booking-backend/internal/config"
	"github.com/rentamate/booking-backend/internal/database"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate [-database-url URL] up | down N | version")
	os.Exit(2)
}

func main() {
	var dbURLFlag string
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	if flag.NArg() == 0 {
		usage()
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

	switch flag.Arg(0) {
	case "up":
		if err := database.RunMigrations(db.DB.DB); err != nil {
			log.Fatal(err)
		}
	case "down":
		if flag.NArg() != 2 {
			usage()
		}
		steps, err := strconv.Atoi(flag.Arg(1))
		if err != nil || steps <= 0 {
			log.Fatalf("down needs a positive step count, got %q", flag.Arg(1))
		}
		if err := database.RollbackMigrations(db.DB.DB, steps); err != nil {
			log.Fatal(err)
		}
	case "version":
	default:
		usage()
	}

	version, dirty, err := database.MigrationVersion(db.DB.DB)
	if err != nil {
		log.Fatalf("failed to read schema version: %v", err)
	}
	fmt.Printf("schema version %d (dirty: %t)\n", version, dirty)
}
