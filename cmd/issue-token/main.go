package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rentamate/booking-backend/internal/models"
	"github.com/rentamate/booking-backend/pkg/jwt"
)

// Mints an access token for local testing. Real tokens come from the identity service.
func main() {
	var (
		userID string
		email  string
		role   string
		ttl    time.Duration
	)
	flag.StringVar(&userID, "user", "", "user id (uuid)")
	flag.StringVar(&email, "email", "dev@localhost", "email claim")
	flag.StringVar(&role, "role", "RENTER", "RENTER or MATE")
	flag.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		log.Fatalf("invalid -user: %v", err)
	}
	parsedRole, err := models.ParseRole(role)
	if err != nil {
		log.Fatalf("invalid -role: %v", err)
	}

	token, err := jwt.NewService(secret, ttl).GenerateAccessToken(id, email, parsedRole.String())
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Println(token)
}
