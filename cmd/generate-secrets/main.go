package main

import (
	"fmt"
	"log"

	"github.com/rentamate/booking-backend/internal/utils"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("Secret Generator for the booking backend")
	fmt.Println("===========================================")
	fmt.Println()

	jwtSecret, err := utils.GenerateSecret(32) // 256-bit
	if err != nil {
		log.Fatalf("Failed to generate JWT secret: %v", err)
	}

	webhookSecret, err := utils.GenerateWebhookSecret()
	if err != nil {
		log.Fatalf("Failed to generate webhook secret: %v", err)
	}

	fmt.Println("Add these to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", jwtSecret)
	fmt.Printf("STRIPE_WEBHOOK_SECRET=%s  # local signing only, production uses the dashboard secret\n", webhookSecret)
	fmt.Println()
	fmt.Println("Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
