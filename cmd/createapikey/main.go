package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vitoflow/metering-api/internal/domain/apikey"
	"github.com/vitoflow/metering-api/internal/storage/postgres"
	"github.com/vitoflow/metering-api/internal/util"
	"go.uber.org/zap"
)

func main() {
	tenant := flag.String("tenant", "", "Tenant UUID the key belongs to (required)")
	name := flag.String("name", "default", "Human-readable key name")
	scopes := flag.String("scopes", "chat", "Comma-separated scopes granted to the key")
	providers := flag.String("providers", "", "Comma-separated provider allow-list")
	models := flag.String("models", "", "Comma-separated model allow-list")
	perMinute := flag.Int("rpm", 60, "Rate limit per minute")
	perDay := flag.Int("rpd", 10000, "Rate limit per day")
	maxDayCents := flag.Int64("max-day-cents", 0, "Daily cost cap in cents (0 = unlimited)")
	maxMonthCents := flag.Int64("max-month-cents", 0, "Monthly cost cap in cents (0 = unlimited)")
	expiresIn := flag.Duration("expires-in", 0, "Key lifetime, e.g. 720h (0 = no expiry)")
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	tenantID, err := uuid.Parse(*tenant)
	if err != nil {
		log.Fatalf("Invalid -tenant value: %v", err)
	}

	scopeList := splitList(*scopes)
	if len(scopeList) == 0 {
		log.Fatal("At least one scope is required")
	}

	fullKey, prefix, keyHash, err := util.GenerateAPIKey(scopeList[0])
	if err != nil {
		log.Fatalf("Failed to generate API key: %v", err)
	}

	fmt.Printf("Generated API Key (SAVE THIS securely, it is shown only once!):\n%s\n\n", fullKey)
	fmt.Printf("Prefix: %s\n", prefix)

	logger, _ := zap.NewDevelopment()
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	repo := postgres.NewAPIKeyRepository(pool, logger)

	newKeyRecord := &apikey.APIKey{
		TenantID:           tenantID,
		KeyName:            *name,
		KeyHash:            keyHash,
		KeyPrefix:          prefix,
		Scopes:             scopeList,
		AllowedProviders:   splitList(*providers),
		AllowedModels:      splitList(*models),
		RateLimitPerMinute: *perMinute,
		RateLimitPerDay:    *perDay,
		IsActive:           true,
	}
	if *maxDayCents > 0 {
		newKeyRecord.MaxCostPerDayCents = maxDayCents
	}
	if *maxMonthCents > 0 {
		newKeyRecord.MaxCostPerMonthCents = maxMonthCents
	}
	if *expiresIn > 0 {
		expiry := time.Now().UTC().Add(*expiresIn)
		newKeyRecord.ExpiresAt = &expiry
	}

	keyID, err := repo.Create(context.Background(), newKeyRecord)
	if err != nil {
		log.Fatalf("Failed to save API key to database: %v", err)
	}

	fmt.Printf("\nAPI Key saved to database with ID: %s\n", keyID)
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
