package main

import (
	"context"
	"flag"
	"log"

	"elearn-entitlements/internal/config"
	"elearn-entitlements/internal/domain/model"
	"elearn-entitlements/internal/infra/db/postgres"
	"elearn-entitlements/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
)

// This script is for setting up a clean, predictable database state
// for manual end-to-end testing.
func main() {
	ctx := context.Background()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	// --- Connect to Postgres ---
	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	// --- Connect to Redis ---
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	// 1. Clean the Redis cache to remove any stale snapshots.
	log.Println("[1/4] Wiping Redis cache...")
	if err := redisClient.FlushDB(ctx); err != nil {
		log.Fatalf("failed to flush redis: %v", err)
	}

	// 2. Clean the database completely.
	log.Println("[2/4] Wiping all existing database data...")
	_, err = pool.Exec(ctx, `
		TRUNCATE
			codes, redemptions, accounts, subscription_plans, purchases,
			entitlements, notes, notification_reads, quiz_attempts
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	// 3. Seed the database with standard plans and a few codes.
	log.Println("[3/4] Seeding standard plans and codes...")
	seedPlansAndCodes(ctx, pool)

	log.Println("[4/4] (Optional) Seeding specific test data...")
	// You can add more specific data for your tests here if needed.

	log.Println("--- ✅ E2E Environment Setup Complete ---")
}

// seedPlansAndCodes contains the standard data needed for manual flows.
func seedPlansAndCodes(ctx context.Context, pool *pgxpool.Pool) {
	planRepo := postgres.NewPlanRepo(pool)
	codeRepo := postgres.NewCodeRepo(pool)

	monthly, _ := model.NewSubscriptionPlan("", "Monthly", 30)
	if err := planRepo.Save(ctx, nil, monthly); err != nil {
		log.Printf("failed to save monthly plan: %v", err)
	}
	annual, _ := model.NewSubscriptionPlan("", "Annual", 365)
	if err := planRepo.Save(ctx, nil, annual); err != nil {
		log.Printf("failed to save annual plan: %v", err)
	}

	// A master code for instructor flows and a quiz code bound to the
	// monthly plan for the redemption happy path.
	master, _ := model.NewCode("", "CLASSROOM", model.CodeKindMaster)
	if err := codeRepo.Save(ctx, nil, master); err != nil {
		log.Printf("failed to save master code: %v", err)
	}
	quiz, _ := model.NewCode("", "QUIZ-100001", model.CodeKindOneTime)
	quiz.PlanID = &monthly.ID
	if err := codeRepo.Save(ctx, nil, quiz); err != nil {
		log.Printf("failed to save quiz code: %v", err)
	}
}
