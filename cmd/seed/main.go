package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"elearn-entitlements/internal/config"
	"elearn-entitlements/internal/domain/model"
	pg "elearn-entitlements/internal/infra/db/postgres"
	"elearn-entitlements/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	planRepo := pg.NewPlanRepo(pool)
	planUC := usecase.NewPlanUseCase(planRepo)

	// If plans already exist, do nothing
	plans, err := planUC.List(ctx)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (days=%d)\n", p.Name, p.DurationDays)
		}
		return
	}

	seed := []struct {
		Name string
		Days int
	}{
		{"Monthly", 30},
		{"Quarterly", 90},
		{"Annual", 365},
	}
	for _, s := range seed {
		p, err := planUC.Create(ctx, s.Name, s.Days)
		if err != nil {
			log.Fatalf("create plan %q: %v", s.Name, err)
		}
		fmt.Printf("seeded: %s (id=%s, days=%d)\n", p.Name, p.ID, p.DurationDays)
	}

	// One master code for manual smoke tests.
	codeRepo := pg.NewCodeRepo(pool)
	master, err := model.NewCode("", "WELCOME", model.CodeKindMaster)
	if err != nil {
		log.Fatalf("build master code: %v", err)
	}
	if err := codeRepo.Save(ctx, nil, master); err != nil {
		log.Fatalf("save master code: %v", err)
	}
	fmt.Printf("seeded: master code %s (id=%s)\n", master.Value, master.ID)

	fmt.Println("✅ Seeding complete.")
}
