package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/formlift/formlift/config"
	"github.com/formlift/formlift/pkg/database"
	"github.com/formlift/formlift/pkg/store"
	"github.com/formlift/formlift/pkg/testdata"
)

// Seeds the database with fake accounts, forms and leads for local
// development. Refuses to run against a production environment.
func main() {
	seedCfg := testdata.DefaultConfig()
	flag.IntVar(&seedCfg.Accounts, "accounts", seedCfg.Accounts, "number of accounts to create")
	flag.IntVar(&seedCfg.FormsPerAcct, "forms", seedCfg.FormsPerAcct, "forms per account")
	flag.IntVar(&seedCfg.LeadsPerForm, "leads", seedCfg.LeadsPerForm, "leads per form")
	flag.Float64Var(&seedCfg.ImageChance, "image-chance", seedCfg.ImageChance, "probability a form wants images (0-1)")
	flag.Float64Var(&seedCfg.FailedChance, "failed-chance", seedCfg.FailedChance, "probability a lead is failed (0-1)")
	flag.Parse()

	cfg := config.Load()
	if cfg.APIEnvironment == "production" {
		log.Fatal("❌ Refusing to seed a production database")
	}

	db, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	generator := testdata.NewGenerator(
		store.NewAccountStore(db),
		store.NewFormStore(db),
		store.NewLeadStore(db),
		log.Default(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	if err := generator.Seed(ctx, seedCfg); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✅ Seeded %d accounts x %d forms x %d leads in %s",
		seedCfg.Accounts, seedCfg.FormsPerAcct, seedCfg.LeadsPerForm, time.Since(start).Round(time.Millisecond))
}
