// Command seed fills the database with a demo maker community.
package main

import (
	"context"
	"flag"
	"log"

	"labbook/internal/config"
	"labbook/internal/database"
	"labbook/internal/seed"
)

func main() {
	profiles := flag.Int("profiles", 12, "Number of profiles to create")
	experiments := flag.Int("experiments", 2, "Experiments per profile")
	maxDays := flag.Int("days", 30, "Spread creation times over this many past days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	presetPath := flag.String("preset", "", "YAML preset file (defaults to the built-in makers preset)")
	dryRun := flag.Bool("dry-run", false, "Log what would be created without writing")
	skipBcrypt := flag.Bool("skip-bcrypt", false, "Store plain passwords (fast, never use outside local dev)")
	randSeed := flag.Int64("seed", 0, "Random seed (0 uses the clock)")
	demo := flag.Bool("demo", true, "Ensure the demo profile exists")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	preset, err := seed.LoadPreset(*presetPath)
	if err != nil {
		log.Fatalf("Failed to load preset: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		Profiles:              *profiles,
		ExperimentsPerProfile: *experiments,
		MaxDays:               *maxDays,
		ShouldClean:           *shouldClean,
		SkipBcrypt:            *skipBcrypt,
		DryRun:                *dryRun,
		RandSeed:              *randSeed,
	}, preset)

	summary, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	if *demo && !*dryRun {
		p, err := seed.EnsureDemoProfile(ctx, db, preset)
		if err != nil {
			log.Fatalf("❌ Demo profile failed: %v", err)
		}
		log.Printf("👤 Demo login: %s", p.Email)
	}

	log.Printf("✨ All done! Created %s.", summary)
	log.Printf("📧 All seeded profiles have the password: %s", preset.Password)
}
