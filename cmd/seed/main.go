// Command main runs the database seeder for the student portal.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"portal/internal/config"
	"portal/internal/database"
	"portal/internal/seed"
)

func main() {
	students := flag.Int("students", 50, "Number of students to create")
	admins := flag.Int("admins", 2, "Number of approved admins to create")
	invited := flag.Int("invited", 10, "Allow-listed addresses without an account")
	turns := flag.Int("turns", 3, "Chat turns per approved student")
	pending := flag.Int("pending", 30, "Percentage of students left pending")
	approved := flag.Int("approved", 60, "Percentage of students approved")
	rejected := flag.Int("rejected", 10, "Percentage of students rejected")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Hash passwords with the minimum bcrypt cost")
	dryRun := flag.Bool("dry-run", false, "Generate rows without writing them")
	domain := flag.String("domain", "uni.edu", "Email domain of generated students")
	preset := flag.String("preset", "", "Apply a seeder preset ("+strings.Join(seed.PresetNames(), ", ")+")")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	var s *seed.Seeder
	opts := seed.Options{DryRun: *dryRun, SkipBcrypt: *fast, Domain: *domain}
	if *dryRun {
		s = seed.NewSeeder(nil, opts)
	} else {
		db, err := database.Connect(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		s = seed.NewSeeder(db, opts)

		if *shouldClean {
			if err := s.ClearAll(ctx); err != nil {
				log.Fatalf("❌ Cleanup failed: %v", err)
			}
		}
	}

	var sum *seed.Summary
	if *preset != "" {
		log.Printf("Applying preset: %s (ignoring count flags)\n", *preset)
		sum, err = s.ApplyPreset(ctx, *preset)
	} else {
		sum, err = s.Run(ctx, seed.Config{
			Students: *students,
			Admins:   *admins,
			Invited:  *invited,
			Turns:    *turns,
			Distribution: seed.Distribution{
				Pending:  *pending,
				Approved: *approved,
				Rejected: *rejected,
			},
		})
	}
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! admins=%d pending=%d approved=%d rejected=%d invited=%d conversations=%d",
		sum.Admins, sum.Pending, sum.Approved, sum.Rejected, sum.Invited, sum.Conversations)
	log.Printf("📧 All seeded accounts have the password: %s", seed.DefaultPassword)
}
