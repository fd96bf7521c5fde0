// Package main provides operator utilities for admin roles and the signup allow-list.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/user"
	"strings"

	"portal/internal/bootstrap"
	"portal/internal/cache"
	"portal/internal/config"
	"portal/internal/database"
	"portal/internal/middleware"
	"portal/internal/models"
	"portal/internal/notifications"
	"portal/internal/repository"
	"portal/internal/service"
	"portal/internal/validation"
)

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  admin promote <email>               - Grant the admin role (also approves)")
	fmt.Println("  admin demote <email>                - Revoke the admin role")
	fmt.Println("  admin list-admins                   - List all admins")
	fmt.Println("  admin allow <email> [note]          - Add an address to the allow-list")
	fmt.Println("  admin disallow <email>              - Remove an address from the allow-list")
	fmt.Println("  admin import-allowlist <file.yml>   - Upsert every address in a YAML file")
	fmt.Println("  admin list-allowlist                - List the allow-list")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func main() {
	operator := flag.String("operator", defaultOperator(), "Name recorded in the audit log")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	middleware.ConfigureLogger(cfg.LogLevel, cfg.LogFormat, cfg.Env)

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Role changes are published so connected clients re-route immediately.
	cache.InitRedis(cfg.RedisURL)
	rdb := cache.GetClient()
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	profiles := repository.NewProfileRepository(db)
	allowlist := repository.NewAllowlistRepository(db)
	admins := service.NewAdminService(profiles, allowlist, nil, notifications.NewNotifier(rdb))

	args := flag.Args()
	if err := run(ctx, admins, *operator, args); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, admins *service.AdminService, operator string, args []string) error {
	need := func(n int, usage string) error {
		if len(args) < n {
			return fmt.Errorf("usage: admin %s", usage)
		}
		return nil
	}

	switch args[0] {
	case "promote":
		if err := need(2, "promote <email>"); err != nil {
			return err
		}
		p, err := admins.SetRole(ctx, operator, args[1], models.RoleAdmin)
		if err != nil {
			return err
		}
		fmt.Printf("✅ %s (ID: %s) is now an approved admin\n", p.Email, p.ID)

	case "demote":
		if err := need(2, "demote <email>"); err != nil {
			return err
		}
		p, err := admins.SetRole(ctx, operator, args[1], models.RoleStudent)
		if err != nil {
			return err
		}
		fmt.Printf("✅ %s (ID: %s) is now a %s student\n", p.Email, p.ID, p.ApprovalStatus)

	case "list-admins":
		list, err := admins.Admins(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No admins found in the system")
			return nil
		}
		fmt.Println("\n📋 Current Admins:")
		fmt.Println("─────────────────────────────────────")
		for _, a := range list {
			fmt.Printf("ID: %s | Email: %s | Status: %s\n", a.ID, a.Email, a.ApprovalStatus)
		}
		fmt.Println("─────────────────────────────────────")

	case "allow":
		if err := need(2, "allow <email> [note]"); err != nil {
			return err
		}
		note := strings.Join(args[2:], " ")
		if _, err := admins.AllowEmails(ctx, validation.AllowedEmailRequest{Email: args[1], Note: note}); err != nil {
			return err
		}
		fmt.Printf("✅ %s may now sign up\n", validation.NormalizeEmail(args[1]))

	case "disallow":
		if err := need(2, "disallow <email>"); err != nil {
			return err
		}
		if err := admins.DisallowEmail(ctx, args[1]); err != nil {
			return err
		}
		fmt.Printf("✅ %s removed from the allow-list\n", validation.NormalizeEmail(args[1]))

	case "import-allowlist":
		if err := need(2, "import-allowlist <file.yml>"); err != nil {
			return err
		}
		entries, err := bootstrap.LoadAllowlistFile(args[1])
		if err != nil {
			return err
		}
		reqs := make([]validation.AllowedEmailRequest, 0, len(entries))
		for _, e := range entries {
			reqs = append(reqs, validation.AllowedEmailRequest{Email: e.Email, Note: e.Note})
		}
		n, err := admins.AllowEmails(ctx, reqs...)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Imported %d addresses (%d rows changed)\n", len(entries), n)

	case "list-allowlist":
		list, err := admins.AllowedEmails(ctx)
		if err != nil {
			return err
		}
		for _, e := range list {
			if e.Note != "" {
				fmt.Printf("%s\t%s\n", e.Email, e.Note)
			} else {
				fmt.Println(e.Email)
			}
		}
		fmt.Printf("%d addresses\n", len(list))

	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
	return nil
}

func defaultOperator() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "cli"
}
