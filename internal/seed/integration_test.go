//go:build integration

package seed

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"

	"portal/internal/config"
	"portal/internal/database"
	"portal/internal/models"
)

func parseDatabaseURLToConfig(dsn string) (*config.Config, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}
	password := ""
	if u.User != nil {
		password, _ = u.User.Password()
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	cfg := &config.Config{
		DBHost:       u.Hostname(),
		DBPort:       port,
		DBUser:       u.User.Username(),
		DBPassword:   password,
		DBName:       strings.TrimPrefix(u.Path, "/"),
		DBSSLMode:    "disable",
		Env:          "test",
		DBSchemaMode: "auto",
	}
	return cfg, nil
}

func TestIntegration_SeedPostgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration seed test")
	}
	cfg, err := parseDatabaseURLToConfig(dsn)
	if err != nil {
		t.Fatalf("failed parse dsn: %v", err)
	}
	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("db connect failed: %v", err)
	}

	s := NewSeeder(db, Options{SkipBcrypt: true, MaxDays: 30})
	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	sum, err := s.ApplyPreset(ctx, "minimal")
	if err != nil {
		t.Fatalf("ApplyPreset failed: %v", err)
	}

	var pending int64
	if err := db.Model(&models.Profile{}).Where("approval_status = ?", models.StatusPending).Count(&pending).Error; err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if int(pending) != sum.Pending {
		t.Fatalf("expected %d pending profiles, got %d", sum.Pending, pending)
	}
}
