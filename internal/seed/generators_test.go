package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"portal/internal/models"
)

func TestBuildProfile_TimestampsAndFormats(t *testing.T) {
	opts := Options{DryRun: true, MaxDays: 30, Domain: "example.edu"}
	f := NewFactory(nil, opts)

	p := f.BuildProfile(models.RoleStudent, models.StatusPending)
	if !strings.HasSuffix(p.Email, "@example.edu") {
		t.Fatalf("unexpected email domain: %s", p.Email)
	}
	if p.FullName == nil || *p.FullName == "" {
		t.Fatalf("expected a generated name")
	}
	if p.YearOfStudy == nil || *p.YearOfStudy < 1 || *p.YearOfStudy > 5 {
		t.Fatalf("year of study out of range: %v", p.YearOfStudy)
	}

	// timestamp should be within MaxDays
	if time.Since(p.CreatedAt) > (time.Duration(opts.MaxDays)+1)*24*time.Hour {
		t.Fatalf("created_at too old: %v", p.CreatedAt)
	}

	rejected := f.BuildProfile(models.RoleStudent, models.StatusRejected)
	if rejected.RejectionReason == nil || rejected.RejectedAt == nil {
		t.Fatalf("expected rejection details")
	}
	if rejected.RejectedAt.Before(rejected.CreatedAt) || !rejected.UpdatedAt.Equal(*rejected.RejectedAt) {
		t.Fatalf("rejection must follow creation and set updated_at")
	}

	if f.NextEmail() == f.NextEmail() {
		t.Fatalf("expected unique addresses")
	}
}

func TestBuildProfile_Overrides(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true})
	p := f.BuildProfile(models.RoleAdmin, models.StatusApproved, func(p *models.Profile) {
		p.Email = "lead@uni.edu"
	})
	if p.Email != "lead@uni.edu" || !p.CanUseConsole() {
		t.Fatalf("override not applied: %+v", p)
	}
}

func TestFactory_DryRunWritesNothing(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true})
	ctx := context.Background()

	p, err := f.CreateProfile(ctx, models.RoleStudent, models.StatusApproved)
	if err != nil || p.ID == "" {
		t.Fatalf("dry-run CreateProfile: %v", err)
	}
	conv, err := f.CreateConversation(ctx, p, 2)
	if err != nil || conv.OwnerID != p.ID {
		t.Fatalf("dry-run CreateConversation: %v", err)
	}
	if n, err := f.AllowEmails(ctx, "", p.Email); err != nil || n != 1 {
		t.Fatalf("dry-run AllowEmails: n=%d err=%v", n, err)
	}
}
