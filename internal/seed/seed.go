package seed

import (
	"context"
	"fmt"
	"log"
	"sort"

	"portal/internal/models"

	"gorm.io/gorm"
)

// Distribution splits seeded students across approval states by percentage.
type Distribution struct {
	Pending  int
	Approved int
	Rejected int
}

var defaultDistribution = Distribution{Pending: 30, Approved: 60, Rejected: 10}

// Config describes one seeding run.
type Config struct {
	Students int
	Admins   int
	// Invited is the number of allow-listed addresses with no account yet.
	Invited int
	// Turns is the number of chat turns in each approved student's conversation.
	Turns int
	Distribution
}

// Presets are named seeding configurations.
var Presets = map[string]Config{
	"minimal":      {Students: 5, Admins: 1, Invited: 2, Turns: 1, Distribution: defaultDistribution},
	"default":      {Students: 50, Admins: 2, Invited: 10, Turns: 3, Distribution: defaultDistribution},
	"review-queue": {Students: 40, Admins: 1, Invited: 5, Turns: 1, Distribution: Distribution{Pending: 80, Approved: 15, Rejected: 5}},
	"large":        {Students: 1000, Admins: 5, Invited: 100, Turns: 2, Distribution: defaultDistribution},
}

// PresetNames lists Presets in a stable order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary counts what a run created.
type Summary struct {
	Admins        int
	Pending       int
	Approved      int
	Rejected      int
	Invited       int
	Conversations int
}

// Seeder populates the portal tables.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder returns a Seeder writing through a Factory built with opts.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts)}
}

// Factory exposes the underlying factory.
func (s *Seeder) Factory() *Factory {
	return s.factory
}

// computeCounts splits total by d. Rounding leftovers go to pending so the
// parts always sum to total.
func computeCounts(total int, d Distribution) (pending, approved, rejected int) {
	if total <= 0 {
		return 0, 0, 0
	}
	sum := d.Pending + d.Approved + d.Rejected
	if sum <= 0 {
		d, sum = defaultDistribution, 100
	}
	approved = total * d.Approved / sum
	rejected = total * d.Rejected / sum
	pending = total - approved - rejected
	return pending, approved, rejected
}

// ClearAll removes every row the seeder can create, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	log.Println("🗑️  Clearing existing data...")
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{
		&models.Message{},
		&models.Conversation{},
		&models.Profile{},
		&models.Account{},
		&models.AllowedEmail{},
	} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run seeds admins, students in every approval state, invited addresses and
// chat history for approved students. Every seeded address is allow-listed.
func (s *Seeder) Run(ctx context.Context, cfg Config) (*Summary, error) {
	pending, approved, rejected := computeCounts(cfg.Students, cfg.Distribution)
	log.Printf("🌱 Seeding %d admins, %d pending, %d approved, %d rejected, %d invited",
		cfg.Admins, pending, approved, rejected, cfg.Invited)

	sum := &Summary{}
	var emails []string

	for i := 0; i < cfg.Admins; i++ {
		p, err := s.factory.CreateProfile(ctx, models.RoleAdmin, models.StatusApproved)
		if err != nil {
			return sum, fmt.Errorf("create admin: %w", err)
		}
		emails = append(emails, p.Email)
		sum.Admins++
	}

	plan := []struct {
		status models.ApprovalStatus
		count  int
		tally  *int
	}{
		{models.StatusPending, pending, &sum.Pending},
		{models.StatusApproved, approved, &sum.Approved},
		{models.StatusRejected, rejected, &sum.Rejected},
	}
	for _, step := range plan {
		for i := 0; i < step.count; i++ {
			p, err := s.factory.CreateProfile(ctx, models.RoleStudent, step.status)
			if err != nil {
				return sum, fmt.Errorf("create %s student: %w", step.status, err)
			}
			emails = append(emails, p.Email)
			*step.tally++

			if step.status == models.StatusApproved && cfg.Turns > 0 {
				if _, err := s.factory.CreateConversation(ctx, p, cfg.Turns); err != nil {
					return sum, fmt.Errorf("create conversation: %w", err)
				}
				sum.Conversations++
			}
		}
		if step.count > 0 {
			log.Printf("✓ %d %s students created", step.count, step.status)
		}
	}

	if _, err := s.factory.AllowEmails(ctx, "seeded account", emails...); err != nil {
		return sum, fmt.Errorf("allow-list seeded accounts: %w", err)
	}

	invited := make([]string, 0, cfg.Invited)
	for i := 0; i < cfg.Invited; i++ {
		invited = append(invited, s.factory.NextEmail())
	}
	if len(invited) > 0 {
		if _, err := s.factory.AllowEmails(ctx, "invited", invited...); err != nil {
			return sum, fmt.Errorf("allow-list invited addresses: %w", err)
		}
		sum.Invited = len(invited)
		log.Printf("✓ %d invited addresses allow-listed", sum.Invited)
	}

	log.Println("🎉 Database seeding completed successfully!")
	return sum, nil
}

// ApplyPreset runs the named preset.
func (s *Seeder) ApplyPreset(ctx context.Context, name string) (*Summary, error) {
	cfg, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (available: %v)", name, PresetNames())
	}
	return s.Run(ctx, cfg)
}
