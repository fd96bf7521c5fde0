// Package seed provides helpers to create demo data for the portal database.
// These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"portal/internal/models"
	"portal/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Options tune how the factory generates and persists rows.
type Options struct {
	// DryRun builds rows without writing them.
	DryRun bool
	// SkipBcrypt hashes with the minimum cost for fast local seeding.
	SkipBcrypt bool
	// MaxDays bounds how far back created_at timestamps are spread.
	MaxDays int
	// Domain is the email domain of generated students.
	Domain string
}

var rejectionReasons = []string{
	"Enrollment could not be verified",
	"Please sign up with your university email address",
	"Year of study does not match registry records",
	"Duplicate application",
	"Incomplete profile details",
}

// Factory builds portal entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db        *gorm.DB
	opts      Options
	accounts  repository.AccountRepository
	allowlist repository.AllowlistRepository
	chat      repository.ChatRepository
	rnd       *rand.Rand

	hashOnce sync.Once
	hash     string
	hashErr  error
	seq      int
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	if opts.Domain == "" {
		opts.Domain = "uni.edu"
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	return &Factory{
		db:        db,
		opts:      opts,
		accounts:  repository.NewAccountRepository(db),
		allowlist: repository.NewAllowlistRepository(db),
		chat:      repository.NewChatRepository(db),
		// #nosec G404: acceptable for seeding
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (f *Factory) passwordHash() (string, error) {
	f.hashOnce.Do(func() {
		cost := bcrypt.DefaultCost
		if f.opts.SkipBcrypt {
			cost = bcrypt.MinCost
		}
		b, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
		f.hash, f.hashErr = string(b), err
	})
	return f.hash, f.hashErr
}

// createdAt returns a timestamp spread over the last MaxDays days.
func (f *Factory) createdAt() time.Time {
	back := time.Duration(f.rnd.Intn(f.opts.MaxDays))*24*time.Hour +
		time.Duration(f.rnd.Intn(24))*time.Hour +
		time.Duration(f.rnd.Intn(60))*time.Minute
	return time.Now().UTC().Add(-back)
}

// NextEmail returns a unique, realistic student address on the factory domain.
func (f *Factory) NextEmail() string {
	f.seq++
	first := strings.ToLower(gofakeit.FirstName())
	last := strings.ToLower(gofakeit.LastName())
	return fmt.Sprintf("%s.%s%d@%s", first, last, f.seq, f.opts.Domain)
}

// BuildProfile constructs a profile in the given state without persisting it.
// Decision timestamps follow created_at and updated_at is the latest of them.
func (f *Factory) BuildProfile(role models.Role, status models.ApprovalStatus, overrides ...func(*models.Profile)) *models.Profile {
	name := gofakeit.Name()
	year := f.rnd.Intn(5) + 1
	created := f.createdAt()

	p := &models.Profile{
		Email:          f.NextEmail(),
		FullName:       &name,
		YearOfStudy:    &year,
		Role:           role,
		ApprovalStatus: status,
		CreatedAt:      created,
		UpdatedAt:      created,
	}

	decided := created.Add(time.Duration(f.rnd.Intn(72)+1) * time.Hour)
	if decided.After(time.Now().UTC()) {
		decided = time.Now().UTC()
	}
	switch status {
	case models.StatusApproved:
		p.ApprovedAt = &decided
		p.UpdatedAt = decided
	case models.StatusRejected:
		reason := rejectionReasons[f.rnd.Intn(len(rejectionReasons))]
		p.RejectionReason = &reason
		p.RejectedAt = &decided
		p.UpdatedAt = decided
	}

	for _, override := range overrides {
		override(p)
	}
	return p
}

// CreateProfile persists an account with DefaultPassword and a profile built
// by BuildProfile.
func (f *Factory) CreateProfile(ctx context.Context, role models.Role, status models.ApprovalStatus, overrides ...func(*models.Profile)) (*models.Profile, error) {
	p := f.BuildProfile(role, status, overrides...)

	if f.opts.DryRun {
		p.ID = uuid.NewString()
		log.Printf("[dry-run] CreateProfile: email=%s role=%s status=%s", p.Email, p.Role, p.ApprovalStatus)
		return p, nil
	}

	hash, err := f.passwordHash()
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account := &models.Account{
		ID:           uuid.NewString(),
		Email:        p.Email,
		PasswordHash: hash,
		CreatedAt:    p.CreatedAt,
	}
	if err := f.accounts.CreateWithProfile(ctx, account, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AllowEmails puts addresses on the signup allow-list.
func (f *Factory) AllowEmails(ctx context.Context, note string, emails ...string) (int64, error) {
	entries := make([]models.AllowedEmail, 0, len(emails))
	for _, e := range emails {
		entries = append(entries, models.AllowedEmail{Email: e, Note: note})
	}
	if f.opts.DryRun {
		log.Printf("[dry-run] AllowEmails: %d entries", len(entries))
		return int64(len(entries)), nil
	}
	return f.allowlist.Upsert(ctx, entries...)
}

// CreateConversation stores a conversation for owner with the given number of
// question and answer turns, spaced a minute apart.
func (f *Factory) CreateConversation(ctx context.Context, owner *models.Profile, turns int) (*models.Conversation, error) {
	start := owner.UpdatedAt.Add(time.Duration(f.rnd.Intn(48)+1) * time.Hour)
	if start.After(time.Now().UTC()) {
		start = time.Now().UTC().Add(-time.Duration(turns*2+1) * time.Minute)
	}

	conv := &models.Conversation{
		OwnerID:   owner.ID,
		Title:     strings.TrimSuffix(gofakeit.HipsterSentence(4), "."),
		CreatedAt: start,
	}

	msgs := make([]*models.Message, 0, turns*2)
	at := start
	for i := 0; i < turns; i++ {
		question := gofakeit.Question()
		msgs = append(msgs,
			&models.Message{Role: models.MessageRoleUser, Content: question, CreatedAt: at},
			&models.Message{Role: models.MessageRoleAssistant, Content: gofakeit.Paragraph(1, 3, 12, " "), CreatedAt: at.Add(time.Minute)},
		)
		at = at.Add(2 * time.Minute)
	}

	if f.opts.DryRun {
		conv.ID = uuid.NewString()
		log.Printf("[dry-run] CreateConversation: owner=%s messages=%d", owner.ID, len(msgs))
		return conv, nil
	}

	if err := f.chat.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	for _, m := range msgs {
		m.ConversationID = conv.ID
	}
	if err := f.chat.CreateMessages(ctx, msgs...); err != nil {
		return nil, err
	}
	return conv, nil
}
