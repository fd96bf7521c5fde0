package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"portal/internal/models"
	"portal/internal/repository"
	"portal/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// allowlistFile is the on-disk seed format. Entries may be bare addresses
// or mappings with an email and a note:
//
//	emails:
//	  - alice@uni.edu
//	  - email: bob@uni.edu
//	    note: transfer student
type allowlistFile struct {
	Emails []allowlistEntry `yaml:"emails"`
}

type allowlistEntry models.AllowedEmail

// UnmarshalYAML accepts both scalar and mapping entries.
func (e *allowlistEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Email = node.Value
		return nil
	}
	var m models.AllowedEmail
	if err := node.Decode(&m); err != nil {
		return err
	}
	*e = allowlistEntry(m)
	return nil
}

// ParseAllowlist decodes an allow-list document. Addresses are normalized,
// validated and de-duplicated; the first note for an address wins.
func ParseAllowlist(data []byte) ([]models.AllowedEmail, error) {
	var doc allowlistFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode allow-list: %w", err)
	}

	seen := make(map[string]struct{}, len(doc.Emails))
	out := make([]models.AllowedEmail, 0, len(doc.Emails))
	for i, raw := range doc.Emails {
		req := validation.AllowedEmailRequest{
			Email: validation.NormalizeEmail(raw.Email),
			Note:  strings.TrimSpace(raw.Note),
		}
		if err := validation.Struct(&req); err != nil {
			return nil, fmt.Errorf("entry %d (%q): %w", i+1, raw.Email, err)
		}
		if _, dup := seen[req.Email]; dup {
			continue
		}
		seen[req.Email] = struct{}{}
		out = append(out, models.AllowedEmail{Email: req.Email, Note: req.Note})
	}
	return out, nil
}

// LoadAllowlistFile reads and parses an allow-list file.
func LoadAllowlistFile(path string) ([]models.AllowedEmail, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read allow-list: %w", err)
	}
	return ParseAllowlist(data)
}

// SeedAllowlistFile upserts every entry of the file and returns the number of
// rows changed.
func SeedAllowlistFile(ctx context.Context, db *gorm.DB, path string) (int64, error) {
	entries, err := LoadAllowlistFile(path)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	return repository.NewAllowlistRepository(db).Upsert(ctx, entries...)
}
