package database

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"sync"
)

// Migration is one versioned SQL script pair embedded in the binary.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
	// Checksum is the sha256 of UpScript, recorded when the migration is applied.
	Checksum string
}

func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var migrationFile = regexp.MustCompile(`^(\d{6})_([a-z0-9_]+)\.up\.sql$`)

var (
	embeddedOnce sync.Once
	embedded     []Migration
	embeddedErr  error
)

// Migrations returns the embedded migrations sorted by version.
func Migrations() ([]Migration, error) {
	embeddedOnce.Do(func() {
		embedded, embeddedErr = LoadMigrations(migrationFS, "migrations")
	})
	return embedded, embeddedErr
}

// MigrationByVersion returns the embedded migration with the given version.
func MigrationByVersion(version int) (Migration, bool) {
	all, err := Migrations()
	if err != nil {
		return Migration{}, false
	}
	for _, m := range all {
		if m.Version == version {
			return m, true
		}
	}
	return Migration{}, false
}

// LoadMigrations reads NNNNNN_name.up.sql / .down.sql pairs from dir. Every
// up script needs a down script and versions must be unique.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var out []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := migrationFile.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		version, _ := strconv.Atoi(match[1])
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %06d: %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		up, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		downName := fmt.Sprintf("%s_%s.down.sql", match[1], match[2])
		down, err := fs.ReadFile(fsys, path.Join(dir, downName))
		if err != nil {
			return nil, fmt.Errorf("migration %s has no down script: %w", entry.Name(), err)
		}

		sum := sha256.Sum256(up)
		out = append(out, Migration{
			Version:    version,
			Name:       match[2],
			UpScript:   string(up),
			DownScript: string(down),
			Checksum:   hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
