package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// SQLiteSubdir holds the SQLite copy of every migration, one file per version.
const SQLiteSubdir = "sqlite"

var migrationNameRe = regexp.MustCompile(`[^a-z0-9_]+`)

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty <version>_<name>.sql into dir. When dir
// has a sqlite subdirectory the same stub is written there so both schemas
// keep matching versions. Returns the path of the primary file.
func CreateSQLMigration(dir string, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := migrationSlug(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}

	filename := fmt.Sprintf("%s_%s.sql", time.Now().UTC().Format("20060102150405"), slug)
	targets := []string{filepath.Join(dir, filename)}
	if info, err := os.Stat(filepath.Join(dir, SQLiteSubdir)); err == nil && info.IsDir() {
		targets = append(targets, filepath.Join(dir, SQLiteSubdir, filename))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}
	for _, path := range targets {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("migration already exists: %s", path)
		}
	}
	body := []byte(fmt.Sprintf(migrationTemplate, slug))
	for _, path := range targets {
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return "", fmt.Errorf("write migration %q: %w", path, err)
		}
	}
	return targets[0], nil
}

func migrationSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "_")
	slug = migrationNameRe.ReplaceAllString(slug, "_")
	return strings.Trim(slug, "_")
}
