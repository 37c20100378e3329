package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
)

// ValidateDir checks migration filenames and goose headers. A sqlite
// subdirectory, when present, must carry exactly the same versions.
func ValidateDir(dir string) error {
	versions, err := validateFiles(dir)
	if err != nil {
		return err
	}

	sub := filepath.Join(dir, SQLiteSubdir)
	if info, statErr := os.Stat(sub); statErr != nil || !info.IsDir() {
		return nil
	}
	sqliteVersions, err := validateFiles(sub)
	if err != nil {
		return err
	}
	for version, name := range versions {
		if _, ok := sqliteVersions[version]; !ok {
			return fmt.Errorf("migration %q has no sqlite counterpart in %q", name, sub)
		}
	}
	for version, name := range sqliteVersions {
		if _, ok := versions[version]; !ok {
			return fmt.Errorf("sqlite migration %q has no counterpart in %q", name, dir)
		}
	}
	return nil
}

func validateFiles(dir string) (map[string]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}

		version := m[1]
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name

		full := filepath.Join(dir, name)
		b, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("read file %q: %w", full, err)
		}

		txt := string(b)
		if !strings.Contains(txt, "-- +goose Up") {
			return nil, fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
		}
		if !strings.Contains(txt, "-- +goose Down") {
			return nil, fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
		}
	}

	if len(seen) == 0 {
		return nil, fmt.Errorf("no migrations found in %q", dir)
	}
	return seen, nil
}
