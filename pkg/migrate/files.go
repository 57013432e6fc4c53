package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	unsafeNameChars = regexp.MustCompile(`[^a-z0-9]+`)
	migrationName   = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
)

const skeleton = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- undo %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty versioned migration into dir. The
// binary picks it up on the next build through the embed.
func CreateSQLMigration(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", errors.New("dir is required")
	}
	slug := strings.Trim(unsafeNameChars.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, now.UTC().Format(versionLayout)+"_"+slug+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("migration already exists: %s", path)
		}
		return "", err
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, skeleton, slug); err != nil {
		return "", err
	}
	return path, nil
}

// ValidateDir lints the .sql files in dir: name format, unique versions,
// both goose sections and paired statement markers.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("dir is required")
	}
	// fs.Glob swallows read errors, so a missing dir has to fail here
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	return validateFS(os.DirFS(dir))
}

func validateFS(fsys fs.FS) error {
	matches, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return err
	}
	versions := make(map[string]string, len(matches))
	for _, name := range matches {
		m := migrationName.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (want YYYYMMDDHHMMSS_name.sql)", name)
		}
		if other, dup := versions[m[1]]; dup {
			return fmt.Errorf("version %s used by both %q and %q", m[1], other, name)
		}
		versions[m[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		if err := lintMigration(string(body)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func lintMigration(body string) error {
	for _, section := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(body, section) {
			return fmt.Errorf("missing %q section", section)
		}
	}
	opened := strings.Count(body, "-- +goose StatementBegin")
	closed := strings.Count(body, "-- +goose StatementEnd")
	if opened != closed {
		return fmt.Errorf("unbalanced StatementBegin/End (%d/%d)", opened, closed)
	}
	return nil
}
