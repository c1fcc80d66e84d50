package db

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/terraincognita07/easypeasy/internal/logger"
	"gorm.io/gorm"
)

var migrationName = regexp.MustCompile(`^(\d+)_[\w-]+\.sql$`)

type migration struct {
	version string
	order   int
	file    string
	body    string
}

func migrate(database *gorm.DB, source fs.FS, log *logger.Logger) error {
	if err := database.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`).Error; err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	migrations, err := readMigrations(source)
	if err != nil {
		return err
	}

	var applied []string
	if err := database.Table("schema_migrations").Pluck("version", &applied).Error; err != nil {
		return fmt.Errorf("load applied migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, version := range applied {
		done[version] = true
	}

	for _, m := range migrations {
		if done[m.version] {
			continue
		}
		if err := m.apply(database); err != nil {
			return err
		}
		log.Info("applied migration", "version", m.version, "name", m.file)
	}
	return nil
}

func readMigrations(source fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(source, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	migrations := make([]migration, 0, len(entries))
	byVersion := make(map[int]string, len(entries))
	for _, entry := range entries {
		match := migrationName.FindStringSubmatch(entry.Name())
		if entry.IsDir() || match == nil {
			continue
		}
		order, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", entry.Name(), err)
		}
		if other, ok := byVersion[order]; ok {
			return nil, fmt.Errorf("migrations %s and %s share version %d", other, entry.Name(), order)
		}
		byVersion[order] = entry.Name()

		body, err := fs.ReadFile(source, path.Join(".", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, migration{version: match[1], order: order, file: entry.Name(), body: string(body)})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].order < migrations[j].order })
	return migrations, nil
}

func (m migration) apply(database *gorm.DB) error {
	statements := splitStatements(m.body)
	if len(statements) == 0 {
		return fmt.Errorf("migration %s has no statements", m.file)
	}
	return database.Transaction(func(tx *gorm.DB) error {
		for _, statement := range statements {
			if err := tx.Exec(statement).Error; err != nil {
				return fmt.Errorf("migration %s: %w", m.file, err)
			}
		}
		if err := tx.Exec(`INSERT INTO schema_migrations(version, name) VALUES (?, ?)`, m.version, m.file).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", m.file, err)
		}
		return nil
	})
}

// splitStatements drops "--" comment lines and splits on ';'. Statements must
// not contain ';' inside string literals.
func splitStatements(body string) []string {
	var kept strings.Builder
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept.WriteString(line)
		kept.WriteByte('\n')
	}

	statements := make([]string, 0)
	for _, part := range strings.Split(kept.String(), ";") {
		if statement := strings.TrimSpace(part); statement != "" {
			statements = append(statements, statement)
		}
	}
	return statements
}
