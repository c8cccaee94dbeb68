package database

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/triviabot/core/logger"
)

const filesPreviewLimit = 6

// migrator is the part of *migrate.Migrate that applyUp drives.
type migrator interface {
	Up() error
	Version() (version uint, dirty bool, err error)
}

// upReport describes one migration run for the summary log.
type upReport struct {
	From, To uint64
	Applied  []string
	Took     time.Duration
}

// RunMigrations waits for Postgres and applies every up migration found in
// cfg.MigrationsPath. The journal schema lives there.
func RunMigrations(cfg Config) error {
	if err := WaitForPostgres(cfg.KeyValueDSN(), 30*time.Second); err != nil {
		logger.MIG.Error("db not ready",
			slog.String("event", "db.migrate"),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("database not ready: %w", err)
	}

	dir, err := filepath.Abs(cfg.MigrationsPath)
	if err != nil {
		return fmt.Errorf("resolve migrations path: %w", err)
	}
	files := listMigrationFiles(dir)
	logger.MIG.Debug("migrations resolved",
		append([]any{slog.String("path", dir)}, filesAttrs("resolve", files)...)...)

	m, err := migrate.New("file://"+filepath.ToSlash(dir), cfg.URL())
	if err != nil {
		logger.MIG.Error("init failed",
			slog.String("event", "db.migrate"),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	report, err := applyUp(m, files)
	if err != nil {
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
			slog.Duration("duration", report.Took),
		)
		return fmt.Errorf("migration execution failed: %w", err)
	}
	if len(report.Applied) > 0 {
		logger.MIG.Debug("applied files", filesAttrs("apply", report.Applied)...)
	}
	logger.MIG.Info("migrations summary",
		slog.String("event", "summary"),
		slog.Uint64("from_ver", report.From),
		slog.Uint64("to_ver", report.To),
		slog.Int("files", len(report.Applied)),
		slog.Duration("duration", report.Took),
	)
	return nil
}

// applyUp runs m.Up and works out which of files it applied. A database
// that is already current is not an error.
func applyUp(m migrator, files []string) (upReport, error) {
	from, _, _ := m.Version()
	report := upReport{From: uint64(from), To: uint64(from)}

	start := time.Now()
	err := m.Up()
	report.Took = time.Since(start)

	if errors.Is(err, migrate.ErrNoChange) {
		return report, nil
	}
	if err != nil {
		return report, err
	}

	to, _, _ := m.Version()
	report.To = uint64(to)
	report.Applied = selectApplied(files, report.From, report.To)
	return report, nil
}

func filesAttrs(event string, files []string) []any {
	attrs := []any{
		slog.String("event", event),
		slog.Int("files_total", len(files)),
	}
	preview, truncated := logger.SummarizeStrings(files, filesPreviewLimit)
	if preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview))
	}
	if truncated {
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	return attrs
}

// listMigrationFiles returns the sorted *.up.sql names in dir.
func listMigrationFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

func selectApplied(files []string, from, to uint64) []string {
	if to <= from {
		return nil
	}
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
