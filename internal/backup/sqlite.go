// Package backup exports visitor records into standalone SQLite snapshot
// files. Snapshot failures are reported to the caller but must never break
// the commit path that triggers them.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/svaboev-coder/Tornado-cooking/internal/domain"
	"github.com/svaboev-coder/Tornado-cooking/internal/repo/postgres"
	"github.com/svaboev-coder/Tornado-cooking/pkg/events"
	"github.com/svaboev-coder/Tornado-cooking/pkg/logger"
)

const snapshotPrefix = "visitors_backup_"

const snapshotSchema = `
CREATE TABLE visitors (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    room TEXT NOT NULL,
    date TEXT NOT NULL,
    name TEXT NOT NULL,
    breakfast_adults INTEGER DEFAULT 0,
    breakfast_children INTEGER DEFAULT 0,
    lunch_adults INTEGER DEFAULT 0,
    lunch_children INTEGER DEFAULT 0,
    dinner_adults INTEGER DEFAULT 0,
    dinner_children INTEGER DEFAULT 0,
    UNIQUE(room, date, name)
);`

type Manager struct {
	repo    postgres.VisitorRepo
	dir     string
	maxKeep int
	bus     events.Publisher
}

func NewManager(repo postgres.VisitorRepo, dir string, maxKeep int, bus events.Publisher) *Manager {
	return &Manager{repo: repo, dir: dir, maxKeep: maxKeep, bus: bus}
}

// Snapshot dumps all visitor records into a new timestamped SQLite file and
// prunes old snapshots. Returns the snapshot path and the record count.
func (m *Manager) Snapshot(ctx context.Context) (string, int, error) {
	recs, err := m.repo.ListAll(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read visitor records: %w", err)
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create backup dir: %w", err)
	}

	name := snapshotPrefix + time.Now().Format("20060102_150405") + ".db"
	path := filepath.Join(m.dir, name)

	if err := m.write(ctx, path, recs); err != nil {
		os.Remove(path)
		return "", 0, err
	}

	if err := m.prune(); err != nil {
		logger.Warn("Failed to prune old snapshots", "error", err)
	}

	if m.bus != nil {
		event := events.BackupCreatedEvent{Path: path, Records: len(recs), CreatedAt: time.Now()}
		if err := m.bus.Publish(ctx, events.BackupCreated, event); err != nil {
			logger.ErrorContext(ctx, "Failed to publish backup event", "error", err)
		}
	}

	return path, len(recs), nil
}

func (m *Manager) write(ctx context.Context, path string, recs []domain.BookingRecord) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("failed to create snapshot schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	const q = `INSERT INTO visitors (
    room, date, name,
    breakfast_adults, breakfast_children,
    lunch_adults, lunch_children,
    dinner_adults, dinner_children
  ) VALUES (?,?,?,?,?,?,?,?,?)`

	for _, rec := range recs {
		if _, err := tx.ExecContext(ctx, q,
			string(rec.Room), domain.FormatStorageDate(rec.Date), rec.Name,
			rec.Meals.BreakfastAdults, rec.Meals.BreakfastChildren,
			rec.Meals.LunchAdults, rec.Meals.LunchChildren,
			rec.Meals.DinnerAdults, rec.Meals.DinnerChildren,
		); err != nil {
			return fmt.Errorf("failed to write snapshot record: %w", err)
		}
	}

	return tx.Commit()
}

type SnapshotInfo struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns existing snapshots, newest first.
func (m *Manager) List() ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup dir: %w", err)
	}

	var infos []SnapshotInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), snapshotPrefix) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, SnapshotInfo{
			Name:      entry.Name(),
			SizeBytes: fi.Size(),
			CreatedAt: fi.ModTime(),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name > infos[j].Name })
	return infos, nil
}

// prune keeps only the maxKeep most recent snapshots.
func (m *Manager) prune() error {
	if m.maxKeep <= 0 {
		return nil
	}

	infos, err := m.List()
	if err != nil {
		return err
	}

	for _, info := range infos[min(m.maxKeep, len(infos)):] {
		if err := os.Remove(filepath.Join(m.dir, info.Name)); err != nil {
			return err
		}
		logger.Debug("Removed old snapshot", "name", info.Name)
	}
	return nil
}
