package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/svaboev-coder/Tornado-cooking/pkg/logger"
)

// Dates are stored as YYYY-MM-DD text; ISO ordering makes BETWEEN behave
// like a date comparison.
const schema = `
CREATE TABLE IF NOT EXISTS rooms (
    room TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS visitors (
    id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    room TEXT NOT NULL,
    date TEXT NOT NULL,
    name TEXT NOT NULL,
    breakfast_adults INT NOT NULL DEFAULT 0,
    breakfast_children INT NOT NULL DEFAULT 0,
    lunch_adults INT NOT NULL DEFAULT 0,
    lunch_children INT NOT NULL DEFAULT 0,
    dinner_adults INT NOT NULL DEFAULT 0,
    dinner_children INT NOT NULL DEFAULT 0,
    UNIQUE (room, date, name)
);

CREATE INDEX IF NOT EXISTS idx_visitors_room_date ON visitors(room, date);

CREATE TABLE IF NOT EXISTS rate_limits (
    key TEXT PRIMARY KEY,
    count INT NOT NULL,
    window_start TIMESTAMPTZ NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL
);
`

// baseRooms seeds the room reference table on an empty database, matching
// the demo fixture set.
var baseRooms = []string{"к1/1", "к1/2", "к2/1", "Б1/1", "Б1/2"}

// EnsureSchema creates the tables if they do not exist and seeds the room
// reference table when it is empty. Safe to call on every startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count rooms: %w", err)
	}
	if count == 0 {
		for _, room := range baseRooms {
			if _, err := pool.Exec(ctx, `INSERT INTO rooms (room) VALUES ($1)`, room); err != nil {
				return fmt.Errorf("failed to seed room %s: %w", room, err)
			}
		}
		logger.Info("Seeded room reference table", "rooms", len(baseRooms))
	}

	return nil
}
