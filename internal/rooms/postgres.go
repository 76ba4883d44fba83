package rooms

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/svaboev-coder/Tornado-cooking/internal/domain"
	"github.com/svaboev-coder/Tornado-cooking/pkg/logger"
)

// PostgresDirectory reads the room reference table.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

func (d *PostgresDirectory) listAll(ctx context.Context) []domain.RoomID {
	const q = `SELECT room FROM rooms ORDER BY room LIMIT 100`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := d.pool.Query(ctx, q)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to query room directory", "error", err)
		return nil
	}
	defer rows.Close()

	var all []domain.RoomID
	for rows.Next() {
		var room domain.RoomID
		if err := rows.Scan(&room); err != nil {
			logger.ErrorContext(ctx, "Failed to scan room row", "error", err)
			return nil
		}
		all = append(all, room)
	}
	if err := rows.Err(); err != nil {
		logger.ErrorContext(ctx, "Failed to read room directory", "error", err)
		return nil
	}
	return all
}

func (d *PostgresDirectory) ListBuildings(ctx context.Context) []string {
	return buildingsOf(d.listAll(ctx))
}

func (d *PostgresDirectory) ListRooms(ctx context.Context, building string) []domain.RoomID {
	return roomsIn(d.listAll(ctx), building)
}

var _ Directory = (*PostgresDirectory)(nil)
