package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/svaboev-coder/Tornado-cooking/internal/domain"
)

// VisitorRepo persists one row per occupied day and answers date-range
// overlap queries against them.
type VisitorRepo interface {
	Insert(ctx context.Context, rec *domain.BookingRecord) (domain.InsertOutcome, error)
	FindConflicts(ctx context.Context, room domain.RoomID, start, end time.Time) ([]domain.ConflictEntry, error)
	List(ctx context.Context, limit, offset int) ([]domain.BookingRecord, error)
	ListAll(ctx context.Context) ([]domain.BookingRecord, error)
}

type VisitorRepoImpl struct{ pool *pgxpool.Pool }

func NewVisitorRepo(pool *pgxpool.Pool) *VisitorRepoImpl { return &VisitorRepoImpl{pool: pool} }

const visitorCols = `id, room, date, name,
breakfast_adults, breakfast_children,
lunch_adults, lunch_children,
dinner_adults, dinner_children`

func (r *VisitorRepoImpl) Insert(ctx context.Context, rec *domain.BookingRecord) (domain.InsertOutcome, error) {
	const q = `INSERT INTO visitors (
    room, date, name,
    breakfast_adults, breakfast_children,
    lunch_adults, lunch_children,
    dinner_adults, dinner_children
  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  ON CONFLICT (room, date, name) DO NOTHING`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q,
		rec.Room, domain.FormatStorageDate(rec.Date), rec.Name,
		rec.Meals.BreakfastAdults, rec.Meals.BreakfastChildren,
		rec.Meals.LunchAdults, rec.Meals.LunchChildren,
		rec.Meals.DinnerAdults, rec.Meals.DinnerChildren,
	)
	if err != nil {
		return domain.InsertFailed, err
	}
	if ct.RowsAffected() == 0 {
		return domain.InsertDuplicate, nil
	}
	return domain.InsertOK, nil
}

func (r *VisitorRepoImpl) FindConflicts(ctx context.Context, room domain.RoomID, start, end time.Time) ([]domain.ConflictEntry, error) {
	const q = `SELECT date, name FROM visitors
  WHERE room = $1 AND date BETWEEN $2 AND $3
  ORDER BY date`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, room,
		domain.FormatStorageDate(start), domain.FormatStorageDate(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conflicts []domain.ConflictEntry
	for rows.Next() {
		var dateStr string
		var c domain.ConflictEntry
		if err := rows.Scan(&dateStr, &c.Name); err != nil {
			return nil, err
		}
		if d, err := time.Parse(domain.DateStorageLayout, dateStr); err == nil {
			c.Date = d
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

func (r *VisitorRepoImpl) List(ctx context.Context, limit, offset int) ([]domain.BookingRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + visitorCols + ` FROM visitors ORDER BY date DESC, room LIMIT $1 OFFSET $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows, limit)
}

func (r *VisitorRepoImpl) ListAll(ctx context.Context) ([]domain.BookingRecord, error) {
	const q = `SELECT ` + visitorCols + ` FROM visitors ORDER BY date, room, name`

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows, 0)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows rowScanner, capHint int) ([]domain.BookingRecord, error) {
	recs := make([]domain.BookingRecord, 0, capHint)
	for rows.Next() {
		var rec domain.BookingRecord
		var dateStr string
		if err := rows.Scan(
			&rec.ID, &rec.Room, &dateStr, &rec.Name,
			&rec.Meals.BreakfastAdults, &rec.Meals.BreakfastChildren,
			&rec.Meals.LunchAdults, &rec.Meals.LunchChildren,
			&rec.Meals.DinnerAdults, &rec.Meals.DinnerChildren,
		); err != nil {
			return nil, err
		}
		if d, err := time.Parse(domain.DateStorageLayout, dateStr); err == nil {
			rec.Date = d
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

var _ VisitorRepo = (*VisitorRepoImpl)(nil)
