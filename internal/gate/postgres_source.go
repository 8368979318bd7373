package gate

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Source = (*PostgresSource)(nil)

type PostgresSource struct {
	db Querier
}

func NewPostgresSource(db Querier) *PostgresSource {
	return &PostgresSource{db: db}
}

const selectStoreInfo = `SELECT status, ending_date, phone_number FROM store_info WHERE store_id = $1`

func (s *PostgresSource) Fetch(ctx context.Context, storeID string) (*Record, error) {
	var (
		rec        Record
		endingDate *string
		phone      *string
	)
	err := s.db.QueryRow(ctx, selectStoreInfo, storeID).Scan(&rec.Status, &endingDate, &phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		var pgErr *pgconn.PgError
		return nil, &FetchError{Network: !errors.As(err, &pgErr) && isNetworkError(err), Err: err}
	}
	if endingDate != nil {
		rec.EndingDate = *endingDate
	}
	if phone != nil {
		rec.PhoneNumber = *phone
	}
	return &rec, nil
}
