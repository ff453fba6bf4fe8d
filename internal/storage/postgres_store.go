package storage

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/example/locksmith-search/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (p *PostgresStore) SaveSearch(ctx context.Context, r *models.SearchRecord) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO searches(id, postcode, origin_lat, origin_lon, category, result_count, duration_ms, created_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		r.ID, r.Postcode, r.Origin.Lat, r.Origin.Lon, r.Category, r.ResultCount,
		r.Duration.Milliseconds(), r.CreatedAt)
	return err
}

func (p *PostgresStore) Close() error { return p.db.Close() }
