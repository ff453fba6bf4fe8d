package directory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/example/locksmith-search/internal/models"
)

// Postgres reads provider snapshots from the providers table. Rows are
// validated here so strictly-typed Provider values leave this boundary and
// the matcher never has to re-check shape.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func NewPostgresWithDB(db *sql.DB) *Postgres { return &Postgres{db: db} }

const fetchQuery = `
SELECT id, name, base_lat, base_lon, share_location, service_radius_km,
       categories, phone, website
  FROM providers
 WHERE active = TRUE
 ORDER BY created_at`

func (p *Postgres) FetchCandidates(ctx context.Context) ([]models.Provider, error) {
	rows, err := p.db.QueryContext(ctx, fetchQuery)
	if err != nil {
		return nil, fmt.Errorf("fetch providers: %w", err)
	}
	defer rows.Close()

	var out []models.Provider
	for rows.Next() {
		var row providerRow
		if err := rows.Scan(&row.ID, &row.Name, &row.BaseLat, &row.BaseLon,
			&row.ShareLocation, &row.ServiceRadiusKm,
			pq.Array(&row.Categories), &row.Phone, &row.Website); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		prov, ok := row.toProvider()
		if !ok {
			// half-filled coordinates or an out-of-range point; the row
			// is unusable and silently carrying it would poison matching
			continue
		}
		out = append(out, prov)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate providers: %w", err)
	}
	return out, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

type providerRow struct {
	ID              string
	Name            string
	BaseLat         sql.NullFloat64
	BaseLon         sql.NullFloat64
	ShareLocation   bool
	ServiceRadiusKm sql.NullFloat64
	Categories      []string
	Phone           sql.NullString
	Website         sql.NullString
}

// toProvider converts a raw row into a strict Provider. ok is false when
// the row cannot be represented faithfully (one coordinate present without
// the other, or a coordinate outside WGS-84 bounds).
func (r providerRow) toProvider() (models.Provider, bool) {
	p := models.Provider{
		ID:            r.ID,
		Name:          r.Name,
		ShareLocation: r.ShareLocation,
		Categories:    r.Categories,
		Phone:         r.Phone.String,
		Website:       r.Website.String,
	}
	switch {
	case r.BaseLat.Valid && r.BaseLon.Valid:
		base := models.GeoPoint{Lat: r.BaseLat.Float64, Lon: r.BaseLon.Float64}
		if !base.Valid() {
			return models.Provider{}, false
		}
		p.BaseLoc = &base
	case r.BaseLat.Valid != r.BaseLon.Valid:
		return models.Provider{}, false
	}
	if r.ServiceRadiusKm.Valid {
		p.ServiceRadiusKm = r.ServiceRadiusKm.Float64
	}
	return p, true
}
