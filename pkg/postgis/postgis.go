// Package postgis stores collection points in PostGIS and answers the map's
// point search with a GIST envelope query.
package postgis

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/1F47E/ecoleta-points/pkg/geo"
	"github.com/1F47E/ecoleta-points/pkg/models"
	"github.com/lib/pq"
)

// Options holds the connection settings
type Options struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	SSLMode        string
	MaxConnections int
}

// DSN returns the lib/pq keyword/value connection string
func (o Options) DSN() string {
	sslMode := o.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		o.Host, o.Port, o.User, o.Password, o.Database, sslMode)
}

type Store struct {
	db *sql.DB
}

// NewStore opens and pings a PostGIS connection pool
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	db, err := sql.Open("postgres", opts.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	maxConns := opts.MaxConnections
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db}, nil
}

// InitSchema recreates the collection_points table
func (s *Store) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis;`,

		`DROP TABLE IF EXISTS collection_points;`,

		`CREATE TABLE collection_points (
			id        TEXT PRIMARY KEY,
			title     TEXT NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			address   TEXT NOT NULL DEFAULT '',
			city      TEXT NOT NULL DEFAULT '',
			uf        TEXT NOT NULL DEFAULT '',
			email     TEXT NOT NULL DEFAULT '',
			whatsapp  TEXT NOT NULL DEFAULT '',
			items     INTEGER[] NOT NULL DEFAULT '{}',
			location  GEOMETRY(POINT, 4326) NOT NULL
		);`,

		`CREATE INDEX idx_collection_points_location ON collection_points USING GIST(location);`,
		`CREATE INDEX idx_collection_points_items ON collection_points USING GIN(items);`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}

	return nil
}

const insertPoint = `
	INSERT INTO collection_points (id, title, image_url, address, city, uf, email, whatsapp, items, location)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, ST_SetSRID(ST_MakePoint($10, $11), 4326))
	ON CONFLICT (id) DO UPDATE
	SET title = EXCLUDED.title, image_url = EXCLUDED.image_url, address = EXCLUDED.address,
	    city = EXCLUDED.city, uf = EXCLUDED.uf, email = EXCLUDED.email,
	    whatsapp = EXCLUDED.whatsapp, items = EXCLUDED.items, location = EXCLUDED.location
`

// BulkInsertPoints upserts points in batched transactions
func (s *Store) BulkInsertPoints(ctx context.Context, points []*models.CollectionPoint) error {
	const batchSize = 1000

	for start := 0; start < len(points); start += batchSize {
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}
		if err := s.insertBatch(ctx, points[start:end]); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) insertBatch(ctx context.Context, points []*models.CollectionPoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertPoint)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if p == nil {
			continue
		}
		_, err := stmt.ExecContext(ctx,
			p.ID, p.Title, p.ImageURI, p.Address, p.City, p.UF, p.Email, p.WhatsApp,
			pq.Array(itemsOf(p)), p.Location.Longitude, p.Location.Latitude)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert point %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

const searchPoints = `
	SELECT id, title, image_url, address, city, uf, email, whatsapp, items,
	       ST_Y(location) AS lat, ST_X(location) AS lon
	FROM collection_points
	WHERE location && ST_MakeEnvelope($1, $2, $3, $4, 4326)
	  AND (cardinality($5::int[]) = 0 OR items && $5::int[])
	ORDER BY id
`

// SearchPoints returns points inside region accepting any of categoryIDs.
// Each envelope of the region is queried separately so regions crossing the
// antimeridian match on both sides.
func (s *Store) SearchPoints(ctx context.Context, region geo.Region, categoryIDs []int) ([]models.CollectionPoint, error) {
	filter := make([]int64, len(categoryIDs))
	for i, id := range categoryIDs {
		filter[i] = int64(id)
	}

	var results []models.CollectionPoint
	for _, box := range region.Envelopes() {
		found, err := s.searchBox(ctx, box, filter)
		if err != nil {
			return nil, err
		}
		results = append(results, found...)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (s *Store) searchBox(ctx context.Context, box models.BoundingBox, filter []int64) ([]models.CollectionPoint, error) {
	rows, err := s.db.QueryContext(ctx, searchPoints,
		box.BottomLeft.Longitude, box.BottomLeft.Latitude,
		box.TopRight.Longitude, box.TopRight.Latitude,
		pq.Array(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var results []models.CollectionPoint
	for rows.Next() {
		var (
			p     models.CollectionPoint
			items pq.Int64Array
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.ImageURI, &p.Address, &p.City, &p.UF,
			&p.Email, &p.WhatsApp, &items, &p.Location.Latitude, &p.Location.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		p.ItemIDs = make([]int, len(items))
		for i, v := range items {
			p.ItemIDs[i] = int(v)
		}
		results = append(results, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return results, nil
}

// Count returns the number of stored points
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM collection_points").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return count, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func itemsOf(p *models.CollectionPoint) []int64 {
	items := make([]int64, len(p.ItemIDs))
	for i, id := range p.ItemIDs {
		items[i] = int64(id)
	}
	return items
}
