// Package vehicles manages the sale listings and their attached images.
package vehicles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vexport/vexport/internal/db"
)

// ErrNotFound indicates the vehicle does not exist.
var ErrNotFound = errors.New("vehicle not found")

type Service struct {
	pool     *pgxpool.Pool
	validate *validator.Validate
	logger   *slog.Logger
}

func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:     pool,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   log.With(slog.String("service", "vehicles")),
	}
}

// List returns all vehicles, newest first, images included.
func (s *Service) List(ctx context.Context) ([]Vehicle, error) {
	return s.list(ctx, "")
}

// ListFeatured returns only featured vehicles, newest first.
func (s *Service) ListFeatured(ctx context.Context) ([]Vehicle, error) {
	return s.list(ctx, "WHERE featured")
}

func (s *Service) list(ctx context.Context, where string) ([]Vehicle, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, price, year, make, model, description,
		       features, specifications, featured, status, created_at
		FROM vehicles `+where+`
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var result []Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		images, err := s.images(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Images = images
	}
	return result, nil
}

// Get returns one vehicle with its images.
func (s *Service) Get(ctx context.Context, id string) (Vehicle, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Vehicle{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	row := s.pool.QueryRow(ctx, `
		SELECT id, title, price, year, make, model, description,
		       features, specifications, featured, status, created_at
		FROM vehicles WHERE id = $1`, pgID)
	v, err := scanVehicle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vehicle{}, ErrNotFound
		}
		return Vehicle{}, fmt.Errorf("get vehicle: %w", err)
	}
	v.Images, err = s.images(ctx, v.ID)
	if err != nil {
		return Vehicle{}, err
	}
	return v, nil
}

// Create validates and inserts a new listing. Status defaults to "available".
func (s *Service) Create(ctx context.Context, input UpsertInput) (Vehicle, error) {
	if err := s.validate.Struct(input); err != nil {
		return Vehicle{}, fmt.Errorf("invalid vehicle: %w", err)
	}
	if input.Status == "" {
		input.Status = "available"
	}
	specs, err := json.Marshal(input.Specifications)
	if err != nil {
		return Vehicle{}, fmt.Errorf("encode specifications: %w", err)
	}
	featured := input.Featured != nil && *input.Featured

	id := db.NewUUID()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO vehicles (id, title, price, year, make, model, description,
		                      features, specifications, featured, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, input.Title, input.Price, input.Year, input.Make, input.Model,
		input.Description, nonNil(input.Features), specs, featured, input.Status)
	if err != nil {
		return Vehicle{}, fmt.Errorf("create vehicle: %w", err)
	}
	s.logger.Info("vehicle created", slog.String("id", db.UUIDToString(id)))
	return s.Get(ctx, db.UUIDToString(id))
}

// Update validates and replaces the listing fields. Images are untouched.
func (s *Service) Update(ctx context.Context, id string, input UpsertInput) (Vehicle, error) {
	if err := s.validate.Struct(input); err != nil {
		return Vehicle{}, fmt.Errorf("invalid vehicle: %w", err)
	}
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Vehicle{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return Vehicle{}, err
	}
	if input.Status == "" {
		input.Status = current.Status
	}
	featured := current.Featured
	if input.Featured != nil {
		featured = *input.Featured
	}
	specs, err := json.Marshal(input.Specifications)
	if err != nil {
		return Vehicle{}, fmt.Errorf("encode specifications: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE vehicles
		SET title = $2, price = $3, year = $4, make = $5, model = $6,
		    description = $7, features = $8, specifications = $9,
		    featured = $10, status = $11
		WHERE id = $1`,
		pgID, input.Title, input.Price, input.Year, input.Make, input.Model,
		input.Description, nonNil(input.Features), specs, featured, input.Status)
	if err != nil {
		return Vehicle{}, fmt.Errorf("update vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Vehicle{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes the vehicle and returns its final state, including the
// images the caller is responsible for cleaning up.
func (s *Service) Delete(ctx context.Context, id string) (Vehicle, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return Vehicle{}, err
	}
	pgID, _ := db.ParseUUID(id)
	if _, err := s.pool.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, pgID); err != nil {
		return Vehicle{}, fmt.Errorf("delete vehicle: %w", err)
	}
	s.logger.Info("vehicle deleted", slog.String("id", id))
	return v, nil
}

// AppendImages attaches new images after the existing ones, preserving
// order. Existing entries are never replaced.
func (s *Service) AppendImages(ctx context.Context, id string, images []Image) (Vehicle, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Vehicle{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Vehicle{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM vehicles WHERE id = $1)`, pgID).Scan(&exists); err != nil {
		return Vehicle{}, fmt.Errorf("check vehicle: %w", err)
	}
	if !exists {
		return Vehicle{}, ErrNotFound
	}

	var next int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM vehicle_images WHERE vehicle_id = $1`,
		pgID).Scan(&next); err != nil {
		return Vehicle{}, fmt.Errorf("next position: %w", err)
	}
	for i, img := range images {
		_, err := tx.Exec(ctx, `
			INSERT INTO vehicle_images (id, vehicle_id, url, storage_kind, object_id, position)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			db.NewUUID(), pgID, img.URL, string(img.StorageKind),
			db.ToText(img.ObjectID), next+i)
		if err != nil {
			return Vehicle{}, fmt.Errorf("attach image: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Vehicle{}, fmt.Errorf("commit: %w", err)
	}
	return s.Get(ctx, id)
}

// Count returns the number of listings, for the dashboard.
func (s *Service) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vehicles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count vehicles: %w", err)
	}
	return n, nil
}

// ReferencedRemoteIDs returns every remote object key attached to any
// vehicle. Used by the reconciliation sweep to detect orphans.
func (s *Service) ReferencedRemoteIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT object_id FROM vehicle_images
		WHERE storage_kind = 'remote' AND object_id IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("list referenced objects: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (s *Service) images(ctx context.Context, vehicleID string) ([]Image, error) {
	pgID, err := db.ParseUUID(vehicleID)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT url, storage_kind, object_id, position
		FROM vehicle_images
		WHERE vehicle_id = $1
		ORDER BY position`, pgID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	images := make([]Image, 0)
	for rows.Next() {
		var img Image
		var kind string
		var objectID pgtype.Text
		if err := rows.Scan(&img.URL, &kind, &objectID, &img.Position); err != nil {
			return nil, err
		}
		img.StorageKind = StorageKind(kind)
		img.ObjectID = db.TextToString(objectID)
		images = append(images, img)
	}
	return images, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row rowScanner) (Vehicle, error) {
	var v Vehicle
	var id pgtype.UUID
	var specs []byte
	if err := row.Scan(&id, &v.Title, &v.Price, &v.Year, &v.Make, &v.Model,
		&v.Description, &v.Features, &specs, &v.Featured, &v.Status, &v.CreatedAt); err != nil {
		return Vehicle{}, err
	}
	v.ID = db.UUIDToString(id)
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &v.Specifications); err != nil {
			return Vehicle{}, fmt.Errorf("decode specifications: %w", err)
		}
	}
	if v.Features == nil {
		v.Features = []string{}
	}
	return v, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
