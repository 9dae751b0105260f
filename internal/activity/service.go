package activity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vexport/vexport/internal/db"
)

const defaultListLimit = 50

// Service appends and reads audit entries.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "activity")),
	}
}

// Record appends one entry. The user label defaults to "admin" when empty.
func (s *Service) Record(ctx context.Context, typ Type, action, details, user string) error {
	if strings.TrimSpace(user) == "" {
		user = "admin"
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO activities (id, type, action, details, username)
		VALUES ($1, $2, $3, $4, $5)`,
		db.NewUUID(), string(typ), action, details, user)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// List returns the newest entries, capped at limit.
func (s *Service) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultListLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, action, details, COALESCE(username, ''), created_at
		FROM activities
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var id pgtype.UUID
		var typ string
		if err := rows.Scan(&id, &typ, &e.Action, &e.Details, &e.User, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ID = db.UUIDToString(id)
		e.Type = Type(typ)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
