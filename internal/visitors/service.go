// Package visitors records site visits for the admin dashboard. Counting
// only; no aggregation lives here.
package visitors

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vexport/vexport/internal/db"
)

// Visit is one recorded page view.
type Visit struct {
	Page      string `json:"page"`
	Referrer  string `json:"referrer,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Stats is the dashboard summary.
type Stats struct {
	Total int64 `json:"total"`
	Today int64 `json:"today"`
}

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
		logger: log.With(slog.String("service", "visitors")),
	}
}

// Record stores one visit.
func (s *Service) Record(ctx context.Context, v Visit) error {
	if strings.TrimSpace(v.Page) == "" {
		v.Page = "/"
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO visits (id, page, referrer, user_agent)
		VALUES ($1, $2, $3, $4)`,
		db.NewUUID(), v.Page, db.ToText(v.Referrer), db.ToText(v.UserAgent))
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

// Stats returns total and same-day visit counts.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE visited_at >= date_trunc('day', now()))
		FROM visits`).Scan(&stats.Total, &stats.Today)
	if err != nil {
		return Stats{}, fmt.Errorf("visit stats: %w", err)
	}
	return stats, nil
}
