// Package contacts handles the public contact form and its admin inbox.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vexport/vexport/internal/db"
)

// ErrNotFound indicates the contact message does not exist.
var ErrNotFound = errors.New("contact not found")

// Contact is one submitted message.
type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	Responded bool      `json:"responded"`
	CreatedAt time.Time `json:"createdAt"`
}

// SubmitInput is the public form payload.
type SubmitInput struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message" validate:"required"`
}

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
		logger:   log.With(slog.String("service", "contacts")),
	}
}

// Submit validates and stores a new contact message.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (Contact, error) {
	if err := s.validate.Struct(input); err != nil {
		return Contact{}, fmt.Errorf("invalid contact: %w", err)
	}
	id := db.NewUUID()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO contacts (id, name, email, phone, subject, message)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, input.Name, input.Email, db.ToText(input.Phone),
		db.ToText(input.Subject), input.Message)
	if err != nil {
		return Contact{}, fmt.Errorf("create contact: %w", err)
	}
	return s.Get(ctx, db.UUIDToString(id))
}

// List returns all messages, newest first.
func (s *Service) List(ctx context.Context) ([]Contact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, COALESCE(phone, ''), COALESCE(subject, ''),
		       message, responded, created_at
		FROM contacts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var result []Contact
	for rows.Next() {
		var c Contact
		var id pgtype.UUID
		if err := rows.Scan(&id, &c.Name, &c.Email, &c.Phone, &c.Subject,
			&c.Message, &c.Responded, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.ID = db.UUIDToString(id)
		result = append(result, c)
	}
	return result, rows.Err()
}

// Get returns one message by ID.
func (s *Service) Get(ctx context.Context, id string) (Contact, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Contact{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var c Contact
	var rowID pgtype.UUID
	err = s.pool.QueryRow(ctx, `
		SELECT id, name, email, COALESCE(phone, ''), COALESCE(subject, ''),
		       message, responded, created_at
		FROM contacts WHERE id = $1`, pgID).
		Scan(&rowID, &c.Name, &c.Email, &c.Phone, &c.Subject,
			&c.Message, &c.Responded, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, ErrNotFound
		}
		return Contact{}, fmt.Errorf("get contact: %w", err)
	}
	c.ID = db.UUIDToString(rowID)
	return c, nil
}

// MarkResponded flags a message as handled.
func (s *Service) MarkResponded(ctx context.Context, id string) (Contact, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Contact{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE contacts SET responded = TRUE WHERE id = $1`, pgID)
	if err != nil {
		return Contact{}, fmt.Errorf("mark responded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Contact{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes a message.
func (s *Service) Delete(ctx context.Context, id string) error {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, pgID)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored messages, for the dashboard.
func (s *Service) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return n, nil
}
