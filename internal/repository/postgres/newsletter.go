package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nuwe/site-forms/internal/domain"
	"github.com/nuwe/site-forms/internal/submission"
)

// uniqueViolation is the SQLSTATE Postgres reports for a unique constraint.
const uniqueViolation = "23505"

// NewsletterRepo implements submission.NewsletterRepository against PostgreSQL.
type NewsletterRepo struct{ db *sql.DB }

// NewNewsletterRepo creates a Postgres-backed newsletter repository.
func NewNewsletterRepo(db *sql.DB) *NewsletterRepo { return &NewsletterRepo{db: db} }

func (r *NewsletterRepo) SubscriptionExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM newsletter_subscriptions WHERE email = $1)`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check subscription: %w", err)
	}
	return exists, nil
}

func (r *NewsletterRepo) InsertSubscription(ctx context.Context, s *domain.NewsletterSubscription) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO newsletter_subscriptions (id, email, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, s.ID, s.Email, s.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return submission.ErrDuplicate
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return submission.ErrDuplicate
	}
	return nil
}
