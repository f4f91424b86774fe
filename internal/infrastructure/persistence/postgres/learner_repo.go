package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/learner"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LearnerRepository implements learner.Repository for PostgreSQL.
type LearnerRepository struct {
	conn *Connection
}

// NewLearnerRepository creates a new LearnerRepository.
func NewLearnerRepository(conn *Connection) *LearnerRepository {
	return &LearnerRepository{conn: conn}
}

// Create creates a new learner together with its empty progress row.
func (r *LearnerRepository) Create(ctx context.Context, l *learner.Learner) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		query := `
			INSERT INTO learners (id, email, password_hash, display_name, joined_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`

		_, err := tx.Exec(ctx, query,
			l.ID,
			l.Email.String(),
			l.PasswordHash,
			l.DisplayName,
			l.JoinedAt,
			l.CreatedAt,
			l.UpdatedAt,
		)
		if err != nil {
			if IsUniqueViolation(err) {
				return shared.ErrLearnerAlreadyExists
			}
			return fmt.Errorf("failed to create learner: %w", err)
		}

		_, err = tx.Exec(ctx, `INSERT INTO progress (learner_id) VALUES ($1)`, l.ID)
		if err != nil {
			return fmt.Errorf("failed to create progress row: %w", err)
		}

		return nil
	})
}

// GetByID returns a learner by internal ID.
func (r *LearnerRepository) GetByID(ctx context.Context, id string) (*learner.Learner, error) {
	query := `
		SELECT id, email, password_hash, display_name, joined_at, created_at, updated_at
		FROM learners
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanLearner(row)
}

// GetByEmail returns a learner by email.
func (r *LearnerRepository) GetByEmail(ctx context.Context, email learner.Email) (*learner.Learner, error) {
	query := `
		SELECT id, email, password_hash, display_name, joined_at, created_at, updated_at
		FROM learners
		WHERE email = $1
	`

	row := r.conn.QueryRow(ctx, query, email.String())
	return r.scanLearner(row)
}

// Update updates a learner's mutable fields.
func (r *LearnerRepository) Update(ctx context.Context, l *learner.Learner) error {
	query := `
		UPDATE learners SET
			email = $1,
			password_hash = $2,
			display_name = $3,
			updated_at = $4
		WHERE id = $5
	`

	result, err := r.conn.Exec(ctx, query,
		l.Email.String(),
		l.PasswordHash,
		l.DisplayName,
		time.Now().UTC(),
		l.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update learner: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrLearnerNotFound
	}

	return nil
}

// Count returns the total number of learners.
func (r *LearnerRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM learners`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count learners: %w", err)
	}
	return count, nil
}

func (r *LearnerRepository) scanLearner(row pgx.Row) (*learner.Learner, error) {
	var l learner.Learner
	var email string

	err := row.Scan(
		&l.ID,
		&email,
		&l.PasswordHash,
		&l.DisplayName,
		&l.JoinedAt,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrLearnerNotFound
		}
		return nil, fmt.Errorf("failed to scan learner: %w", err)
	}

	l.Email = learner.Email(email)
	return &l, nil
}
