package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/catalog"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG REPOSITORY IMPLEMENTATION
// Content is seeded by migrations and read-only at runtime.
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository implements catalog.Repository for PostgreSQL.
type CatalogRepository struct {
	conn *Connection
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

// GetCategories returns all categories in sort order.
func (r *CatalogRepository) GetCategories(ctx context.Context) ([]catalog.Category, error) {
	query := `
		SELECT id, name, description, icon, sort_order, created_at
		FROM categories
		ORDER BY sort_order, id
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	return scanCategories(rows)
}

// GetCategory returns a category by ID.
func (r *CatalogRepository) GetCategory(ctx context.Context, id int) (*catalog.Category, error) {
	query := `
		SELECT id, name, description, icon, sort_order, created_at
		FROM categories
		WHERE id = $1
	`

	var c catalog.Category
	err := r.conn.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.SortOrder, &c.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}

	return &c, nil
}

// GetLessons returns all lessons in sort order.
func (r *CatalogRepository) GetLessons(ctx context.Context) ([]catalog.Lesson, error) {
	query := lessonSelect + ` ORDER BY category_id, sort_order, id`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	return scanLessons(rows)
}

// GetLessonsByCategory returns a category's lessons in sort order.
func (r *CatalogRepository) GetLessonsByCategory(ctx context.Context, categoryID int) ([]catalog.Lesson, error) {
	query := lessonSelect + ` WHERE category_id = $1 ORDER BY sort_order, id`

	rows, err := r.conn.Query(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	return scanLessons(rows)
}

// GetLesson returns a lesson by ID.
func (r *CatalogRepository) GetLesson(ctx context.Context, id int) (*catalog.Lesson, error) {
	query := lessonSelect + ` WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, id)
	l, err := scanLesson(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrLessonNotFound
		}
		return nil, fmt.Errorf("failed to scan lesson: %w", err)
	}

	return l, nil
}

// GetPath returns the full ordered catalog.
func (r *CatalogRepository) GetPath(ctx context.Context) (*catalog.Path, error) {
	categories, err := r.GetCategories(ctx)
	if err != nil {
		return nil, err
	}

	lessons, err := r.GetLessons(ctx)
	if err != nil {
		return nil, err
	}

	return catalog.NewPath(categories, lessons), nil
}

const lessonSelect = `
	SELECT id, category_id, title, description, content, difficulty,
	       xp_reward, duration_minutes, sort_order, created_at
	FROM lessons
`

func scanCategories(rows pgx.Rows) ([]catalog.Category, error) {
	var out []catalog.Category
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.SortOrder, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanLessons(rows pgx.Rows) ([]catalog.Lesson, error) {
	var out []catalog.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func scanLesson(row pgx.Row) (*catalog.Lesson, error) {
	var l catalog.Lesson
	var difficulty string

	err := row.Scan(
		&l.ID,
		&l.CategoryID,
		&l.Title,
		&l.Description,
		&l.Content,
		&difficulty,
		&l.XPReward,
		&l.DurationMinutes,
		&l.SortOrder,
		&l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Difficulty = catalog.Difficulty(difficulty)
	return &l, nil
}
