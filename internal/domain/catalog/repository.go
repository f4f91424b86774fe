package catalog

import (
	"context"
)

// Repository defines read access to the learning content. Content is
// seeded by migrations and effectively immutable at runtime, so there
// are no write operations here.
type Repository interface {
	// GetCategories returns all categories in sort order.
	GetCategories(ctx context.Context) ([]Category, error)

	// GetCategory finds a category by ID.
	GetCategory(ctx context.Context, id int) (*Category, error)

	// GetLessons returns all lessons in sort order.
	GetLessons(ctx context.Context) ([]Lesson, error)

	// GetLessonsByCategory returns a category's lessons in sort order.
	GetLessonsByCategory(ctx context.Context, categoryID int) ([]Lesson, error)

	// GetLesson finds a lesson by ID.
	GetLesson(ctx context.Context, id int) (*Lesson, error)

	// GetPath returns the full ordered catalog for unlock decisions.
	GetPath(ctx context.Context) (*Path, error)
}
