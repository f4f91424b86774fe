package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testPath() *Path {
	categories := []Category{
		{ID: 1, Name: "Climate Basics", SortOrder: 1},
		{ID: 2, Name: "Renewable Energy", SortOrder: 2},
	}
	lessons := []Lesson{
		{ID: 1, CategoryID: 1, Title: "What Is Climate?", SortOrder: 1},
		{ID: 2, CategoryID: 1, Title: "The Greenhouse Effect", SortOrder: 2},
		{ID: 3, CategoryID: 1, Title: "Carbon Footprints", SortOrder: 3},
		{ID: 4, CategoryID: 2, Title: "Solar Power", SortOrder: 1},
		{ID: 5, CategoryID: 2, Title: "Wind Power", SortOrder: 2},
	}
	return NewPath(categories, lessons)
}

func done(ids ...int) map[int]struct{} {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestPath_FirstLessonAlwaysOpen(t *testing.T) {
	p := testPath()

	assert.True(t, p.IsLessonUnlocked(1, done()))
	assert.False(t, p.IsLessonUnlocked(2, done()), "second lesson gated by first")
}

func TestPath_LessonsUnlockSequentially(t *testing.T) {
	p := testPath()

	assert.True(t, p.IsLessonUnlocked(2, done(1)))
	assert.False(t, p.IsLessonUnlocked(3, done(1)))
	assert.True(t, p.IsLessonUnlocked(3, done(1, 2)))
}

func TestPath_CompletedLessonStaysOpen(t *testing.T) {
	p := testPath()

	assert.True(t, p.IsLessonUnlocked(2, done(2)), "revisiting a completed lesson is allowed")
}

func TestPath_CategoryGatedByPreviousCategory(t *testing.T) {
	p := testPath()

	assert.True(t, p.IsCategoryUnlocked(1, done()))
	assert.False(t, p.IsCategoryUnlocked(2, done(1, 2)))
	assert.True(t, p.IsCategoryUnlocked(2, done(1, 2, 3)))

	assert.False(t, p.IsLessonUnlocked(4, done(1, 2)), "locked category locks its lessons")
	assert.True(t, p.IsLessonUnlocked(4, done(1, 2, 3)))
}

func TestPath_CategoryAndPathCompletion(t *testing.T) {
	p := testPath()

	assert.False(t, p.IsCategoryCompleted(1, done(1, 2)))
	assert.True(t, p.IsCategoryCompleted(1, done(1, 2, 3)))
	assert.False(t, p.IsPathCompleted(done(1, 2, 3)))
	assert.True(t, p.IsPathCompleted(done(1, 2, 3, 4, 5)))
}

func TestPath_UnknownIDs(t *testing.T) {
	p := testPath()

	assert.False(t, p.IsLessonUnlocked(99, done(1, 2, 3, 4, 5)))
	assert.False(t, p.IsCategoryUnlocked(99, done()))
	assert.False(t, p.IsCategoryCompleted(99, done()))
}

func TestNewLesson_Validation(t *testing.T) {
	_, err := NewLesson(1, 1, "", DifficultyBeginner, 50, 1)
	assert.ErrorIs(t, err, ErrInvalidLessonTitle)

	_, err = NewLesson(1, 1, "Solar Power", "extreme", 50, 1)
	assert.ErrorIs(t, err, ErrInvalidDifficulty)

	_, err = NewLesson(1, 1, "Solar Power", DifficultyBeginner, -1, 1)
	assert.ErrorIs(t, err, ErrInvalidXPReward)

	l, err := NewLesson(1, 1, "Solar Power", DifficultyBeginner, 50, 1)
	assert.NoError(t, err)
	assert.Equal(t, 50, l.XPReward)
}
