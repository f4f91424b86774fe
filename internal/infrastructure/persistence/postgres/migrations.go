package postgres

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_learners_and_progress",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_catalog_and_achievements",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "seed_content",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: LEARNERS AND PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create learners and progress tables
-- Version: 001

CREATE TABLE IF NOT EXISTS learners (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    email VARCHAR(254) NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    display_name VARCHAR(100) NOT NULL,
    joined_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_learners_email ON learners(email);

-- One progress row per learner. total_xp is the only XP source of truth;
-- the level is always derived from it, never stored.
CREATE TABLE IF NOT EXISTS progress (
    learner_id UUID PRIMARY KEY REFERENCES learners(id) ON DELETE CASCADE,
    total_xp INTEGER NOT NULL DEFAULT 0,
    current_streak INTEGER NOT NULL DEFAULT 0,
    best_streak INTEGER NOT NULL DEFAULT 0,
    last_activity_date DATE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_total_xp CHECK (total_xp >= 0),
    CONSTRAINT valid_streaks CHECK (current_streak >= 0 AND best_streak >= current_streak)
);

CREATE INDEX IF NOT EXISTS idx_progress_total_xp ON progress(total_xp DESC);

-- Per-lesson completion state. The completion is permanent; score and
-- time are refreshed on every pass.
CREATE TABLE IF NOT EXISTS lesson_progress (
    id SERIAL PRIMARY KEY,
    learner_id UUID NOT NULL REFERENCES learners(id) ON DELETE CASCADE,
    lesson_id INTEGER NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'not_started',
    score INTEGER NOT NULL DEFAULT 0,
    time_spent_seconds INTEGER NOT NULL DEFAULT 0,
    completed_at TIMESTAMP WITH TIME ZONE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(learner_id, lesson_id),
    CONSTRAINT valid_lesson_status CHECK (status IN ('not_started', 'in_progress', 'completed'))
);

CREATE INDEX IF NOT EXISTS idx_lesson_progress_learner ON lesson_progress(learner_id);
CREATE INDEX IF NOT EXISTS idx_lesson_progress_lesson ON lesson_progress(lesson_id);

-- Append-only quiz/game attempt history.
CREATE TABLE IF NOT EXISTS quiz_attempts (
    id SERIAL PRIMARY KEY,
    learner_id UUID NOT NULL REFERENCES learners(id) ON DELETE CASCADE,
    game_mode VARCHAR(30) NOT NULL,
    score INTEGER NOT NULL DEFAULT 0,
    total_questions INTEGER NOT NULL DEFAULT 0,
    correct_answers INTEGER NOT NULL DEFAULT 0,
    time_taken_seconds INTEGER NOT NULL DEFAULT 0,
    xp_earned INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_quiz_attempts_learner ON quiz_attempts(learner_id, created_at DESC);

-- Updated_at trigger for learners
CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_learners_updated_at ON learners;
CREATE TRIGGER update_learners_updated_at
    BEFORE UPDATE ON learners
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration001Down = `
DROP TRIGGER IF EXISTS update_learners_updated_at ON learners;
DROP FUNCTION IF EXISTS update_updated_at_column();
DROP TABLE IF EXISTS quiz_attempts;
DROP TABLE IF EXISTS lesson_progress;
DROP TABLE IF EXISTS progress;
DROP TABLE IF EXISTS learners;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CATALOG AND ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create catalog and achievement tables
-- Version: 002

CREATE TABLE IF NOT EXISTS categories (
    id INTEGER PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    icon VARCHAR(30) NOT NULL DEFAULT '',
    sort_order INTEGER NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS lessons (
    id INTEGER PRIMARY KEY,
    category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    title VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    difficulty VARCHAR(20) NOT NULL DEFAULT 'beginner',
    xp_reward INTEGER NOT NULL DEFAULT 50,
    duration_minutes INTEGER NOT NULL DEFAULT 5,
    sort_order INTEGER NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_difficulty CHECK (difficulty IN ('beginner', 'intermediate', 'advanced')),
    CONSTRAINT valid_xp_reward CHECK (xp_reward >= 0)
);

CREATE INDEX IF NOT EXISTS idx_lessons_category ON lessons(category_id, sort_order);

-- Achievement definitions. Criteria is a closed JSON variant:
-- {"type": "...", "count": N} or {"type": "category_completed", "category_id": N}.
CREATE TABLE IF NOT EXISTS achievement_definitions (
    id INTEGER PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    icon VARCHAR(30) NOT NULL DEFAULT '',
    criteria JSONB NOT NULL,
    xp_bonus INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_xp_bonus CHECK (xp_bonus >= 0)
);

-- One row per (learner, achievement) unlock, written inside the progress
-- transaction.
CREATE TABLE IF NOT EXISTS learner_achievements (
    id SERIAL PRIMARY KEY,
    learner_id UUID NOT NULL REFERENCES learners(id) ON DELETE CASCADE,
    achievement_id INTEGER NOT NULL REFERENCES achievement_definitions(id) ON DELETE CASCADE,
    earned_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(learner_id, achievement_id)
);

CREATE INDEX IF NOT EXISTS idx_learner_achievements_learner ON learner_achievements(learner_id);
CREATE INDEX IF NOT EXISTS idx_learner_achievements_earned ON learner_achievements(earned_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS learner_achievements;
DROP TABLE IF EXISTS achievement_definitions;
DROP TABLE IF EXISTS lessons;
DROP TABLE IF EXISTS categories;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: SEED CONTENT
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Seed categories, lessons, and achievements
-- Version: 003

INSERT INTO categories (id, name, description, icon, sort_order) VALUES
    (1, 'Climate Basics', 'Understand how Earth''s climate works and why it is changing', '🌍', 1),
    (2, 'Renewable Energy', 'Explore the technologies powering a carbon-free future', '⚡', 2),
    (3, 'Waste Management', 'Learn to reduce, reuse, and recycle effectively', '♻️', 3),
    (4, 'Ecosystem Protection', 'Discover how to protect biodiversity and natural habitats', '🌳', 4)
ON CONFLICT (id) DO NOTHING;

INSERT INTO lessons (id, category_id, title, description, difficulty, xp_reward, duration_minutes, sort_order) VALUES
    (1,  1, 'What Is Climate?',            'Weather vs climate and why the difference matters', 'beginner',     50, 5, 1),
    (2,  1, 'The Greenhouse Effect',       'How greenhouse gases trap heat in the atmosphere',  'beginner',     50, 6, 2),
    (3,  1, 'Carbon Footprints',           'Measuring the emissions behind everyday choices',   'beginner',     50, 6, 3),
    (4,  1, 'Global Warming Evidence',     'The data behind a warming planet',                  'intermediate', 75, 8, 4),
    (5,  1, 'Climate Tipping Points',      'Thresholds we do not want to cross',                'advanced',    100, 10, 5),
    (6,  2, 'Solar Power',                 'Turning sunlight into electricity',                 'beginner',     50, 5, 1),
    (7,  2, 'Wind Power',                  'How turbines harvest moving air',                   'beginner',     50, 5, 2),
    (8,  2, 'Hydro and Geothermal',        'Energy from water and the Earth''s heat',           'intermediate', 75, 7, 3),
    (9,  2, 'Energy Storage',              'Batteries and grids for variable sources',          'intermediate', 75, 8, 4),
    (10, 2, 'The Energy Transition',       'Phasing out fossil fuels at scale',                 'advanced',    100, 10, 5),
    (11, 3, 'The Waste Hierarchy',         'Reduce first, recycle last',                        'beginner',     50, 5, 1),
    (12, 3, 'Recycling Right',             'What belongs in which bin and why',                 'beginner',     50, 6, 2),
    (13, 3, 'Composting Basics',           'Turning food scraps into soil',                     'beginner',     50, 6, 3),
    (14, 3, 'Plastic Pollution',           'Where plastic goes when we throw it away',          'intermediate', 75, 8, 4),
    (15, 3, 'The Circular Economy',        'Designing waste out of the system',                 'advanced',    100, 10, 5),
    (16, 4, 'What Is Biodiversity?',       'Why variety keeps ecosystems alive',                'beginner',     50, 5, 1),
    (17, 4, 'Forests and Carbon',          'How forests store carbon and shelter life',         'beginner',     50, 6, 2),
    (18, 4, 'Ocean Health',                'Coral reefs, acidification, and overfishing',       'intermediate', 75, 8, 3),
    (19, 4, 'Restoring Habitats',          'Rewilding and ecosystem restoration',               'intermediate', 75, 8, 4),
    (20, 4, 'Conservation in Action',      'What protection looks like on the ground',          'advanced',    100, 10, 5)
ON CONFLICT (id) DO NOTHING;

INSERT INTO achievement_definitions (id, name, description, icon, criteria, xp_bonus) VALUES
    (1, 'First Steps',      'Complete your first lesson',                 '👣', '{"type": "lessons_completed", "count": 1}',        50),
    (2, 'Week Warrior',     'Keep a 7-day learning streak',               '🔥', '{"type": "streak_days", "count": 7}',              100),
    (3, 'Energy Expert',    'Complete every Renewable Energy lesson',     '⚡', '{"type": "category_completed", "category_id": 2}', 150),
    (4, 'Eco Scholar',      'Complete ten lessons',                       '📚', '{"type": "lessons_completed", "count": 10}',       150),
    (5, 'Climate Champion', 'Complete every lesson in every category',    '🏆', '{"type": "all_categories_completed"}',             500)
ON CONFLICT (id) DO NOTHING;
`

const migration003Down = `
DELETE FROM achievement_definitions WHERE id BETWEEN 1 AND 5;
DELETE FROM lessons WHERE id BETWEEN 1 AND 20;
DELETE FROM categories WHERE id BETWEEN 1 AND 4;
`
