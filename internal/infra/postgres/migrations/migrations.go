package migrations

import (
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

const createStudentsSQL = `
CREATE TABLE IF NOT EXISTS students (
	id         SERIAL PRIMARY KEY,
	last_name  TEXT NOT NULL,
	first_name TEXT NOT NULL,
	class      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS students_class_idx ON students (class);
`

const createResultsSQL = `
CREATE TABLE IF NOT EXISTS test_results (
	id                SERIAL PRIMARY KEY,
	user_id           BIGINT NOT NULL,
	student_id        INTEGER NOT NULL,
	last_name         TEXT NOT NULL,
	first_name        TEXT NOT NULL,
	class             TEXT NOT NULL,
	test_code         TEXT NOT NULL,
	test_title        TEXT NOT NULL,
	score             INTEGER NOT NULL,
	max_score         INTEGER NOT NULL,
	grade             INTEGER NOT NULL,
	correct_questions INTEGER NOT NULL,
	correct_problems  INTEGER NOT NULL,
	answers           JSONB NOT NULL,
	duration_seconds  INTEGER NOT NULL,
	completed_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS test_results_user_idx ON test_results (user_id);
CREATE INDEX IF NOT EXISTS test_results_test_idx ON test_results (test_code);
`
