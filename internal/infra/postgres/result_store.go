package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"school-test-bot/internal/domain"
)

// ResultStore persists completed test results to Postgres. The answer trail
// is stored as JSONB so per-question analysis stays possible without schema
// churn.
type ResultStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewResultStore(pool *pgxpool.Pool, log zerolog.Logger) *ResultStore {
	return &ResultStore{
		pool: pool,
		log:  log.With().Str("component", "result_store").Logger(),
	}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.TestResult) error {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO test_results (
			user_id, student_id, last_name, first_name, class,
			test_code, test_title, score, max_score, grade,
			correct_questions, correct_problems, answers,
			duration_seconds, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		result.UserID, result.Student.ID, result.Student.LastName, result.Student.FirstName, result.Student.Class,
		result.TestCode, result.TestTitle, result.Score, result.MaxScore, result.Grade,
		result.CorrectQuestions, result.CorrectProblems, answers,
		result.Duration, result.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	s.log.Info().
		Int64("user_id", result.UserID).
		Str("test", result.TestCode).
		Int("score", result.Score).
		Msg("result saved")
	return nil
}
