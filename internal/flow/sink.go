package flow

import (
	"context"

	"github.com/rs/zerolog"

	"school-test-bot/internal/domain"
)

// LogSink is the fallback result sink when no database is configured: the
// result is logged and the interaction proceeds as if persisted.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "result_sink").Logger()}
}

func (s *LogSink) SaveResult(_ context.Context, result domain.TestResult) error {
	s.log.Info().
		Int64("user_id", result.UserID).
		Str("test", result.TestCode).
		Int("score", result.Score).
		Int("max_score", result.MaxScore).
		Int("grade", result.Grade).
		Msg("result (not persisted: no database configured)")
	return nil
}
