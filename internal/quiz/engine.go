package quiz

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"school-test-bot/internal/domain"
)

// SessionStore abstracts how sessions are stored. A user holds at most one
// session; Delete must also discard any message-chain tracking for the user.
type SessionStore interface {
	Put(userID int64, session *Session)
	Get(userID int64) (*Session, bool)
	Delete(userID int64) bool
	All() []*Session
	Len() int
}

// Engine builds randomized sessions from loaded tests and advances them
// through the question/answer state machine.
type Engine struct {
	store SessionStore
	log   zerolog.Logger
	now   func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewEngine(store SessionStore, log zerolog.Logger) *Engine {
	return NewEngineWithClock(store, log, time.Now, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewEngineWithClock allows deterministic timestamps and shuffles in tests.
func NewEngineWithClock(store SessionStore, log zerolog.Logger, now func() time.Time, rng *rand.Rand) *Engine {
	return &Engine{
		store: store,
		log:   log.With().Str("component", "engine").Logger(),
		now:   now,
		rng:   rng,
	}
}

// CreateSession samples and shuffles questions from the definition and
// registers the session, replacing any previous one for the user.
func (e *Engine) CreateSession(userID int64, def domain.TestDefinition, student domain.Student) *Session {
	e.rngMu.Lock()
	questions := e.sampleLocked(def.Questions, totalOrDefault(def.Config.TotalQuestions, 20))
	problems := e.sampleLocked(def.Problems, totalOrDefault(def.Config.TotalProblems, 3))

	all := append(questions, problems...)
	e.rng.Shuffle(len(all), func(i, j int) {
		all[i], all[j] = all[j], all[i]
	})
	e.rngMu.Unlock()

	session := newSession(userID, def, student, all, e.now())
	e.store.Put(userID, session)
	e.log.Info().
		Int64("user_id", userID).
		Str("test", def.Code).
		Int("questions", len(all)).
		Str("student", student.LastName+" "+student.FirstName).
		Msg("session created")
	return session
}

// sampleLocked draws n items uniformly without replacement; the whole pool
// if it is smaller than n. Caller holds rngMu.
func (e *Engine) sampleLocked(pool []domain.QuestionItem, n int) []domain.QuestionItem {
	shuffled := make([]domain.QuestionItem, len(pool))
	copy(shuffled, pool)
	e.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

// Session returns the user's active session, if any.
func (e *Engine) Session(userID int64) (*Session, bool) {
	return e.store.Get(userID)
}

// CurrentQuestion renders the current question with a fresh option shuffle.
func (e *Engine) CurrentQuestion(userID int64) (QuestionView, error) {
	session, ok := e.store.Get(userID)
	if !ok {
		return QuestionView{}, domain.ErrNoActiveSession
	}
	e.rngMu.Lock()
	view, ok := session.currentQuestion(e.rng)
	e.rngMu.Unlock()
	if !ok {
		return QuestionView{}, domain.ErrNoActiveSession
	}
	return view, nil
}

// AnswerQuestion scores the option at optionIndex in the current question's
// displayed order. ErrNoActiveSession covers both a missing session and a
// completed one, making duplicate submissions a no-op.
func (e *Engine) AnswerQuestion(userID int64, optionIndex int) (*AnswerOutcome, error) {
	session, ok := e.store.Get(userID)
	if !ok {
		return nil, domain.ErrNoActiveSession
	}
	outcome, err := session.answer(optionIndex, e.now())
	if err != nil {
		return nil, err
	}
	if outcome.Completed {
		e.log.Info().
			Int64("user_id", userID).
			Int("score", outcome.Score).
			Int("max_score", outcome.MaxScore).
			Msg("test completed")
	}
	return outcome, nil
}

// CancelSession deletes the session record. Scheduled callbacks referencing
// it detect the absence and abort.
func (e *Engine) CancelSession(userID int64) bool {
	deleted := e.store.Delete(userID)
	if deleted {
		e.log.Info().Int64("user_id", userID).Msg("session cancelled")
	}
	return deleted
}

func totalOrDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
