package quiz

import (
	"math/rand"
	"sync"
	"time"

	"school-test-bot/internal/domain"
)

// Session is one user's in-progress or completed attempt at a test.
// All state mutation happens synchronously under the session mutex, before
// any network I/O is issued, so a slow or failing transport call never
// leaves session state inconsistent.
type Session struct {
	mu sync.Mutex

	userID    int64
	student   domain.Student
	testCode  string
	testTitle string
	maxScore  int

	// Ordered, immutable after creation.
	questions []domain.QuestionItem

	cursor    int
	answers   []*domain.Answer
	score     int
	completed bool
	startTime time.Time
	endTime   time.Time
	grade     int

	correctQuestions int
	correctProblems  int

	// Permutation of the current question's options as last rendered.
	// Options are shuffled at display time, not at session creation,
	// so re-rendering the same question uses a fresh permutation.
	displayed []domain.Option
}

// QuestionView is the display form of the current question.
type QuestionView struct {
	Number  int
	Total   int
	Text    string
	Points  int
	Options []string
}

// AnswerOutcome summarizes one answer submission.
type AnswerOutcome struct {
	Correct   bool
	Completed bool
	Score     int
	MaxScore  int
}

func newSession(userID int64, def domain.TestDefinition, student domain.Student, questions []domain.QuestionItem, now time.Time) *Session {
	s := &Session{
		userID:    userID,
		student:   student,
		testCode:  def.Code,
		testTitle: def.Config.Title,
		maxScore:  maxScoreOrDefault(def.Config.MaxScore),
		questions: questions,
		answers:   make([]*domain.Answer, len(questions)),
		startTime: now,
	}
	// A definition with empty pools yields nothing to answer; the session is
	// born completed so completion always means cursor == len(questions).
	if len(questions) == 0 {
		s.completed = true
		s.endTime = now
		s.grade = GradeFor(0, s.maxScore)
	}
	return s
}

// currentQuestion renders the question at the cursor with a freshly shuffled
// option order and records that order for answer resolution.
func (s *Session) currentQuestion(rng *rand.Rand) (QuestionView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completed || s.cursor >= len(s.questions) {
		return QuestionView{}, false
	}

	q := s.questions[s.cursor]
	shuffled := make([]domain.Option, len(q.Options))
	copy(shuffled, q.Options)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.displayed = shuffled

	labels := make([]string, len(shuffled))
	for i, opt := range shuffled {
		labels[i] = opt.Text
	}
	return QuestionView{
		Number:  s.cursor + 1,
		Total:   len(s.questions),
		Text:    q.Text,
		Points:  q.Points,
		Options: labels,
	}, true
}

// answer records an answer for the current question and advances the cursor.
// Returns (nil, false) on a completed session: duplicate button presses on a
// finished test must not double-score.
func (s *Session) answer(optionIndex int, now time.Time) (*AnswerOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completed || s.cursor >= len(s.questions) {
		return nil, domain.ErrNoActiveSession
	}

	options := s.displayed
	if options == nil {
		// Question answered without an intervening render; fall back to
		// the stored option order.
		options = s.questions[s.cursor].Options
	}
	// Contract violation: reject before any mutation.
	if optionIndex < 0 || optionIndex >= len(options) {
		return nil, domain.ErrInvalidAnswer
	}

	q := s.questions[s.cursor]
	correct := options[optionIndex].Correct
	s.answers[s.cursor] = &domain.Answer{
		OptionIndex: optionIndex,
		Correct:     correct,
		Points:      q.Points,
	}
	if correct {
		s.score += q.Points
	}
	s.cursor++
	s.displayed = nil

	if s.cursor >= len(s.questions) {
		s.completed = true
		s.endTime = now
		s.grade = GradeFor(s.score, s.maxScore)
		s.recountLocked()
	}

	return &AnswerOutcome{
		Correct:   correct,
		Completed: s.completed,
		Score:     s.score,
		MaxScore:  s.maxScore,
	}, nil
}

// recountLocked rebuilds the per-category correct counts from the stored
// answer trail, bucketing by the points recorded at submission time. Deriving
// the breakdown from the trail rather than running counters keeps it
// consistent with the stored answers.
func (s *Session) recountLocked() {
	s.correctQuestions = 0
	s.correctProblems = 0
	for _, a := range s.answers {
		if a == nil || !a.Correct {
			continue
		}
		switch a.Points {
		case 1:
			s.correctQuestions++
		case 3:
			s.correctProblems++
		}
	}
}

// Result builds the persisted record of a completed session.
func (s *Session) Result() domain.TestResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make([]*domain.Answer, len(s.answers))
	copy(answers, s.answers)
	return domain.TestResult{
		UserID:           s.userID,
		Student:          s.student,
		TestCode:         s.testCode,
		TestTitle:        s.testTitle,
		Score:            s.score,
		MaxScore:         s.maxScore,
		Grade:            s.grade,
		CorrectQuestions: s.correctQuestions,
		CorrectProblems:  s.correctProblems,
		Answers:          answers,
		Duration:         int(s.endTime.Sub(s.startTime) / time.Second),
		CompletedAt:      s.endTime,
	}
}

// UserID returns the owning user.
func (s *Session) UserID() int64 { return s.userID }

// Student returns the authenticated profile the session was created with.
func (s *Session) Student() domain.Student { return s.student }

// StartedAt returns the session creation time. Used by the idle reaper.
func (s *Session) StartedAt() time.Time { return s.startTime }

// Completed reports whether every question has been answered.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Progress returns answered and total question counts.
func (s *Session) Progress() (answered, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, len(s.questions)
}

// TestTitle returns the human title of the test under way.
func (s *Session) TestTitle() string { return s.testTitle }

// GradeFor maps a score to the 1-5 grade scale.
// Boundary percentages land in the higher bucket.
func GradeFor(score, maxScore int) int {
	if maxScore <= 0 {
		return 1
	}
	percentage := float64(score) / float64(maxScore) * 100
	switch {
	case percentage >= 90:
		return 5
	case percentage >= 75:
		return 4
	case percentage >= 60:
		return 3
	case percentage >= 40:
		return 2
	default:
		return 1
	}
}

func maxScoreOrDefault(v int) int {
	if v <= 0 {
		return 29
	}
	return v
}
