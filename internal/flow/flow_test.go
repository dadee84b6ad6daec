package flow

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"school-test-bot/internal/content"
	"school-test-bot/internal/domain"
	"school-test-bot/internal/infra/memory"
	"school-test-bot/internal/quiz"
)

type sentMessage struct {
	ID  int64
	Msg Message
}

type fakeTransport struct {
	mu      sync.Mutex
	nextID  int64
	sent    []sentMessage
	deleted []int64
}

func (f *fakeTransport) SendMessage(ctx context.Context, userID int64, msg Message) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, sentMessage{ID: f.nextID, Msg: msg})
	return f.nextID, nil
}

func (f *fakeTransport) DeleteMessage(ctx context.Context, userID, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeTransport) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeTransport) lastText() string {
	msgs := f.messages()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Msg.Text
}

func (f *fakeTransport) findText(substr string) bool {
	for _, m := range f.messages() {
		if strings.Contains(m.Msg.Text, substr) {
			return true
		}
	}
	return false
}

type recordingSink struct {
	mu      sync.Mutex
	results []domain.TestResult
}

func (s *recordingSink) SaveResult(ctx context.Context, result domain.TestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

type stubSource struct {
	def domain.TestDefinition
	err error
}

func (s *stubSource) LoadTest(ctx context.Context, code string) (domain.TestDefinition, error) {
	if s.err != nil {
		return domain.TestDefinition{}, s.err
	}
	return s.def, nil
}

func flowTestDefinition() domain.TestDefinition {
	return domain.TestDefinition{
		Code:   "ttii7",
		Config: domain.TestConfig{Title: "Демо", TotalQuestions: 1, TotalProblems: 1, MaxScore: 4},
		Questions: []domain.QuestionItem{{
			Text:   "q1",
			Points: 1,
			Options: []domain.Option{
				{Text: "wrong a"},
				{Text: "correct q1", Correct: true},
				{Text: "wrong b"},
			},
		}},
		Problems: []domain.QuestionItem{{
			Text:   "p1",
			Points: 3,
			Options: []domain.Option{
				{Text: "wrong c"},
				{Text: "correct p1", Correct: true},
			},
		}},
	}
}

func newTestCoordinator(source TestSource) (*Coordinator, *fakeTransport, *recordingSink) {
	transport := &fakeTransport{}
	sink := &recordingSink{}
	tracker := quiz.NewTracker(transport, zerolog.Nop())
	store := memory.NewSessionStore(tracker)
	engine := quiz.NewEngine(store, zerolog.Nop())
	roster := memory.NewRoster([]domain.Student{
		{ID: 1, LastName: "Иванов", FirstName: "Иван", Class: "7"},
	})
	coordinator := NewCoordinator(Deps{
		Engine:    engine,
		Tracker:   tracker,
		Tests:     source,
		Catalog:   content.DefaultCatalog(),
		Roster:    roster,
		Sink:      sink,
		Transport: transport,
		Timing: Timing{
			TempMessage:        5 * time.Millisecond,
			AnswerFeedback:     10 * time.Millisecond,
			QuestionTransition: 5 * time.Millisecond,
			FinalResult:        20 * time.Millisecond,
		},
		Website: "https://example.org",
		Log:     zerolog.Nop(),
	})
	return coordinator, transport, sink
}

func authorize(t *testing.T, c *Coordinator, transport *fakeTransport, userID int64) {
	t.Helper()
	c.HandleText(context.Background(), userID, "Иванов Иван 7", 1)
	msgs := transport.messages()
	if len(msgs) == 0 || msgs[len(msgs)-1].Msg.Menu == nil {
		t.Fatalf("expected main menu after authorization, got %+v", msgs)
	}
}

func startTest(t *testing.T, c *Coordinator, transport *fakeTransport, userID int64) sentMessage {
	t.Helper()
	c.HandleText(context.Background(), userID, "ttii7", 2)
	msgs := transport.messages()
	last := msgs[len(msgs)-1]
	if len(last.Msg.Buttons) == 0 {
		t.Fatalf("expected a question with answer buttons, got %+v", last.Msg)
	}
	return last
}

// correctButtonIndex finds the correct option among the rendered buttons;
// option order changes per render.
func correctButtonIndex(t *testing.T, msg sentMessage) int {
	t.Helper()
	for i, b := range msg.Msg.Buttons {
		if strings.Contains(b.Label, "correct") {
			return i
		}
	}
	t.Fatalf("no correct option among buttons %+v", msg.Msg.Buttons)
	return -1
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestAuthSuccessShowsMenu(t *testing.T) {
	c, transport, _ := newTestCoordinator(&stubSource{def: flowTestDefinition()})
	authorize(t, c, transport, 1)
	if c.StudentCount() != 1 {
		t.Fatalf("expected one authorized student, got %d", c.StudentCount())
	}
}

func TestAuthRejectsBadInput(t *testing.T) {
	c, transport, _ := newTestCoordinator(&stubSource{def: flowTestDefinition()})
	ctx := context.Background()

	c.HandleText(ctx, 1, "Иванов Иван", 1)
	if transport.lastText() != msgAuthBadFormat {
		t.Fatalf("expected bad-format message, got %q", transport.lastText())
	}

	c.HandleText(ctx, 1, "Иванов Иван 6", 2)
	if transport.lastText() != msgAuthBadClass {
		t.Fatalf("expected bad-class message, got %q", transport.lastText())
	}

	c.HandleText(ctx, 1, "Сидоров Олег 7", 3)
	if transport.lastText() != msgAuthNotFound {
		t.Fatalf("expected not-found message, got %q", transport.lastText())
	}
	if c.StudentCount() != 0 {
		t.Fatalf("rejected auth must not authorize")
	}
}

func TestUnknownCodeSuggestsSimilar(t *testing.T) {
	c, transport, _ := newTestCoordinator(&stubSource{def: flowTestDefinition()})
	authorize(t, c, transport, 1)

	c.HandleText(context.Background(), 1, "ttizz", 2)
	if !strings.Contains(transport.lastText(), "не найден") {
		t.Fatalf("expected not-found text, got %q", transport.lastText())
	}
	if !strings.Contains(transport.lastText(), "ttii7") {
		t.Fatalf("expected ttii7 suggestion, got %q", transport.lastText())
	}
}

func TestStartTestShowsQuestion(t *testing.T) {
	c, transport, _ := newTestCoordinator(&stubSource{def: flowTestDefinition()})
	authorize(t, c, transport, 1)

	question := startTest(t, c, transport, 1)
	if c.UserState(1) != StateAwaitingAnswer {
		t.Fatalf("expected awaiting-answer state, got %v", c.UserState(1))
	}
	if !strings.Contains(question.Msg.Text, "Прогресс") {
		t.Fatalf("expected progress header in question, got %q", question.Msg.Text)
	}
	for i, b := range question.Msg.Buttons {
		if b.Data != answerData(i) {
			t.Fatalf("button %d carries wrong callback data %q", i, b.Data)
		}
	}
}

func TestTextDuringTestRemindsButtons(t *testing.T) {
	c, transport, _ := newTestCoordinator(&stubSource{def: flowTestDefinition()})
	authorize(t, c, transport, 1)
	startTest(t, c, transport, 1)

	c.HandleText(context.Background(), 1, "мой ответ", 5)
	if transport.lastText() != msgUseButtons {
		t.Fatalf("expected use-buttons reminder, got %q", transport.lastText())
	}
}

func TestFullTestRunPersistsResult(t *testing.T) {
	c, transport, sink := newTestCoordinator(&stubSource{def: flowTestDefinition()})
	ctx := context.Background()
	authorize(t, c, transport, 1)
	question := startTest(t, c, transport, 1)

	c.HandleAnswer(ctx, 1, correctButtonIndex(t, question))
	if !transport.findText("ПРАВИЛЬНО") {
		t.Fatalf("expected positive feedback after correct answer")
	}
	if c.UserState(1) != StateShowingFeedback {
		t.Fatalf("expected feedback state, got %v", c.UserState(1))
	}

	// Second (final) question appears after the feedback and transition delays.
	waitFor(t, "second question", func() bool {
		msgs := transport.messages()
		last := msgs[len(msgs)-1]
		return len(last.Msg.Buttons) > 0 && strings.Contains(last.Msg.Text, "2/2")
	})

	msgs := transport.messages()
	c.HandleAnswer(ctx, 1, correctButtonIndex(t, msgs[len(msgs)-1]))

	waitFor(t, "result report", func() bool { return transport.findText("ТЕСТ ЗАВЕРШЕН") })
	waitFor(t, "persisted result", func() bool { return sink.count() == 1 })

	sink.mu.Lock()
	result := sink.results[0]
	sink.mu.Unlock()
	if result.Score != 4 || result.Grade != 5 {
		t.Fatalf("expected perfect score 4 grade 5, got %d grade %d", result.Score, result.Grade)
	}
	if result.CorrectQuestions != 1 || result.CorrectProblems != 1 {
		t.Fatalf("unexpected breakdown: %+v", result)
	}

	// Session is gone: a late duplicate press is a no-op.
	c.HandleAnswer(ctx, 1, 0)
	if sink.count() != 1 {
		t.Fatalf("duplicate press persisted a second result")
	}

	waitFor(t, "menu return", func() bool {
		msgs := transport.messages()
		return msgs[len(msgs)-1].Msg.Menu != nil && c.UserState(1) == StateIdle
	})
}

func TestAnswerWithoutSession(t *testing.T) {
	c, transport, _ := newTestCoordinator(&stubSource{def: flowTestDefinition()})
	c.HandleAnswer(context.Background(), 1, 0)
	if transport.lastText() != msgSessionLost {
		t.Fatalf("expected session-lost notice, got %q", transport.lastText())
	}
}

func TestCancelActiveTest(t *testing.T) {
	c, transport, sink := newTestCoordinator(&stubSource{def: flowTestDefinition()})
	ctx := context.Background()
	authorize(t, c, transport, 1)
	startTest(t, c, transport, 1)

	c.HandleCommand(ctx, 1, "cancel", 9)
	if !transport.findText("Тест отменен") {
		t.Fatalf("expected cancellation notice")
	}
	if sink.count() != 0 {
		t.Fatalf("cancelled test must not persist a result")
	}
	if c.UserState(1) != StateIdle {
		t.Fatalf("expected idle state after cancel, got %v", c.UserState(1))
	}

	c.HandleCommand(ctx, 1, "cancel", 10)
	if transport.lastText() != msgNoTestToCancel {
		t.Fatalf("expected nothing-to-cancel notice, got %q", transport.lastText())
	}
}

func TestChangeProfileRequiresReauth(t *testing.T) {
	c, transport, _ := newTestCoordinator(&stubSource{def: flowTestDefinition()})
	authorize(t, c, transport, 1)

	c.HandleText(context.Background(), 1, "👤 Сменить профиль", 4)
	if c.StudentCount() != 0 {
		t.Fatalf("expected profile cleared")
	}
	if transport.lastText() != msgAuthRequest {
		t.Fatalf("expected auth request, got %q", transport.lastText())
	}
}

func TestHelpCommand(t *testing.T) {
	c, transport, _ := newTestCoordinator(&stubSource{def: flowTestDefinition()})
	c.HandleCommand(context.Background(), 1, "help", 1)
	if !strings.Contains(transport.lastText(), "https://example.org") {
		t.Fatalf("expected website in help text, got %q", transport.lastText())
	}
}

func TestLoadFailureReportsError(t *testing.T) {
	c, transport, _ := newTestCoordinator(&stubSource{err: domain.ErrTestNotFound})
	authorize(t, c, transport, 1)

	c.HandleText(context.Background(), 1, "ttii7", 2)
	if !strings.Contains(transport.lastText(), "не удалось загрузить") {
		t.Fatalf("expected load-failure notice, got %q", transport.lastText())
	}
	if _, ok := c.engine.Session(1); ok {
		t.Fatalf("failed load must not create a session")
	}
}
