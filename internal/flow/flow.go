package flow

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"school-test-bot/internal/content"
	"school-test-bot/internal/domain"
	"school-test-bot/internal/quiz"
)

// Transport is the narrow chat-platform contract the coordinator talks to.
// SendMessage returns the platform-assigned message id.
type Transport interface {
	SendMessage(ctx context.Context, userID int64, msg Message) (int64, error)
	DeleteMessage(ctx context.Context, userID, messageID int64) error
}

// Message is one outbound chat message.
type Message struct {
	Text       string     `json:"text"`
	Buttons    []Button   `json:"buttons,omitempty"`
	Menu       [][]string `json:"menu,omitempty"`
	RemoveMenu bool       `json:"removeMenu,omitempty"`
}

// Button is an inline callback button under a message.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// TestSource loads test definitions (normally the memoizing cache).
type TestSource interface {
	LoadTest(ctx context.Context, code string) (domain.TestDefinition, error)
}

// Roster is the identity lookup: ranked candidates for a name/class query.
type Roster interface {
	SearchStudents(ctx context.Context, lastName, firstName, class string) ([]domain.StudentMatch, error)
}

// ResultSink persists completed results. It may be unavailable; persistence
// failure is logged and never blocks the user-facing report.
type ResultSink interface {
	SaveResult(ctx context.Context, result domain.TestResult) error
}

// Timing holds the delays of the multi-step UI transitions.
type Timing struct {
	TempMessage        time.Duration
	AnswerFeedback     time.Duration
	QuestionTransition time.Duration
	FinalResult        time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		TempMessage:        3 * time.Second,
		AnswerFeedback:     2500 * time.Millisecond,
		QuestionTransition: time.Second,
		FinalResult:        15 * time.Second,
	}
}

// State names the per-user position in the question/answer state machine.
type State int

const (
	StateIdle State = iota
	StateAwaitingAnswer
	StateShowingFeedback
	StateCompleted
)

// Coordinator drives the conversation: authentication, menus, the test flow,
// and the message lifecycle around them. State mutation happens synchronously
// before any transport I/O is issued; a failing send or delete never leaves
// session state inconsistent, only the chat UI may lag.
type Coordinator struct {
	engine    *quiz.Engine
	tracker   *quiz.Tracker
	tests     TestSource
	catalog   *content.Catalog
	roster    Roster
	sink      ResultSink
	transport Transport
	sched     *Scheduler
	timing    Timing
	website   string
	now       func() time.Time
	log       zerolog.Logger

	mu       sync.Mutex
	students map[int64]domain.Student
	states   map[int64]State
}

type Deps struct {
	Engine    *quiz.Engine
	Tracker   *quiz.Tracker
	Tests     TestSource
	Catalog   *content.Catalog
	Roster    Roster
	Sink      ResultSink
	Transport Transport
	Timing    Timing
	Website   string
	Log       zerolog.Logger
}

func NewCoordinator(deps Deps) *Coordinator {
	return &Coordinator{
		engine:    deps.Engine,
		tracker:   deps.Tracker,
		tests:     deps.Tests,
		catalog:   deps.Catalog,
		roster:    deps.Roster,
		sink:      deps.Sink,
		transport: deps.Transport,
		sched:     NewScheduler(),
		timing:    deps.Timing,
		website:   deps.Website,
		now:       time.Now,
		log:       deps.Log.With().Str("component", "flow").Logger(),
		students:  make(map[int64]domain.Student),
		states:    make(map[int64]State),
	}
}

// HandleCommand processes a slash command: start, help, cancel.
func (c *Coordinator) HandleCommand(ctx context.Context, userID int64, command string, messageID int64) {
	c.deleteUserMessage(ctx, userID, messageID)

	switch command {
	case "start":
		if student, ok := c.student(userID); ok {
			c.showMainMenu(ctx, userID, student)
			return
		}
		c.tracker.StartMessageChain(userID, messageID)
		c.requestAuth(ctx, userID)
	case "help":
		c.sendWithCleanup(ctx, userID, Message{Text: helpText(c.website), RemoveMenu: true}, true)
	case "cancel":
		c.cancelTest(ctx, userID)
	default:
		if student, ok := c.student(userID); ok {
			c.showMainMenu(ctx, userID, student)
		} else {
			c.requestAuth(ctx, userID)
		}
	}
}

// HandleText processes free text: menu buttons, auth input, test codes.
func (c *Coordinator) HandleText(ctx context.Context, userID int64, text string, messageID int64) {
	text = strings.TrimSpace(text)
	student, authorized := c.student(userID)

	// An active test accepts only button presses.
	if _, ok := c.engine.Session(userID); ok {
		c.deleteUserMessage(ctx, userID, messageID)
		c.sendTemp(ctx, userID, Message{Text: msgUseButtons})
		return
	}

	if !authorized {
		c.processAuth(ctx, userID, text, messageID)
		return
	}

	switch text {
	case "📝 Начать тест":
		c.deleteUserMessage(ctx, userID, messageID)
		c.sendWithCleanup(ctx, userID, Message{Text: testChoiceText(c.catalog.Available()), RemoveMenu: true}, true)
	case "📋 Список тестов":
		c.deleteUserMessage(ctx, userID, messageID)
		c.sendWithCleanup(ctx, userID, Message{Text: testListText(c.catalog.Available())}, true)
	case "📊 Мои результаты":
		c.deleteUserMessage(ctx, userID, messageID)
		c.sendWithCleanup(ctx, userID, Message{Text: "📊 *Ваши результаты*\n\nФункция просмотра результатов находится в разработке. Скоро появится!"}, true)
	case "🆘 Помощь":
		c.deleteUserMessage(ctx, userID, messageID)
		c.sendWithCleanup(ctx, userID, Message{Text: helpText(c.website)}, true)
	case "👤 Сменить профиль":
		c.changeProfile(ctx, userID, messageID)
	default:
		if looksLikeTestCode(text) {
			c.processTestCode(ctx, userID, text, student, messageID)
			return
		}
		c.deleteUserMessage(ctx, userID, messageID)
		c.showMainMenu(ctx, userID, student)
	}
}

// HandleAnswer processes an answer button press.
func (c *Coordinator) HandleAnswer(ctx context.Context, userID int64, optionIndex int) {
	// Score synchronously first; only then touch the chat.
	outcome, err := c.engine.AnswerQuestion(userID, optionIndex)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoActiveSession):
			c.sendTemp(ctx, userID, Message{Text: msgSessionLost})
		case errors.Is(err, domain.ErrInvalidAnswer):
			c.log.Warn().Int64("user_id", userID).Int("option", optionIndex).Msg("answer index out of range")
			c.sendTemp(ctx, userID, Message{Text: msgUseButtons})
		}
		return
	}

	c.setState(userID, StateShowingFeedback)
	c.tracker.DeleteActiveMessage(ctx, userID)

	feedback := msgIncorrect
	if outcome.Correct {
		feedback = msgCorrect
	}
	feedbackID, sendErr := c.transport.SendMessage(ctx, userID, Message{Text: feedback})
	if sendErr == nil {
		c.tracker.AddToMessageChain(userID, feedbackID)
	}

	completed := outcome.Completed
	c.sched.After(userID, c.timing.AnswerFeedback, func() {
		ctx := context.Background()
		if feedbackID != 0 {
			_ = c.transport.DeleteMessage(ctx, userID, feedbackID)
		}
		if completed {
			c.finishTest(ctx, userID)
			return
		}
		// The session may have been cancelled or reaped since scheduling.
		if _, ok := c.engine.Session(userID); !ok {
			return
		}
		c.sched.After(userID, c.timing.QuestionTransition, func() {
			c.setState(userID, StateAwaitingAnswer)
			c.showQuestion(context.Background(), userID)
		})
	})
}

func (c *Coordinator) processAuth(ctx context.Context, userID int64, text string, messageID int64) {
	parts := strings.Fields(text)
	if len(parts) < 3 {
		c.sendWithCleanup(ctx, userID, Message{Text: msgAuthBadFormat}, true)
		return
	}
	lastName, firstName, class := parts[0], parts[1], parts[2]

	if !validClass(class) {
		c.sendWithCleanup(ctx, userID, Message{Text: msgAuthBadClass}, true)
		return
	}

	matches, err := c.roster.SearchStudents(ctx, lastName, firstName, class)
	if err != nil {
		c.log.Error().Err(err).Int64("user_id", userID).Msg("roster lookup failed")
		c.sendWithCleanup(ctx, userID, Message{Text: msgAuthNotFound}, true)
		return
	}
	if len(matches) == 0 {
		c.sendWithCleanup(ctx, userID, Message{Text: msgAuthNotFound}, true)
		return
	}

	student := matches[0].Student
	c.saveStudent(userID, student)
	c.deleteUserMessage(ctx, userID, messageID)
	c.log.Info().
		Int64("user_id", userID).
		Str("student", student.LastName+" "+student.FirstName).
		Str("class", student.Class).
		Msg("student authorized")
	c.showMainMenu(ctx, userID, student)
}

func (c *Coordinator) processTestCode(ctx context.Context, userID int64, raw string, student domain.Student, messageID int64) {
	c.deleteUserMessage(ctx, userID, messageID)

	code := strings.ToLower(strings.TrimSpace(raw))
	c.log.Info().Str("raw", raw).Str("code", code).Msg("test code received")

	if len(code) < 4 {
		c.sendWithCleanup(ctx, userID, Message{Text: msgCodeTooShort}, true)
		return
	}
	if !testCodePattern.MatchString(code) {
		c.sendWithCleanup(ctx, userID, Message{Text: msgCodeBadChars}, true)
		return
	}

	if !c.catalog.Contains(code) {
		similar := c.catalog.Similar(code)
		c.sendWithCleanup(ctx, userID, Message{Text: testNotFoundText(raw, similar, c.catalog.Available())}, true)
		return
	}

	def, err := c.tests.LoadTest(ctx, code)
	if err != nil {
		c.log.Error().Err(err).Str("code", code).Msg("test load failed")
		c.sendWithCleanup(ctx, userID, Message{Text: "❌ *Ошибка:* не удалось загрузить тест.\n\nПроверьте правильность кода теста и попробуйте еще раз."}, true)
		return
	}

	c.engine.CreateSession(userID, def, student)
	c.setState(userID, StateAwaitingAnswer)
	c.tracker.StartMessageChain(userID, messageID)
	c.showQuestion(ctx, userID)
}

func (c *Coordinator) showQuestion(ctx context.Context, userID int64) {
	view, err := c.engine.CurrentQuestion(userID)
	if err != nil {
		// Session vanished between scheduling and firing; abort silently.
		return
	}

	buttons := make([]Button, len(view.Options))
	for i, opt := range view.Options {
		buttons[i] = Button{Label: OptionLabel(i, opt), Data: answerData(i)}
	}

	id, sendErr := c.transport.SendMessage(ctx, userID, Message{
		Text:    questionText(view),
		Buttons: buttons,
	})
	if sendErr != nil {
		c.log.Error().Err(sendErr).Int64("user_id", userID).Msg("question send failed")
		return
	}
	c.tracker.SetActiveMessage(userID, id)
	c.tracker.AddToMessageChain(userID, id)
}

func (c *Coordinator) finishTest(ctx context.Context, userID int64) {
	session, ok := c.engine.Session(userID)
	if !ok {
		return
	}
	result := session.Result()

	// Best-effort persistence: the report below is derived purely from
	// in-memory state and never depends on the sink succeeding.
	if err := c.sink.SaveResult(ctx, result); err != nil {
		c.log.Error().Err(err).Int64("user_id", userID).Msg("result persistence failed")
	}

	c.tracker.CleanupMessageChain(ctx, userID)
	c.tracker.DeleteActiveMessage(ctx, userID)
	c.engine.CancelSession(userID)
	c.setState(userID, StateCompleted)

	finalID, err := c.transport.SendMessage(ctx, userID, Message{Text: resultText(result), RemoveMenu: true})
	if err != nil {
		c.log.Error().Err(err).Int64("user_id", userID).Msg("result send failed")
		return
	}
	c.tracker.SetActiveMessage(userID, finalID)

	c.sched.After(userID, c.timing.FinalResult, func() {
		ctx := context.Background()
		transitionID, err := c.transport.SendMessage(ctx, userID, Message{Text: msgBackToMenu})
		if err != nil {
			return
		}
		c.sched.After(userID, c.timing.QuestionTransition, func() {
			ctx := context.Background()
			_ = c.transport.DeleteMessage(ctx, userID, transitionID)
			c.setState(userID, StateIdle)
			if student, ok := c.student(userID); ok {
				c.showMainMenu(ctx, userID, student)
			}
		})
	})
}

func (c *Coordinator) cancelTest(ctx context.Context, userID int64) {
	if _, ok := c.engine.Session(userID); !ok {
		c.sendTemp(ctx, userID, Message{Text: msgNoTestToCancel})
		return
	}

	c.sched.Cancel(userID)
	c.tracker.CleanupMessageChain(ctx, userID)
	c.tracker.DeleteActiveMessage(ctx, userID)
	c.engine.CancelSession(userID)
	c.setState(userID, StateIdle)

	c.sendTemp(ctx, userID, Message{Text: msgTestCancelled})
	if student, ok := c.student(userID); ok {
		c.showMainMenu(ctx, userID, student)
	} else {
		c.requestAuth(ctx, userID)
	}
}

func (c *Coordinator) changeProfile(ctx context.Context, userID int64, messageID int64) {
	c.deleteUserMessage(ctx, userID, messageID)
	c.removeStudent(userID)
	c.tracker.CleanupMessageChain(ctx, userID)
	c.tracker.DeleteActiveMessage(ctx, userID)
	c.tracker.StartMessageChain(userID, messageID)
	c.requestAuth(ctx, userID)
}

func (c *Coordinator) showMainMenu(ctx context.Context, userID int64, student domain.Student) {
	c.sendWithCleanup(ctx, userID, Message{
		Text: mainMenuText(student, c.now()),
		Menu: mainMenuRows,
	}, true)
}

func (c *Coordinator) requestAuth(ctx context.Context, userID int64) {
	c.sendWithCleanup(ctx, userID, Message{Text: msgAuthRequest, RemoveMenu: true}, true)
}

// sendWithCleanup replaces the user's active message: delete-then-set keeps
// at most one live menu per user.
func (c *Coordinator) sendWithCleanup(ctx context.Context, userID int64, msg Message, addToChain bool) {
	c.tracker.DeleteActiveMessage(ctx, userID)

	id, err := c.transport.SendMessage(ctx, userID, msg)
	if err != nil {
		c.log.Error().Err(err).Int64("user_id", userID).Msg("send failed")
		return
	}
	c.tracker.SetActiveMessage(userID, id)
	if addToChain {
		c.tracker.AddToMessageChain(userID, id)
	}
}

// sendTemp shows a short-lived notice deleted on a timer.
func (c *Coordinator) sendTemp(ctx context.Context, userID int64, msg Message) {
	id, err := c.transport.SendMessage(ctx, userID, msg)
	if err != nil {
		return
	}
	c.sched.After(userID, c.timing.TempMessage, func() {
		_ = c.transport.DeleteMessage(context.Background(), userID, id)
	})
}

// deleteUserMessage best-effort removes the user's own message from the chat.
func (c *Coordinator) deleteUserMessage(ctx context.Context, userID int64, messageID int64) {
	if messageID == 0 {
		return
	}
	_ = c.transport.DeleteMessage(ctx, userID, messageID)
}

func (c *Coordinator) student(userID int64) (domain.Student, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.students[userID]
	return s, ok
}

func (c *Coordinator) saveStudent(userID int64, s domain.Student) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.students[userID] = s
}

func (c *Coordinator) removeStudent(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.students, userID)
}

// StudentCount returns the number of authorized users, for the admin surface.
func (c *Coordinator) StudentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.students)
}

func (c *Coordinator) setState(userID int64, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == StateIdle {
		delete(c.states, userID)
		return
	}
	c.states[userID] = s
}

// UserState returns the user's flow state, for tests and the admin surface.
func (c *Coordinator) UserState(userID int64) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[userID]
}

var (
	testCodePattern = regexp.MustCompile(`^[a-z0-9]+$`)
	classValues     = map[string]bool{"7": true, "8": true, "9": true, "10": true, "11": true}
)

func validClass(class string) bool {
	return classValues[class]
}

func looksLikeTestCode(text string) bool {
	code := strings.ToLower(text)
	return len(code) >= 4 && testCodePattern.MatchString(code)
}

func answerData(index int) string {
	return "answer:" + strconv.Itoa(index)
}
