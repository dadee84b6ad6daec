package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"school-test-bot/internal/domain"
)

// HTTPLoader fetches a test definition as a JSON resource at a deterministic
// location keyed by test code: {baseURL}/{code}.json. The original content
// format evaluated fetched text as code; this loader accepts strict data only.
type HTTPLoader struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func NewHTTPLoader(baseURL string, log zerolog.Logger) *HTTPLoader {
	return &HTTPLoader{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("component", "content_loader").Logger(),
	}
}

// LoadTest fetches and parses one test definition. A non-success status or a
// transport failure maps to ErrTestNotFound; a payload missing one of the
// three required declarations, or failing validation, maps to
// ErrMalformedContent. No retries: the caller must re-request.
func (l *HTTPLoader) LoadTest(ctx context.Context, code string) (domain.TestDefinition, error) {
	url := l.baseURL + code + ".json"
	l.log.Info().Str("code", code).Str("url", url).Msg("fetching test")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.TestDefinition{}, fmt.Errorf("build request for %q: %w", code, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return domain.TestDefinition{}, fmt.Errorf("fetch test %q: %v: %w", code, err, domain.ErrTestNotFound)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.TestDefinition{}, fmt.Errorf("fetch test %q: HTTP %d: %w", code, resp.StatusCode, domain.ErrTestNotFound)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.TestDefinition{}, fmt.Errorf("read test %q: %w", code, err)
	}

	def, err := ParseTestDefinition(code, body)
	if err != nil {
		return domain.TestDefinition{}, err
	}
	l.log.Info().Str("code", code).Str("title", def.Config.Title).Msg("test loaded")
	return def, nil
}

// ParseTestDefinition validates that the payload carries the three required
// declarations (config, questions, problems) and that every item is a valid
// MCQ: at least two options, exactly one marked correct. Points are
// normalized by pool: questions are worth 1, problems 3.
func ParseTestDefinition(code string, data []byte) (domain.TestDefinition, error) {
	var payload struct {
		Config    *domain.TestConfig     `json:"config"`
		Questions *[]domain.QuestionItem `json:"questions"`
		Problems  *[]domain.QuestionItem `json:"problems"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return domain.TestDefinition{}, fmt.Errorf("test %q: %v: %w", code, err, domain.ErrMalformedContent)
	}
	if payload.Config == nil {
		return domain.TestDefinition{}, fmt.Errorf("test %q: missing config declaration: %w", code, domain.ErrMalformedContent)
	}
	if payload.Questions == nil {
		return domain.TestDefinition{}, fmt.Errorf("test %q: missing questions declaration: %w", code, domain.ErrMalformedContent)
	}
	if payload.Problems == nil {
		return domain.TestDefinition{}, fmt.Errorf("test %q: missing problems declaration: %w", code, domain.ErrMalformedContent)
	}
	if payload.Config.Title == "" {
		return domain.TestDefinition{}, fmt.Errorf("test %q: config missing title: %w", code, domain.ErrMalformedContent)
	}

	def := domain.TestDefinition{
		Code:      code,
		Config:    *payload.Config,
		Questions: *payload.Questions,
		Problems:  *payload.Problems,
	}
	for i := range def.Questions {
		def.Questions[i].Points = 1
		if err := validateItem(def.Questions[i]); err != nil {
			return domain.TestDefinition{}, fmt.Errorf("test %q: questions[%d]: %v: %w", code, i, err, domain.ErrMalformedContent)
		}
	}
	for i := range def.Problems {
		def.Problems[i].Points = 3
		if err := validateItem(def.Problems[i]); err != nil {
			return domain.TestDefinition{}, fmt.Errorf("test %q: problems[%d]: %v: %w", code, i, err, domain.ErrMalformedContent)
		}
	}
	return def, nil
}

func validateItem(item domain.QuestionItem) error {
	if item.Text == "" {
		return fmt.Errorf("empty question text")
	}
	if len(item.Options) < 2 {
		return fmt.Errorf("need at least 2 options, got %d", len(item.Options))
	}
	correct := 0
	for _, opt := range item.Options {
		if opt.Correct {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("need exactly 1 correct option, got %d", correct)
	}
	return nil
}
