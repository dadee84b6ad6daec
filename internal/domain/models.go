package domain

import "time"

// Option represents a possible answer for a question.
type Option struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// QuestionItem models an MCQ question with exactly one correct option.
// Points is 1 for regular questions and 3 for problems.
type QuestionItem struct {
	Text    string   `json:"text"`
	Options []Option `json:"options"`
	Points  int      `json:"points"`
}

// TestConfig is the configuration block of a test file.
type TestConfig struct {
	Title          string `json:"title"`
	MaxScore       int    `json:"maxScore"`
	TotalQuestions int    `json:"totalQuestions"`
	TotalProblems  int    `json:"totalProblems"`
}

// TestDefinition is the static, cached content identified by a test code.
// Immutable once loaded.
type TestDefinition struct {
	Code      string         `json:"code"`
	Config    TestConfig     `json:"config"`
	Questions []QuestionItem `json:"questions"`
	Problems  []QuestionItem `json:"problems"`
}

// CatalogEntry is a statically known test: code plus human title.
type CatalogEntry struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

// Student is the profile resolved by the identity lookup.
type Student struct {
	ID        int    `json:"id"`
	LastName  string `json:"lastName"`
	FirstName string `json:"firstName"`
	Class     string `json:"class"`
}

// StudentMatch is a ranked identity-lookup candidate.
type StudentMatch struct {
	Student Student
	Rank    int
}

// Answer is one slot of a session's answer trail, recorded at submission time.
type Answer struct {
	OptionIndex int  `json:"optionIndex"`
	Correct     bool `json:"correct"`
	Points      int  `json:"points"`
}

// TestResult is the persisted record of a completed session.
type TestResult struct {
	UserID           int64     `json:"userId"`
	Student          Student   `json:"student"`
	TestCode         string    `json:"testCode"`
	TestTitle        string    `json:"testTitle"`
	Score            int       `json:"score"`
	MaxScore         int       `json:"maxScore"`
	Grade            int       `json:"grade"`
	CorrectQuestions int       `json:"correctQuestions"`
	CorrectProblems  int       `json:"correctProblems"`
	Answers          []*Answer `json:"answers"`
	Duration         int       `json:"duration"` // seconds
	CompletedAt      time.Time `json:"completedAt"`
}
