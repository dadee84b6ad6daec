package flow

import (
	"fmt"
	"regexp"
	"strings"
)

var markdownSpecials = regexp.MustCompile("[_*\\[\\]()~`>#+\\-=|{}.!]")

// EscapeMarkdown escapes characters the chat renderer treats as markup.
func EscapeMarkdown(text string) string {
	return markdownSpecials.ReplaceAllString(text, `\$0`)
}

var setLiteral = regexp.MustCompile(`\{([^}]+)\}`)

// FormatQuestionText prepares question text for chat display: set literals
// like {1, 2, 3} go monospace so braces survive the renderer, and paragraphs
// get breathing room. Set-theory glyphs (∅ ∈ ⊆ ∩ ∪) pass through as-is.
func FormatQuestionText(text string) string {
	text = setLiteral.ReplaceAllString(text, "`$1`")
	return strings.ReplaceAll(text, "\n", "\n\n")
}

// ProgressBar renders current/total as a fixed-width block bar plus percent.
func ProgressBar(current, total int) string {
	const width = 20
	if total <= 0 {
		return strings.Repeat("⬜", width) + " 0%"
	}
	percent := current * 100 / total
	filled := (percent*width + 50) / 100
	if filled > width {
		filled = width
	}
	return strings.Repeat("🟩", filled) + strings.Repeat("⬜", width-filled) + fmt.Sprintf(" %d%%", percent)
}

// ScoreBar renders a score percentage as stars.
func ScoreBar(percent int) string {
	const width = 20
	filled := (percent*width + 50) / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("⭐", filled) + strings.Repeat("☆", width-filled)
}

// GradeStars renders a 1-5 grade as filled/empty stars.
func GradeStars(grade int) string {
	if grade < 0 {
		grade = 0
	}
	if grade > 5 {
		grade = 5
	}
	return strings.Repeat("⭐", grade) + strings.Repeat("☆", 5-grade)
}

// FormatDuration renders a minute count in Russian with proper declension.
func FormatDuration(minutes int) string {
	switch {
	case minutes < 1:
		return "менее минуты"
	case minutes == 1:
		return "1 минута"
	case minutes < 5:
		return fmt.Sprintf("%d минуты", minutes)
	default:
		return fmt.Sprintf("%d минут", minutes)
	}
}

var optionEmojis = []string{"🅰️", "🅱️", "🆎", "🅾️", "🆑", "🆒", "🆓", "🆔"}

// OptionLabel renders one answer button caption: emoji, letter, text.
func OptionLabel(index int, text string) string {
	letter := string(rune('A' + index))
	emoji := "🔘"
	if index < len(optionEmojis) {
		emoji = optionEmojis[index]
	}
	return fmt.Sprintf("%s %s. %s", emoji, letter, text)
}
