package domain

import "strings"

// MatchRank scores a student against a free-text name/class query. Zero means
// no match. Class must match exactly; names compare case-insensitively, with
// exact matches outranking prefix matches.
func MatchRank(s Student, lastName, firstName, class string) int {
	if s.Class != class {
		return 0
	}
	last := strings.ToLower(lastName)
	first := strings.ToLower(firstName)
	sLast := strings.ToLower(s.LastName)
	sFirst := strings.ToLower(s.FirstName)

	rank := 0
	switch {
	case sLast == last:
		rank += 4
	case strings.HasPrefix(sLast, last):
		rank += 2
	default:
		return 0
	}
	switch {
	case sFirst == first:
		rank += 2
	case strings.HasPrefix(sFirst, first):
		rank++
	}
	return rank
}
