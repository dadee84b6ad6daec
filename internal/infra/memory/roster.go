package memory

import (
	"context"
	"sort"

	"school-test-bot/internal/domain"
)

// Roster is a static in-memory identity lookup (useful for tests/demos).
type Roster struct {
	students []domain.Student
}

func NewRoster(students []domain.Student) *Roster {
	return &Roster{students: students}
}

// SearchStudents returns ranked candidates for a free-text name/class query,
// best first. The caller takes the top match unless it chooses to present
// alternatives.
func (r *Roster) SearchStudents(_ context.Context, lastName, firstName, class string) ([]domain.StudentMatch, error) {
	var matches []domain.StudentMatch
	for _, s := range r.students {
		if rank := domain.MatchRank(s, lastName, firstName, class); rank > 0 {
			matches = append(matches, domain.StudentMatch{Student: s, Rank: rank})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Rank > matches[j].Rank
	})
	return matches, nil
}
