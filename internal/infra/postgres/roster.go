package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v4/pgxpool"

	"school-test-bot/internal/domain"
)

// Roster resolves students from the school roster table.
type Roster struct {
	pool *pgxpool.Pool
}

func NewRoster(pool *pgxpool.Pool) *Roster {
	return &Roster{pool: pool}
}

// SearchStudents fetches the class roster and ranks candidates in memory;
// per-class rosters are small enough that database-side ranking buys nothing.
func (r *Roster) SearchStudents(ctx context.Context, lastName, firstName, class string) ([]domain.StudentMatch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, last_name, first_name, class FROM students WHERE class=$1`, class)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var matches []domain.StudentMatch
	for rows.Next() {
		var s domain.Student
		if err := rows.Scan(&s.ID, &s.LastName, &s.FirstName, &s.Class); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		if rank := domain.MatchRank(s, lastName, firstName, class); rank > 0 {
			matches = append(matches, domain.StudentMatch{Student: s, Rank: rank})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roster rows: %w", err)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Rank > matches[j].Rank
	})
	return matches, nil
}
