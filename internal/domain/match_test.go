package domain

import "testing"

func TestMatchRank(t *testing.T) {
	student := Student{LastName: "Иванов", FirstName: "Иван", Class: "7"}

	cases := []struct {
		name                       string
		lastName, firstName, class string
		want                       int
	}{
		{"exact", "Иванов", "Иван", "7", 6},
		{"exact case-insensitive", "иванов", "иван", "7", 6},
		{"surname prefix", "Ивано", "Иван", "7", 4},
		{"name prefix", "Иванов", "Ив", "7", 5},
		{"wrong class", "Иванов", "Иван", "8", 0},
		{"wrong surname", "Петров", "Иван", "7", 0},
		{"wrong name still matches surname", "Иванов", "Олег", "7", 4},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := MatchRank(student, c.lastName, c.firstName, c.class); got != c.want {
				t.Fatalf("MatchRank(%q, %q, %q) = %d, want %d", c.lastName, c.firstName, c.class, got, c.want)
			}
		})
	}
}
