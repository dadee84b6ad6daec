package content

import (
	"strings"

	"school-test-bot/internal/domain"
)

// Catalog is the fixed, statically known list of tests, independent of cache
// state.
type Catalog struct {
	entries []domain.CatalogEntry
}

func NewCatalog(entries []domain.CatalogEntry) *Catalog {
	return &Catalog{entries: entries}
}

// DefaultCatalog lists the tests currently published on the content site.
func DefaultCatalog() *Catalog {
	return NewCatalog([]domain.CatalogEntry{
		{Code: "ttii7", Title: "Компьютер — универсальное устройство (7 класс)"},
		{Code: "test", Title: "Основной тест"},
	})
}

// Available returns all catalog entries.
func (c *Catalog) Available() []domain.CatalogEntry {
	out := make([]domain.CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Contains reports whether a code is in the catalog.
func (c *Catalog) Contains(code string) bool {
	for _, e := range c.entries {
		if e.Code == code {
			return true
		}
	}
	return false
}

// Similar returns catalog entries whose code exactly matches the candidate,
// or, failing that, whose first 3 characters match or which contain the
// candidate as a substring. A typo-tolerant suggestion in list order, not a
// ranked search.
func (c *Catalog) Similar(candidate string) []domain.CatalogEntry {
	var exact []domain.CatalogEntry
	for _, e := range c.entries {
		if e.Code == candidate {
			exact = append(exact, e)
		}
	}
	if len(exact) > 0 {
		return exact
	}

	var similar []domain.CatalogEntry
	for _, e := range c.entries {
		if prefix3Match(e.Code, candidate) || strings.Contains(e.Code, candidate) {
			similar = append(similar, e)
		}
	}
	return similar
}

func prefix3Match(code, candidate string) bool {
	if len(code) < 3 || len(candidate) < 3 {
		return false
	}
	return code[:3] == candidate[:3]
}
