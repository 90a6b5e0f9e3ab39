package catalog

import (
	"strings"

	"github.com/sanamente/catalogd/internal/domain"
)

// CategoryAll matches every category, including uncategorized products.
const CategoryAll = "all"

// Project derives the filtered sub-list the view renders. Name matching is
// case-insensitive substring containment; category matching is
// case-insensitive equality, with CategoryAll (or empty) matching
// everything and uncategorized products never matching a specific
// category. Both predicates AND together. Ordering of the input is
// preserved; the function is pure.
func Project(products []domain.Product, search, category string) []domain.Product {
	search = strings.ToLower(strings.TrimSpace(search))
	category = strings.TrimSpace(category)
	matchAll := category == "" || strings.EqualFold(category, CategoryAll)

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if !matchAll {
			if p.Category == "" || !strings.EqualFold(p.Category, category) {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}
