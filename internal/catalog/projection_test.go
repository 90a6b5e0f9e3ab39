package catalog

import (
	"testing"

	"github.com/sanamente/catalogd/internal/domain"
	"github.com/stretchr/testify/assert"
)

func sampleList() []domain.Product {
	return []domain.Product{
		{ID: "4", Name: "Manzanas Orgánicas", Category: "frutas"},
		{ID: "3", Name: "Granola x 500gr", Category: "alimento"},
		{ID: "2", Name: "Kombucha de Jengibre", Category: "bebida"},
		{ID: "1", Name: "Miel Pura"},
	}
}

func TestProjectIdentity(t *testing.T) {
	products := sampleList()
	assert.Equal(t, products, Project(products, "", ""))
	assert.Equal(t, products, Project(products, "", CategoryAll))
	assert.Equal(t, products, Project(products, "  ", "ALL"))
}

func TestProjectSearch(t *testing.T) {
	products := sampleList()

	got := Project(products, "gRaNoLa", "")
	assert.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)

	// substring, not prefix
	got = Project(products, "jengibre", "")
	assert.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	assert.Empty(t, Project(products, "quinoa", ""))
}

func TestProjectCategory(t *testing.T) {
	products := sampleList()

	got := Project(products, "", "FRUTAS")
	assert.Len(t, got, 1)
	assert.Equal(t, "4", got[0].ID)

	// uncategorized products match "all" but never a specific category
	for _, cat := range []string{"frutas", "alimento", "bebida"} {
		for _, p := range Project(products, "", cat) {
			assert.NotEqual(t, "1", p.ID)
		}
	}
	assert.Contains(t, Project(products, "", CategoryAll), products[3])
}

func TestProjectBothPredicates(t *testing.T) {
	products := sampleList()

	got := Project(products, "a", "alimento")
	assert.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)

	// each predicate alone matches; together they may not
	assert.Empty(t, Project(products, "miel", "frutas"))
}

func TestProjectPreservesOrderAndInput(t *testing.T) {
	products := sampleList()
	got := Project(products, "a", "")
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i-1].ID, got[i].ID)
	}
	// input untouched
	assert.Equal(t, sampleList(), products)
}

func TestProjectEmptyInput(t *testing.T) {
	assert.Empty(t, Project(nil, "", ""))
	assert.Empty(t, Project([]domain.Product{}, "x", "frutas"))
}
