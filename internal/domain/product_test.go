package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProductFromDocument(t *testing.T) {
	p := ProductFromDocument("p1", map[string]interface{}{
		"name":        "  Miel Pura ",
		"tipo":        "alimento",
		"quantity":    "1 u",
		"price":       8200,
		"description": "Pura y natural.",
		"imageUrl":    "https://example.com/miel.jpg",
		"createdAt":   "2024-05-01T12:00:00Z",
	})
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Miel Pura", p.Name)
	assert.Equal(t, "alimento", p.Category)
	assert.Equal(t, 8200.0, p.Price)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), p.CreatedAt.UTC())
}

func TestProductFromDocumentCoercions(t *testing.T) {
	p := ProductFromDocument("p2", map[string]interface{}{
		"name":     42,
		"price":    "12.50",
		"quantity": 3,
	})
	assert.Equal(t, "42", p.Name)
	assert.Equal(t, 12.5, p.Price)
	assert.Equal(t, "3", p.Quantity)
	assert.True(t, p.CreatedAt.IsZero())
}

func TestParseCreatedAtShapes(t *testing.T) {
	secs := int64(1700000000)
	assert.Equal(t, secs, parseCreatedAt(secs).Unix())
	assert.Equal(t, secs, parseCreatedAt(secs*1000).Unix()) // millisecond epoch
	assert.Equal(t, secs, parseCreatedAt(float64(secs)).Unix())

	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, ts, parseCreatedAt(ts))

	assert.True(t, parseCreatedAt(nil).IsZero())
	assert.True(t, parseCreatedAt("").IsZero())
	assert.True(t, parseCreatedAt("not a date").IsZero())
	assert.True(t, parseCreatedAt(-5).IsZero())
}
