package domain

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cast"
)

// Product is one catalog entry as seen by the view model. The backing
// collection is schema-less, so every field except ID is best-effort.
type Product struct {
	ID          string    `json:"id" csv:"id"`
	Name        string    `json:"name" csv:"name"`
	Category    string    `json:"tipo" csv:"tipo"` // source field name is "tipo"
	Quantity    string    `json:"quantity" csv:"quantity"`
	Price       float64   `json:"price" csv:"price"`
	Description string    `json:"description" csv:"description"`
	ImageURL    string    `json:"imageUrl" csv:"image_url"`
	CreatedAt   time.Time `json:"createdAt" csv:"created_at"`
}

// ProductFromDocument maps a raw store document onto a Product. Documents
// missing fields (including name) are kept with permissive defaults rather
// than dropped; the store treats the collection as schema-less and so do we.
func ProductFromDocument(id string, doc map[string]interface{}) Product {
	return Product{
		ID:          id,
		Name:        strings.TrimSpace(cast.ToString(doc["name"])),
		Category:    strings.TrimSpace(cast.ToString(doc["tipo"])),
		Quantity:    strings.TrimSpace(cast.ToString(doc["quantity"])),
		Price:       cast.ToFloat64(doc["price"]),
		Description: cast.ToString(doc["description"]),
		ImageURL:    strings.TrimSpace(cast.ToString(doc["imageUrl"])),
		CreatedAt:   parseCreatedAt(doc["createdAt"]),
	}
}

// parseCreatedAt accepts the timestamp shapes that show up in the wild:
// RFC3339 strings, loose date strings, unix seconds and unix milliseconds.
// Anything unreadable becomes the zero time, which sorts as oldest.
func parseCreatedAt(v interface{}) time.Time {
	switch t := v.(type) {
	case nil:
		return time.Time{}
	case time.Time:
		return t
	case string:
		if t == "" {
			return time.Time{}
		}
		ts, err := dateparse.ParseAny(t)
		if err != nil {
			return time.Time{}
		}
		return ts
	default:
		n := cast.ToInt64(v)
		if n <= 0 {
			return time.Time{}
		}
		if n > 1e12 { // millisecond epoch
			return time.UnixMilli(n)
		}
		return time.Unix(n, 0)
	}
}
