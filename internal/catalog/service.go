package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sanamente/catalogd/internal/domain"
	"github.com/sanamente/catalogd/internal/store"
	"go.uber.org/zap"
)

// Input carries the editable product fields for create and update. Price is
// a pointer so "absent" and "zero" stay distinguishable for validation.
type Input struct {
	Name        string   `json:"name"`
	Category    string   `json:"tipo"`
	Quantity    string   `json:"quantity"`
	Price       *float64 `json:"price"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl"`
}

// Notifier is told about confirmed mutations. Implementations must not
// block the mutation path.
type Notifier interface {
	ProductChanged(action, id string)
}

// Service issues catalog mutations against the store. Every operation is a
// fire-and-once call with no retry; a failure is reported and the caller
// must re-initiate. The service never patches any local list: removal and
// insertion become visible through the subscription's next snapshot.
type Service struct {
	store       store.Store
	placeholder string
	notifier    Notifier
	now         func() time.Time
}

// NewService creates the mutation service. placeholderImage is the
// caller-supplied default applied when a created product carries no image;
// the service never fabricates one of its own.
func NewService(st store.Store, placeholderImage string, notifier Notifier) *Service {
	return &Service{
		store:       st,
		placeholder: placeholderImage,
		notifier:    notifier,
		now:         time.Now,
	}
}

// Create validates and writes a new product document. createdAt is the
// client clock at write time and is only ever used as a sort key.
func (s *Service) Create(ctx context.Context, in Input) (string, error) {
	if err := validate(in); err != nil {
		return "", err
	}

	imageURL := strings.TrimSpace(in.ImageURL)
	if imageURL == "" {
		imageURL = s.placeholder
	}

	id, err := s.store.AddDocument(ctx, Collection, store.Document{
		"name":        strings.TrimSpace(in.Name),
		"tipo":        strings.TrimSpace(in.Category),
		"quantity":    strings.TrimSpace(in.Quantity),
		"price":       *in.Price,
		"description": in.Description,
		"imageUrl":    imageURL,
		"createdAt":   s.now().UTC(),
	})
	if err != nil {
		return "", err
	}

	zap.L().Info("product created", zap.String("doc_id", id), zap.String("name", in.Name))
	s.notify("created", id)
	return id, nil
}

// Update overwrites the editable fields of an existing product. The target
// must already exist; id and createdAt are preserved.
func (s *Service) Update(ctx context.Context, id string, in Input) error {
	if strings.TrimSpace(id) == "" {
		return errors.Wrap(domain.ErrValidationFailed, "id is required")
	}
	if err := validate(in); err != nil {
		return err
	}

	err := s.store.UpdateDocument(ctx, Collection, id, store.Document{
		"name":        strings.TrimSpace(in.Name),
		"tipo":        strings.TrimSpace(in.Category),
		"quantity":    strings.TrimSpace(in.Quantity),
		"price":       *in.Price,
		"description": in.Description,
		"imageUrl":    strings.TrimSpace(in.ImageURL),
	})
	if err != nil {
		return err
	}

	zap.L().Info("product updated", zap.String("doc_id", id))
	s.notify("updated", id)
	return nil
}

// Delete removes a product document. Callers route this through the
// confirm workflow; a second delete needs a fresh confirmation.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.Wrap(domain.ErrValidationFailed, "id is required")
	}
	if err := s.store.DeleteDocument(ctx, Collection, id); err != nil {
		return err
	}

	zap.L().Info("product deleted", zap.String("doc_id", id))
	s.notify("deleted", id)
	return nil
}

func (s *Service) notify(action, id string) {
	if s.notifier != nil {
		s.notifier.ProductChanged(action, id)
	}
}

// validate enforces the minimum mandatory set before any network call:
// name, quantity and price.
func validate(in Input) error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.Wrap(domain.ErrValidationFailed, "name is required")
	}
	if strings.TrimSpace(in.Quantity) == "" {
		return errors.Wrap(domain.ErrValidationFailed, "quantity is required")
	}
	if in.Price == nil {
		return errors.Wrap(domain.ErrValidationFailed, "price is required")
	}
	return nil
}
