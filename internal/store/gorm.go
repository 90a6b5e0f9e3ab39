package store

import (
	"context"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/bwmarrin/snowflake"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sanamente/catalogd/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GormStore keeps schema-less documents in a single relational table and
// publishes a change event per mutated collection on the shared bus. The
// stream hub turns those events into full-snapshot deliveries.
type GormStore struct {
	db   *gorm.DB
	bus  EventBus.Bus
	node *snowflake.Node
	hub  *streamHub
}

// Ensure GormStore implements the store contract
var _ Store = (*GormStore)(nil)

// NewGormStore creates a document store over the given database handle.
func NewGormStore(db *gorm.DB, bus EventBus.Bus, node *snowflake.Node) (*GormStore, error) {
	s := &GormStore{db: db, bus: bus, node: node}
	hub, err := newStreamHub(s, bus)
	if err != nil {
		return nil, err
	}
	s.hub = hub
	return s, nil
}

func (s *GormStore) AddDocument(ctx context.Context, collection string, fields Document) (string, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return "", errors.Wrap(domain.ErrWriteFailed, err.Error())
	}
	docID := s.node.Generate().String()
	row := domain.StoreDocument{
		ID:         s.node.Generate().Int64(),
		Collection: collection,
		DocID:      docID,
		Payload:    string(payload),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", errors.Wrap(domain.ErrWriteFailed, err.Error())
	}
	s.notifyChanged(collection)
	return docID, nil
}

// UpdateDocument merges the given fields into an existing document. Fields
// not present in the update keep their stored value.
func (s *GormStore) UpdateDocument(ctx context.Context, collection, id string, fields Document) error {
	var row domain.StoreDocument
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrapf(domain.ErrNotFound, "document %s/%s", collection, id)
	} else if err != nil {
		return errors.Wrap(domain.ErrWriteFailed, err.Error())
	}

	merged := Document{}
	if err := json.Unmarshal([]byte(row.Payload), &merged); err != nil {
		zap.L().Warn("discarding unreadable document payload on update",
			zap.String("collection", collection),
			zap.String("doc_id", id),
			zap.Error(err),
		)
		merged = Document{}
	}
	for k, v := range fields {
		merged[k] = v
	}

	payload, err := json.Marshal(merged)
	if err != nil {
		return errors.Wrap(domain.ErrWriteFailed, err.Error())
	}
	res := s.db.WithContext(ctx).
		Model(&domain.StoreDocument{}).
		Where("collection = ? AND doc_id = ?", collection, id).
		Updates(map[string]interface{}{
			"payload":    string(payload),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return errors.Wrap(domain.ErrWriteFailed, res.Error.Error())
	}
	s.notifyChanged(collection)
	return nil
}

func (s *GormStore) DeleteDocument(ctx context.Context, collection, id string) error {
	res := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Delete(&domain.StoreDocument{})
	if res.Error != nil {
		return errors.Wrap(domain.ErrWriteFailed, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(domain.ErrNotFound, "document %s/%s", collection, id)
	}
	s.notifyChanged(collection)
	return nil
}

func (s *GormStore) Subscribe(collection string) (*Subscription, error) {
	return s.hub.subscribe(collection)
}

// Close stops the stream hub and closes all open subscriptions.
func (s *GormStore) Close() {
	s.hub.close()
}

func (s *GormStore) notifyChanged(collection string) {
	s.bus.Publish(changedTopic(collection), collection)
}

// loadSnapshot reads the full current document set of a collection. A query
// failure is surfaced as a SyncFailure snapshot, never as a dropped list.
func (s *GormStore) loadSnapshot(collection string) Snapshot {
	var rows []domain.StoreDocument
	err := s.db.
		Where("collection = ?", collection).
		Order("doc_id ASC").
		Find(&rows).Error
	if err != nil {
		zap.L().Error("failed to load collection snapshot",
			zap.String("collection", collection),
			zap.Error(err),
		)
		return Snapshot{Err: errors.Wrap(domain.ErrSyncFailure, err.Error())}
	}

	docs := make([]RawDocument, 0, len(rows))
	for _, row := range rows {
		fields := Document{}
		if err := json.Unmarshal([]byte(row.Payload), &fields); err != nil {
			zap.L().Warn("skipping unreadable payload, keeping document id",
				zap.String("collection", collection),
				zap.String("doc_id", row.DocID),
				zap.Error(err),
			)
			fields = Document{}
		}
		docs = append(docs, RawDocument{ID: row.DocID, Fields: fields})
	}
	return Snapshot{Docs: docs}
}
