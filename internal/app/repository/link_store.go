package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/evanlinks/shortlink/internal/app/model"
	"go.uber.org/zap"
)

// LinksKey is the fixed KV slot holding the serialized record set.
const LinksKey = "shortenedLinks"

var (
	// ErrLinkNotFound signals that the requested link record does not exist.
	ErrLinkNotFound = errors.New("link not found")
)

// LinkStore owns the ordered link collection. Every mutation rewrites the
// whole set into the KV slot; no other component touches the collection
// directly.
type LinkStore interface {
	LoadAll(ctx context.Context) ([]model.LinkRecord, error)
	SaveAll(ctx context.Context, records []model.LinkRecord) error
	InsertFront(ctx context.Context, record model.LinkRecord) error
	RemoveByID(ctx context.Context, id string) error
	ReplaceByID(ctx context.Context, record model.LinkRecord) error
	FindByCode(ctx context.Context, code string) (*model.LinkRecord, error)
	FindByURL(ctx context.Context, url string) (*model.LinkRecord, error)
	FindByID(ctx context.Context, id string) (*model.LinkRecord, error)
	Clear(ctx context.Context) error
	Len() int
}

type linkStore struct {
	mu      sync.Mutex
	kv      KV
	logger  *zap.Logger
	records []model.LinkRecord
}

// NewLinkStore loads the persisted record set and returns a store over it.
// A malformed or absent slot degrades to an empty collection.
func NewLinkStore(ctx context.Context, kv KV, logger *zap.Logger) (LinkStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &linkStore{kv: kv, logger: logger}

	raw, err := kv.Get(ctx, LinksKey)
	if err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}

	if raw != "" {
		var records []model.LinkRecord
		if err := json.Unmarshal([]byte(raw), &records); err != nil {
			logger.Warn("stored links are malformed, starting empty", zap.Error(err))
		} else {
			s.records = records
		}
	}

	return s, nil
}

func (s *linkStore) LoadAll(_ context.Context) ([]model.LinkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

func (s *linkStore) SaveAll(ctx context.Context, records []model.LinkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]model.LinkRecord, len(records))
	copy(next, records)
	return s.commit(ctx, next)
}

func (s *linkStore) InsertFront(ctx context.Context, record model.LinkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]model.LinkRecord, 0, len(s.records)+1)
	next = append(next, record)
	next = append(next, s.records...)
	return s.commit(ctx, next)
}

func (s *linkStore) RemoveByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]model.LinkRecord, 0, len(s.records))
	found := false
	for _, r := range s.records {
		if r.ID == id {
			found = true
			continue
		}
		next = append(next, r)
	}
	if !found {
		return ErrLinkNotFound
	}
	return s.commit(ctx, next)
}

func (s *linkStore) ReplaceByID(ctx context.Context, record model.LinkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()
	for i, r := range next {
		if r.ID == record.ID {
			next[i] = record
			return s.commit(ctx, next)
		}
	}
	return ErrLinkNotFound
}

func (s *linkStore) FindByCode(_ context.Context, code string) (*model.LinkRecord, error) {
	return s.find(func(r model.LinkRecord) bool { return r.ShortCode == code })
}

func (s *linkStore) FindByURL(_ context.Context, url string) (*model.LinkRecord, error) {
	return s.find(func(r model.LinkRecord) bool { return r.OriginalURL == url })
}

func (s *linkStore) FindByID(_ context.Context, id string) (*model.LinkRecord, error) {
	return s.find(func(r model.LinkRecord) bool { return r.ID == id })
}

func (s *linkStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, []model.LinkRecord{})
}

func (s *linkStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *linkStore) find(match func(model.LinkRecord) bool) (*model.LinkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if match(r) {
			out := r
			return &out, nil
		}
	}
	return nil, ErrLinkNotFound
}

func (s *linkStore) snapshot() []model.LinkRecord {
	out := make([]model.LinkRecord, len(s.records))
	copy(out, s.records)
	return out
}

// commit persists the candidate collection and only then swaps it in, so a
// failed write leaves the in-memory state untouched. Caller holds the lock.
func (s *linkStore) commit(ctx context.Context, next []model.LinkRecord) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal links: %w", err)
	}
	if err := s.kv.Set(ctx, LinksKey, string(data)); err != nil {
		return fmt.Errorf("save links: %w", err)
	}
	s.records = next
	return nil
}
