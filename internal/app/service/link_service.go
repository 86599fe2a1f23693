package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/evanlinks/shortlink/internal/app/model"
	"github.com/evanlinks/shortlink/internal/app/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultBaseDomain = "evanlinks.com"

	// Sizing for the negative-lookup filter over live short codes. Stale
	// entries from deletes only cost extra store lookups, never wrong
	// answers; the filter is emptied only on ClearAll.
	bloomCapacity = 100_000
	bloomFPRate   = 0.01
)

// LinkService composes validation, code allocation and the link store into
// the operation set the outer surfaces call.
type LinkService interface {
	Create(ctx context.Context, input CreateLinkInput) (*model.LinkRecord, error)
	Get(ctx context.Context, id string) (*model.LinkRecord, error)
	Resolve(ctx context.Context, code string) (*model.LinkRecord, error)
	Update(ctx context.Context, id string, input UpdateLinkInput) (*model.LinkRecord, error)
	Delete(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
	List(ctx context.Context) ([]model.LinkRecord, error)
	Filtered(ctx context.Context, category string) ([]model.LinkRecord, error)
	Export(ctx context.Context) ([]model.ExportRecord, error)
}

// Options tune service behaviour; zero values give sane defaults.
type Options struct {
	// BaseDomain is embedded into every record's display ShortURL.
	BaseDomain string
	// CreateDelay is the cosmetic pause before a create completes. It is
	// cancellable through ctx and has no effect on the data model.
	CreateDelay time.Duration
}

// CreateLinkInput captures data required to create a link.
type CreateLinkInput struct {
	URL        string
	CustomCode string
	Password   string
	ExpiryDate *time.Time
	Category   string
}

// UpdateLinkInput captures fields that can be changed on an existing link.
// Nil fields stay untouched; id, createdAt and clicks are never replaced.
type UpdateLinkInput struct {
	URL        *string
	CustomCode *string
	Password   *string
	ExpiryDate *time.Time
	Category   *string
}

type linkService struct {
	// mu serializes read-modify-write sequences across operations; the
	// store alone only serializes individual calls, which is not enough to
	// keep code uniqueness under concurrent creates.
	mu     sync.Mutex
	store  repository.LinkStore
	logger *zap.Logger
	opts   Options
	filter *bloom.BloomFilter
}

// NewLinkService returns a service over the given store. The code filter is
// seeded from the currently persisted records.
func NewLinkService(ctx context.Context, store repository.LinkStore, logger *zap.Logger, opts Options) (LinkService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BaseDomain == "" {
		opts.BaseDomain = defaultBaseDomain
	}

	s := &linkService{
		store:  store,
		logger: logger,
		opts:   opts,
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPRate),
	}

	records, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed code filter: %w", err)
	}
	for _, r := range records {
		s.filter.AddString(r.ShortCode)
	}

	return s, nil
}

func (s *linkService) Create(ctx context.Context, input CreateLinkInput) (*model.LinkRecord, error) {
	normalized, err := NormalizeURL(input.URL)
	if err != nil {
		return nil, err
	}

	// Shortening the same destination twice hands back the original record.
	if existing, err := s.store.FindByURL(ctx, normalized); err == nil {
		return existing, nil
	}

	// The pause is cosmetic; it runs outside the lock so a delayed create
	// never stalls resolves or updates.
	if err := s.pause(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// An identical create may have landed during the pause.
	if existing, err := s.store.FindByURL(ctx, normalized); err == nil {
		return existing, nil
	}

	codes, err := s.existingCodes(ctx)
	if err != nil {
		return nil, err
	}
	code, err := AllocateCode(input.CustomCode, codes)
	if err != nil {
		return nil, err
	}

	record := model.LinkRecord{
		ID:          uuid.New().String(),
		OriginalURL: normalized,
		ShortCode:   code,
		ShortURL:    s.shortURL(code),
		Password:    input.Password,
		ExpiryDate:  input.ExpiryDate,
		Category:    input.Category,
		CreatedAt:   time.Now().UTC(),
		Clicks:      0,
	}
	if input.CustomCode != "" {
		record.CustomCode = code
	}

	if err := s.store.InsertFront(ctx, record); err != nil {
		return nil, fmt.Errorf("insert link: %w", err)
	}
	s.filter.AddString(code)

	s.logger.Debug("link created",
		zap.String("id", record.ID),
		zap.String("code", record.ShortCode),
		zap.String("url", record.OriginalURL),
	)
	return &record, nil
}

func (s *linkService) Get(ctx context.Context, id string) (*model.LinkRecord, error) {
	return s.store.FindByID(ctx, id)
}

// Resolve is a mutating read: a hit counts as a click and is persisted
// before the record is returned. Expired links still resolve; expiry is
// informational only.
func (s *linkService) Resolve(ctx context.Context, code string) (*model.LinkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.filter.TestString(code) {
		return nil, repository.ErrLinkNotFound
	}

	record, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	record.Clicks++
	if err := s.store.ReplaceByID(ctx, *record); err != nil {
		return nil, fmt.Errorf("record click: %w", err)
	}
	return record, nil
}

func (s *linkService) Update(ctx context.Context, id string, input UpdateLinkInput) (*model.LinkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.URL != nil {
		normalized, err := NormalizeURL(*input.URL)
		if err != nil {
			return nil, err
		}
		record.OriginalURL = normalized
	}
	if input.CustomCode != nil && *input.CustomCode != record.ShortCode {
		codes, err := s.existingCodes(ctx)
		if err != nil {
			return nil, err
		}
		delete(codes, record.ShortCode)
		code, err := NormalizeCode(*input.CustomCode, codes)
		if err != nil {
			return nil, err
		}
		record.ShortCode = code
		record.CustomCode = code
		record.ShortURL = s.shortURL(code)
		s.filter.AddString(code)
	}
	if input.Password != nil {
		record.Password = *input.Password
	}
	if input.ExpiryDate != nil {
		record.ExpiryDate = input.ExpiryDate
	}
	if input.Category != nil {
		record.Category = *input.Category
	}

	if err := s.store.ReplaceByID(ctx, *record); err != nil {
		return nil, fmt.Errorf("update link: %w", err)
	}
	return record, nil
}

func (s *linkService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.RemoveByID(ctx, id)
}

func (s *linkService) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.filter.ClearAll()
	return nil
}

func (s *linkService) List(ctx context.Context) ([]model.LinkRecord, error) {
	return s.store.LoadAll(ctx)
}

func (s *linkService) Filtered(ctx context.Context, category string) ([]model.LinkRecord, error) {
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return records, nil
	}
	out := make([]model.LinkRecord, 0, len(records))
	for _, r := range records {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *linkService) Export(ctx context.Context) ([]model.ExportRecord, error) {
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.ExportRecord, len(records))
	for i, r := range records {
		out[i] = model.ExportRecord{
			ShortURL:    r.ShortURL,
			OriginalURL: r.OriginalURL,
			Clicks:      r.Clicks,
			CreatedAt:   r.CreatedAt,
		}
	}
	return out, nil
}

// IsExpired reports whether the record's expiry has passed at the given
// instant. Records without an expiry never expire.
func IsExpired(record model.LinkRecord, now time.Time) bool {
	return record.ExpiryDate != nil && !record.ExpiryDate.After(now)
}

func (s *linkService) existingCodes(ctx context.Context) (map[string]struct{}, error) {
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load codes: %w", err)
	}
	codes := make(map[string]struct{}, len(records))
	for _, r := range records {
		codes[r.ShortCode] = struct{}{}
	}
	return codes, nil
}

func (s *linkService) shortURL(code string) string {
	return fmt.Sprintf("%s/%s", s.opts.BaseDomain, code)
}

func (s *linkService) pause(ctx context.Context) error {
	if s.opts.CreateDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.opts.CreateDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
