package service

import (
	"context"
	"time"

	"github.com/evanlinks/shortlink/internal/app/model"
	"github.com/evanlinks/shortlink/internal/app/repository"
	"go.uber.org/zap"
)

const uncategorized = "uncategorized"

// DailyCount is one day of resolved-redirect volume.
type DailyCount struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}

// StatsSummary is the counting snapshot behind the stats endpoint.
type StatsSummary struct {
	TotalLinks       int              `json:"total_links"`
	TotalClicks      int64            `json:"total_clicks"`
	PopularShortURL  string           `json:"popular_short_url,omitempty"`
	PopularClicks    int64            `json:"popular_clicks"`
	LinksToday       int              `json:"links_today"`
	LinksThisWeek    int              `json:"links_this_week"`
	ClicksByCategory map[string]int64 `json:"clicks_by_category"`
	DailyClicks      []DailyCount     `json:"daily_clicks"`
}

// StatsService derives counting summaries from the record set and, when a
// counter is wired, the click-event pipeline.
type StatsService struct {
	links   LinkService
	counter repository.ClickCounter
	logger  *zap.Logger
}

// NewStatsService returns a stats service; counter may be nil, in which case
// the daily series reports zeroes.
func NewStatsService(links LinkService, counter repository.ClickCounter, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{links: links, counter: counter, logger: logger}
}

// Summary computes the full counting snapshot, optionally narrowed to one
// category.
func (s *StatsService) Summary(ctx context.Context, category string) (*StatsSummary, error) {
	records, err := s.links.Filtered(ctx, category)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	summary := summarize(records, now)
	summary.DailyClicks = s.dailySeries(ctx, now)
	return summary, nil
}

func summarize(records []model.LinkRecord, now time.Time) *StatsSummary {
	summary := &StatsSummary{
		TotalLinks:       len(records),
		ClicksByCategory: make(map[string]int64),
	}

	weekAgo := now.AddDate(0, 0, -7)
	for _, r := range records {
		summary.TotalClicks += r.Clicks

		if r.Clicks > summary.PopularClicks || summary.PopularShortURL == "" {
			summary.PopularShortURL = r.ShortURL
			summary.PopularClicks = r.Clicks
		}

		if sameDay(r.CreatedAt, now) {
			summary.LinksToday++
		}
		if !r.CreatedAt.Before(weekAgo) {
			summary.LinksThisWeek++
		}

		category := r.Category
		if category == "" {
			category = uncategorized
		}
		summary.ClicksByCategory[category] += r.Clicks
	}

	return summary
}

func (s *StatsService) dailySeries(ctx context.Context, now time.Time) []DailyCount {
	series := make([]DailyCount, 0, 7)
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		point := DailyCount{Date: day.Format("2006-01-02")}
		if s.counter != nil {
			count, err := s.counter.Count(ctx, day)
			if err != nil {
				s.logger.Warn("daily click count unavailable", zap.String("date", point.Date), zap.Error(err))
			} else {
				point.Clicks = count
			}
		}
		series = append(series, point)
	}
	return series
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
