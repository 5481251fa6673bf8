// Package stats строит аналитические сводки по событиям доступа ссылки.
//
// Сводка пересчитывается на каждый запрос и нигде не хранится. Время в пакете
// не читается: все даты берутся из самих событий.
package stats

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/tempizhere/linkpulse/internal/models"
	"github.com/tempizhere/linkpulse/internal/repository"
)

const (
	// DefaultTopReferrers - сколько доменов-источников попадает в сводку
	DefaultTopReferrers = 5
	// DefaultRecentClicks - сколько последних переходов попадает в сводку
	DefaultRecentClicks = 10
	// DirectReferrer - корзина для переходов без источника
	DirectReferrer = "direct"

	dayLayout = "2006-01-02"
)

// ErrNotFound возвращается для неизвестной ссылки
var ErrNotFound = errors.New("link not found")

// Aggregator считает сводки по данным хранилища
type Aggregator struct {
	repo         repository.Repository
	topReferrers int
	recentClicks int
}

// NewAggregator создаёт новый экземпляр Aggregator. Неположительные лимиты заменяются значениями по умолчанию.
func NewAggregator(repo repository.Repository, topReferrers, recentClicks int) *Aggregator {
	if topReferrers <= 0 {
		topReferrers = DefaultTopReferrers
	}
	if recentClicks <= 0 {
		recentClicks = DefaultRecentClicks
	}
	return &Aggregator{
		repo:         repo,
		topReferrers: topReferrers,
		recentClicks: recentClicks,
	}
}

// Summarize возвращает сводку по ссылке linkID
func (a *Aggregator) Summarize(ctx context.Context, linkID string) (*models.StatsSummary, error) {
	events, err := a.events(ctx, linkID)
	if err != nil {
		return nil, err
	}
	summary := Summarize(events, a.topReferrers, a.recentClicks)
	return &summary, nil
}

// Clicks возвращает все события ссылки, новые первыми
func (a *Aggregator) Clicks(ctx context.Context, linkID string) ([]models.ClickView, error) {
	events, err := a.events(ctx, linkID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(events)
	views := make([]models.ClickView, 0, len(events))
	for _, e := range events {
		views = append(views, models.NewClickView(e))
	}
	return views, nil
}

func (a *Aggregator) events(ctx context.Context, linkID string) ([]models.AccessEvent, error) {
	if _, err := a.repo.FindLinkByID(ctx, linkID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find link: %w", err)
	}
	events, err := a.repo.ListAccessEventsForLink(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("list access events: %w", err)
	}
	return events, nil
}

// Summarize строит сводку по готовому набору событий. Входной срез не изменяется.
func Summarize(events []models.AccessEvent, topReferrers, recentClicks int) models.StatsSummary {
	days := make(map[string]int64)
	countries := make(map[string]int64)
	referrers := make(map[string]int64)

	for _, e := range events {
		days[e.OccurredAt.UTC().Format(dayLayout)]++
		// События без страны в разбивку по странам не попадают
		if e.Geo != nil && e.Geo.Country != "" {
			countries[e.Geo.Country]++
		}
		referrers[BucketReferrer(e.Referrer)]++
	}

	summary := models.StatsSummary{
		TotalClicks:     int64(len(events)),
		ClicksByDay:     make([]models.DayCount, 0, len(days)),
		ClicksByCountry: make([]models.CountryCount, 0, len(countries)),
		TopReferrers:    make([]models.ReferrerCount, 0, len(referrers)),
		RecentClicks:    make([]models.ClickView, 0, recentClicks),
	}

	for date, count := range days {
		summary.ClicksByDay = append(summary.ClicksByDay, models.DayCount{Date: date, Count: count})
	}
	sort.Slice(summary.ClicksByDay, func(i, j int) bool {
		return summary.ClicksByDay[i].Date < summary.ClicksByDay[j].Date
	})

	for country, count := range countries {
		summary.ClicksByCountry = append(summary.ClicksByCountry, models.CountryCount{Country: country, Count: count})
	}
	sort.Slice(summary.ClicksByCountry, func(i, j int) bool {
		a, b := summary.ClicksByCountry[i], summary.ClicksByCountry[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Country < b.Country
	})

	for referrer, count := range referrers {
		summary.TopReferrers = append(summary.TopReferrers, models.ReferrerCount{Referrer: referrer, Count: count})
	}
	sort.Slice(summary.TopReferrers, func(i, j int) bool {
		a, b := summary.TopReferrers[i], summary.TopReferrers[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Referrer < b.Referrer
	})
	if len(summary.TopReferrers) > topReferrers {
		summary.TopReferrers = summary.TopReferrers[:topReferrers]
	}

	recent := make([]models.AccessEvent, len(events))
	copy(recent, events)
	sortNewestFirst(recent)
	if len(recent) > recentClicks {
		recent = recent[:recentClicks]
	}
	for _, e := range recent {
		summary.RecentClicks = append(summary.RecentClicks, models.NewClickView(e))
	}

	return summary
}

// BucketReferrer сводит значение заголовка Referer к домену источника.
// Пустое, неразбираемое значение или значение без хоста попадает в DirectReferrer.
func BucketReferrer(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DirectReferrer
	}
	u, err := url.Parse(raw)
	if err != nil {
		return DirectReferrer
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return DirectReferrer
	}
	return host
}

func sortNewestFirst(events []models.AccessEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].ID > events[j].ID
		}
		return events[i].OccurredAt.After(events[j].OccurredAt)
	})
}
