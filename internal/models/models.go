// Package models содержит доменные типы сервиса: ссылки, события доступа и сводки аналитики.
package models

import "time"

// Link представляет короткую ссылку. Ядро сервиса только читает ссылки.
type Link struct {
	ID         string     `json:"id"`
	Slug       string     `json:"slug"`
	TargetURL  string     `json:"targetUrl"`
	SecretHash *string    `json:"-"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// HasSecret сообщает, защищена ли ссылка секретом доступа
func (l *Link) HasSecret() bool {
	return l.SecretHash != nil && *l.SecretHash != ""
}

// IsExpired сообщает, истёк ли срок действия ссылки строго до момента now
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// GeoInfo содержит географические данные, дописываемые к событию асинхронно.
type GeoInfo struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

// AccessEvent представляет один переход по ссылке.
//
// Поля ID, LinkID, OccurredAt, SourceAddr, UserAgent и Referrer задаются при создании
// и больше не меняются. Geo заполняется фоновым обогащением не более одного раза
// и может остаться nil навсегда: читатели обязаны учитывать оба состояния.
type AccessEvent struct {
	ID         string
	LinkID     string
	OccurredAt time.Time
	SourceAddr string
	UserAgent  string
	Referrer   string

	Geo *GeoInfo
}

// APIKey представляет выданный ключ доступа к API
type APIKey struct {
	ID        string
	Key       string
	Name      string
	CreatedAt time.Time
}

// ClickView представляет событие доступа в ответах API
type ClickView struct {
	ID        string  `json:"id"`
	Timestamp int64   `json:"timestamp"`
	IP        *string `json:"ip"`
	UserAgent *string `json:"userAgent"`
	Referrer  *string `json:"referrer"`
	Country   *string `json:"country"`
	City      *string `json:"city"`
}

// DayCount - количество переходов за календарный день (UTC)
type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// CountryCount - количество переходов из страны
type CountryCount struct {
	Country string `json:"country"`
	Count   int64  `json:"count"`
}

// ReferrerCount - количество переходов с домена-источника
type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
}

// StatsSummary - производная сводка по событиям ссылки, пересчитывается на каждый запрос
type StatsSummary struct {
	TotalClicks     int64           `json:"totalClicks"`
	ClicksByDay     []DayCount      `json:"clicksByDay"`
	ClicksByCountry []CountryCount  `json:"clicksByCountry"`
	TopReferrers    []ReferrerCount `json:"topReferrers"`
	RecentClicks    []ClickView     `json:"recentClicks"`
}

// ClicksResponse - ответ со списком событий доступа
type ClicksResponse struct {
	Clicks []ClickView `json:"clicks"`
}

// ErrorResponse - структурированное тело ошибки
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// NewClickView преобразует событие доступа в представление для API
func NewClickView(e AccessEvent) ClickView {
	v := ClickView{
		ID:        e.ID,
		Timestamp: e.OccurredAt.UnixMilli(),
		IP:        optional(e.SourceAddr),
		UserAgent: optional(e.UserAgent),
		Referrer:  optional(e.Referrer),
	}
	if e.Geo != nil {
		v.Country = optional(e.Geo.Country)
		v.City = optional(e.Geo.City)
	}
	return v
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
