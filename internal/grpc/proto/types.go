// Package proto содержит определения типов для gRPC сервиса аналитики
package proto

import "github.com/tempizhere/linkpulse/internal/models"

// GetStatsRequest представляет запрос сводки по ссылке
type GetStatsRequest struct {
	LinkID string `json:"link_id"`
}

// GetStatsResponse представляет сводку по ссылке
type GetStatsResponse struct {
	Stats models.StatsSummary `json:"stats"`
}

// ListClicksRequest представляет запрос переходов по ссылке
type ListClicksRequest struct {
	LinkID string `json:"link_id"`
}

// ListClicksResponse представляет переходы по ссылке, новые первыми
type ListClicksResponse struct {
	Clicks []models.ClickView `json:"clicks"`
}

// PingRequest представляет запрос проверки состояния
type PingRequest struct{}

// PingResponse представляет ответ проверки состояния
type PingResponse struct {
	DatabaseAvailable bool `json:"database_available"`
}
