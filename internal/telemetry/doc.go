// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает structured logging через slog (logging.go). Prometheus
// метрики живут отдельно, в internal/metrics — они не зависят от
// контекста запроса, в отличие от логгера.
//
// Все сервисы используют единый формат логирования
// и экспортируют метрики на /metrics endpoint.
package telemetry
