// cache.go — LRU-кэш записей журнала выгрузок с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/openimis/tools-module/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tm_extract_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш выгрузок.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tm_extract_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша выгрузок.",
	})
)

// ExtractCache — LRU-кэш выгрузок по ExtractUUID.
// Выгрузки не изменяются после создания, поэтому инвалидация по записи не нужна.
type ExtractCache struct {
	cache *expirable.LRU[string, *model.Extract]
}

// NewExtractCache создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewExtractCache(maxSize int, ttl time.Duration) *ExtractCache {
	return &ExtractCache{
		cache: expirable.NewLRU[string, *model.Extract](maxSize, nil, ttl),
	}
}

// Get возвращает выгрузку из кэша.
// Обновляет Prometheus-метрики hit/miss.
func (c *ExtractCache) Get(extractUUID string) (*model.Extract, bool) {
	val, ok := c.cache.Get(extractUUID)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *ExtractCache) Set(e *model.Extract) {
	c.cache.Add(e.UUID, e)
}

// Len возвращает количество записей в кэше.
func (c *ExtractCache) Len() int {
	return c.cache.Len()
}
