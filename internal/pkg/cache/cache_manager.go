package cache

import (
	"time"

	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/models"
)

// CacheManager holds the application caches. Reference data that changes
// rarely lives here; per user state is never cached.
type CacheManager struct {
	Categories     *UnifiedCache[[]models.Category]
	Category       *UnifiedCache[models.Category]
	SuggestionType *UnifiedCache[models.SuggestionType]
	// KnownUsers remembers identities already upserted into users.
	KnownUsers *UnifiedCache[models.Identity]
}

func NewCacheManager(ttl time.Duration, logger *zap.Logger) *CacheManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheManager{
		Categories:     NewUnifiedCache[[]models.Category](ttl, "categories", logger),
		Category:       NewUnifiedCache[models.Category](ttl, "category", logger),
		SuggestionType: NewUnifiedCache[models.SuggestionType](ttl, "suggestion_type", logger),
		KnownUsers:     NewUnifiedCache[models.Identity](ttl, "known_users", logger),
	}
}

func (cm *CacheManager) GetAllMetrics() map[string]CacheMetrics {
	return map[string]CacheMetrics{
		"categories":      cm.Categories.GetMetrics(),
		"category":        cm.Category.GetMetrics(),
		"suggestion_type": cm.SuggestionType.GetMetrics(),
		"known_users":     cm.KnownUsers.GetMetrics(),
	}
}

func (cm *CacheManager) ClearAll() {
	cm.Categories.Clear()
	cm.Category.Clear()
	cm.SuggestionType.Clear()
	cm.KnownUsers.Clear()
}
