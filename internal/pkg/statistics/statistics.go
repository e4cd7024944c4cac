package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/FelixDorner/LinkCard/app/models"
	"github.com/FelixDorner/LinkCard/internal/pkg/cache"
	"github.com/FelixDorner/LinkCard/internal/pkg/database"
)

const (
	CacheKeyCardsTotal = "statistics:cards:total"
	CacheKeyViewsDaily = "statistics:views:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyUsers      = "statistics:users:total"
	CacheExpiration    = 30 * time.Minute
)

// StatisticsData holds the public counters shown on the landing page
type StatisticsData struct {
	TodayViews int
	TotalUsers int
	TotalCards int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache checks whether the cached counters are stale
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	if time.Since(lastCacheUpdate) > cacheUpdateInterval {
		lastCacheUpdate = time.Now()
		return true
	}
	return false
}

// GetStatistics returns the current counters, preferring the cache and
// recomputing from the database when the cache is stale or empty.
func GetStatistics() StatisticsData {
	data := StatisticsData{}

	if !ShouldUpdateCache() {
		if cached, ok := readCachedStatistics(); ok {
			return cached
		}
	}

	db := database.GetDB()
	today := time.Now().Format("2006-01-02")

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("statistics: counting users failed: %v", err)
	}
	data.TotalUsers = int(totalUsers)

	var totalCards int64
	if err := db.Model(&models.Card{}).Where("published = ?", true).Count(&totalCards).Error; err != nil {
		log.Printf("statistics: counting cards failed: %v", err)
	}
	data.TotalCards = int(totalCards)

	var todayViews int64
	if err := db.Model(&models.CardView{}).Where("day = ?", today).
		Select("COALESCE(SUM(views), 0)").Scan(&todayViews).Error; err != nil {
		log.Printf("statistics: summing today's views failed: %v", err)
	}
	data.TodayViews = int(todayViews)

	writeCachedStatistics(data, today)
	return data
}

func readCachedStatistics() (StatisticsData, bool) {
	today := time.Now().Format("2006-01-02")

	usersStr, errUsers := cache.Get(CacheKeyUsers)
	cardsStr, errCards := cache.Get(CacheKeyCardsTotal)
	viewsStr, errViews := cache.Get(fmt.Sprintf(CacheKeyViewsDaily, today))
	if errUsers != nil || errCards != nil || errViews != nil {
		return StatisticsData{}, false
	}

	users, err1 := strconv.Atoi(usersStr)
	cards, err2 := strconv.Atoi(cardsStr)
	views, err3 := strconv.Atoi(viewsStr)
	if err1 != nil || err2 != nil || err3 != nil {
		return StatisticsData{}, false
	}

	return StatisticsData{TodayViews: views, TotalUsers: users, TotalCards: cards}, true
}

func writeCachedStatistics(data StatisticsData, today string) {
	if err := cache.Set(CacheKeyUsers, strconv.Itoa(data.TotalUsers), CacheExpiration); err != nil {
		log.Printf("statistics: caching user count failed: %v", err)
	}
	if err := cache.Set(CacheKeyCardsTotal, strconv.Itoa(data.TotalCards), CacheExpiration); err != nil {
		log.Printf("statistics: caching card count failed: %v", err)
	}
	if err := cache.Set(fmt.Sprintf(CacheKeyViewsDaily, today), strconv.Itoa(data.TodayViews), CacheExpiration); err != nil {
		log.Printf("statistics: caching view count failed: %v", err)
	}
}
