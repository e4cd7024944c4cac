package subscription

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/FelixDorner/LinkCard/app/models"
	"github.com/FelixDorner/LinkCard/internal/pkg/cache"
	"github.com/FelixDorner/LinkCard/internal/pkg/logging"
)

// CacheTTL is how long a resolved subscription is served without touching the
// store. The cache is advisory, never authoritative; Invalidate clears it
// after any action known to change subscription state.
const CacheTTL = 5 * time.Minute

// Store is the read side of the subscription record store.
type Store interface {
	GetLatestByUser(userID uint) (*models.Subscription, error)
}

// Service answers "what is the effective subscription for this user" with a
// time-boxed cache in front of the record store.
type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		ttl:   CacheTTL,
		now:   time.Now,
	}
}

func recordKey(userID uint) string {
	return fmt.Sprintf("subscription:user:%d", userID)
}

func expiryKey(userID uint) string {
	return fmt.Sprintf("subscription:user:%d:expiry", userID)
}

// Resolve returns the current subscription for a user. userID 0 means
// anonymous: that is a normal state, not an error, and yields no record.
// A user without a row gets the synthesized free/active default.
func (s *Service) Resolve(userID uint) (*models.Subscription, error) {
	if userID == 0 {
		return nil, nil
	}

	if sub := s.cached(userID); sub != nil {
		return sub, nil
	}

	sub, err := s.store.GetLatestByUser(userID)
	if err != nil {
		logging.Error(strconv.FormatUint(uint64(userID), 10), "subscription store query failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil, NewError(CodeStoreQueryFailed, "could not load subscription", err)
	}
	if sub == nil {
		// Expected state for a user who never checked out.
		sub = models.DefaultSubscription(userID)
	}

	s.put(userID, sub)
	return sub, nil
}

// cached returns the cache entry when it is present, parseable and not past
// its expiry. Every other outcome is a miss; corruption degrades rather than
// errors.
func (s *Service) cached(userID uint) *models.Subscription {
	expiryRaw, err := cache.Get(expiryKey(userID))
	if err != nil {
		return nil
	}
	expiryMillis, err := strconv.ParseInt(expiryRaw, 10, 64)
	if err != nil {
		return nil
	}
	if s.now().UnixMilli() >= expiryMillis {
		return nil
	}

	payload, err := cache.Get(recordKey(userID))
	if err != nil {
		return nil
	}
	var sub models.Subscription
	if err := json.Unmarshal([]byte(payload), &sub); err != nil {
		return nil
	}
	return &sub
}

func (s *Service) put(userID uint, sub *models.Subscription) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return
	}
	expiry := s.now().Add(s.ttl).UnixMilli()
	// Redis key TTL is only a backstop; the stored expiry value decides.
	backstop := s.ttl + time.Minute
	if err := cache.Set(recordKey(userID), string(payload), backstop); err != nil {
		return
	}
	_ = cache.Set(expiryKey(userID), strconv.FormatInt(expiry, 10), backstop)
}

// Invalidate clears the cached entry and its expiry marker.
func (s *Service) Invalidate(userID uint) {
	_ = cache.Delete(recordKey(userID))
	_ = cache.Delete(expiryKey(userID))
}
