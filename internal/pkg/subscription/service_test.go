package subscription

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FelixDorner/LinkCard/app/models"
	"github.com/FelixDorner/LinkCard/internal/pkg/cache"
)

type fakeStore struct {
	subs    map[uint]*models.Subscription
	err     error
	queries int
}

func (f *fakeStore) GetLatestByUser(userID uint) (*models.Subscription, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	return f.subs[userID], nil
}

func setupTestCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return mr
}

func newTestService(store Store, now time.Time) (*Service, *time.Time) {
	current := now
	svc := NewService(store)
	svc.now = func() time.Time { return current }
	return svc, &current
}

func TestResolveAnonymousUser(t *testing.T) {
	setupTestCache(t)
	store := &fakeStore{subs: map[uint]*models.Subscription{}}
	svc, _ := newTestService(store, time.Now())

	sub, err := svc.Resolve(0)

	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.Zero(t, store.queries)
}

func TestResolveDefaultsToFreePlan(t *testing.T) {
	setupTestCache(t)
	store := &fakeStore{subs: map[uint]*models.Subscription{}}
	svc, _ := newTestService(store, time.Now())

	sub, err := svc.Resolve(42)

	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, uint(42), sub.UserID)
	assert.Equal(t, models.PlanFree, sub.Plan)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
}

func TestResolveServesFromCacheWithinTTL(t *testing.T) {
	setupTestCache(t)
	store := &fakeStore{subs: map[uint]*models.Subscription{
		7: {UserID: 7, Plan: models.PlanPremium, Status: models.SubscriptionStatusActive},
	}}
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, now := newTestService(store, start)

	first, err := svc.Resolve(7)
	require.NoError(t, err)
	assert.Equal(t, 1, store.queries)

	// Just under the TTL: still served from cache.
	*now = start.Add(CacheTTL - time.Millisecond)
	second, err := svc.Resolve(7)
	require.NoError(t, err)
	assert.Equal(t, 1, store.queries)
	assert.Equal(t, first.Plan, second.Plan)
}

func TestResolveExpiresAtTTLBoundary(t *testing.T) {
	setupTestCache(t)
	store := &fakeStore{subs: map[uint]*models.Subscription{
		7: {UserID: 7, Plan: models.PlanPremium, Status: models.SubscriptionStatusActive},
	}}
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, now := newTestService(store, start)

	_, err := svc.Resolve(7)
	require.NoError(t, err)
	assert.Equal(t, 1, store.queries)

	// Exactly at expiry the entry no longer counts.
	*now = start.Add(CacheTTL)
	_, err = svc.Resolve(7)
	require.NoError(t, err)
	assert.Equal(t, 2, store.queries)
}

func TestResolveCorruptCacheEntryFallsThrough(t *testing.T) {
	mr := setupTestCache(t)
	store := &fakeStore{subs: map[uint]*models.Subscription{
		7: {UserID: 7, Plan: models.PlanTeam, Status: models.SubscriptionStatusActive},
	}}
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(store, start)

	require.NoError(t, mr.Set("subscription:user:7", "not json"))
	require.NoError(t, mr.Set("subscription:user:7:expiry", "also not a number"))

	sub, err := svc.Resolve(7)

	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, models.PlanTeam, sub.Plan)
	assert.Equal(t, 1, store.queries)
}

func TestResolveStoreErrorCarriesCode(t *testing.T) {
	setupTestCache(t)
	store := &fakeStore{err: errors.New("connection refused")}
	svc, _ := newTestService(store, time.Now())

	sub, err := svc.Resolve(7)

	assert.Nil(t, sub)
	require.Error(t, err)
	assert.Equal(t, CodeStoreQueryFailed, CodeOf(err))
}

func TestInvalidateForcesStoreRead(t *testing.T) {
	setupTestCache(t)
	store := &fakeStore{subs: map[uint]*models.Subscription{
		7: {UserID: 7, Plan: models.PlanPremium, Status: models.SubscriptionStatusActive},
	}}
	svc, _ := newTestService(store, time.Now())

	_, err := svc.Resolve(7)
	require.NoError(t, err)
	assert.Equal(t, 1, store.queries)

	svc.Invalidate(7)

	_, err = svc.Resolve(7)
	require.NoError(t, err)
	assert.Equal(t, 2, store.queries)
}
