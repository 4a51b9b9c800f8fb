package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"geogate/internal/filter"
	"geogate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCenterLat = 37.7749
	testCenterLng = -122.4194
)

func activeLink() model.Link {
	return model.Link{
		ShortCode:    "abc123",
		Title:        "Campus door",
		TargetURL:    "https://example.com/menu",
		CenterLat:    testCenterLat,
		CenterLng:    testCenterLng,
		RadiusMeters: 100,
		Contact:      "door-admin",
		CreatedBy:    1,
		IsActive:     true,
	}
}

func testMeta() RequestMeta {
	return RequestMeta{UserAgent: "test-agent", IPAddress: "203.0.113.7"}
}

func TestVerifyAllowedInsideRadius(t *testing.T) {
	store := newMemStore()
	link := store.add(activeLink())
	svc := NewLinkService(store, nil, nil)

	result, err := svc.Verify(context.Background(), "abc123", 37.7750, -122.4194, testMeta())
	require.NoError(t, err)

	assert.True(t, result.Allowed)
	assert.Equal(t, "https://example.com/menu", result.TargetURL)
	assert.Empty(t, result.Message)
	assert.Empty(t, result.Contact)
	assert.InDelta(t, 11.1, result.DistanceMeters, 0.2)
	assert.Equal(t, 100.0, result.RadiusMeters)

	got, _ := store.GetByID(context.Background(), link.ID)
	assert.Equal(t, int64(1), got.VisitCount)
	assert.Equal(t, int64(1), got.SuccessCount)
	assert.Equal(t, int64(0), got.DeniedCount)
	assert.Equal(t, 1, store.logCount(link.ID))
}

func TestVerifyDeniedOutsideRadius(t *testing.T) {
	store := newMemStore()
	link := store.add(activeLink())
	svc := NewLinkService(store, nil, nil)

	result, err := svc.Verify(context.Background(), "abc123", 37.7760, -122.4194, testMeta())
	require.NoError(t, err)

	assert.False(t, result.Allowed)
	assert.Empty(t, result.TargetURL)
	assert.Equal(t, DeniedMessage, result.Message)
	assert.Equal(t, "door-admin", result.Contact)
	assert.InDelta(t, 122, result.DistanceMeters, 2)

	got, _ := store.GetByID(context.Background(), link.ID)
	assert.Equal(t, int64(1), got.VisitCount)
	assert.Equal(t, int64(0), got.SuccessCount)
	assert.Equal(t, int64(1), got.DeniedCount)
}

func TestVerifyDeniedRecordsMetadata(t *testing.T) {
	store := newMemStore()
	link := store.add(activeLink())
	svc := NewLinkService(store, nil, nil)

	_, err := svc.Verify(context.Background(), "abc123", 37.7760, -122.4194, testMeta())
	require.NoError(t, err)

	logs, _, err := store.ListAccessLogs(context.Background(), link.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	entry := logs[0]
	assert.False(t, entry.AccessGranted)
	assert.Equal(t, "test-agent", entry.UserAgent)
	assert.Equal(t, "203.0.113.7", entry.IPAddress)
	require.NotNil(t, entry.DistanceMeters)
	// Stored distance is the rounded value
	assert.Equal(t, *entry.DistanceMeters, float64(int64(*entry.DistanceMeters*100+0.5))/100)
	require.NotNil(t, entry.VisitorLat)
	assert.Equal(t, 37.7760, *entry.VisitorLat)
}

func TestVerifyInvalidCoordinate(t *testing.T) {
	store := newMemStore()
	link := store.add(activeLink())
	svc := NewLinkService(store, nil, nil)

	for _, c := range [][2]float64{{91, 0}, {-91, 0}, {0, 181}, {0, -181}} {
		_, err := svc.Verify(context.Background(), "abc123", c[0], c[1], testMeta())
		assert.ErrorIs(t, err, ErrInvalidCoordinate)
	}

	got, _ := store.GetByID(context.Background(), link.ID)
	assert.Equal(t, int64(0), got.VisitCount)
	assert.Equal(t, 0, store.logCount(link.ID))
}

func TestVerifyUnknownAndDeletedLookAlike(t *testing.T) {
	store := newMemStore()
	deleted := activeLink()
	deleted.ShortCode = "gone"
	deleted.IsDeleted = true
	link := store.add(deleted)
	svc := NewLinkService(store, nil, nil)

	_, errUnknown := svc.Verify(context.Background(), "nosuch", 37.7750, -122.4194, testMeta())
	_, errDeleted := svc.Verify(context.Background(), "gone", 37.7750, -122.4194, testMeta())

	assert.ErrorIs(t, errUnknown, ErrNotFound)
	assert.ErrorIs(t, errDeleted, ErrNotFound)
	assert.Equal(t, errUnknown, errDeleted)

	got, _ := store.GetByID(context.Background(), link.ID)
	assert.Equal(t, int64(0), got.VisitCount)
	assert.Equal(t, 0, store.logCount(link.ID))
}

func TestVerifyExpiredNoSideEffects(t *testing.T) {
	store := newMemStore()
	expired := activeLink()
	past := time.Now().Add(-time.Hour)
	expired.ExpireAt = &past
	link := store.add(expired)
	svc := NewLinkService(store, nil, nil)

	_, err := svc.Verify(context.Background(), "abc123", 37.7750, -122.4194, testMeta())
	assert.ErrorIs(t, err, ErrLinkExpired)

	got, _ := store.GetByID(context.Background(), link.ID)
	assert.Equal(t, int64(0), got.VisitCount)
	assert.Equal(t, 0, store.logCount(link.ID))
}

func TestVerifyCapReachedEvenWhileActive(t *testing.T) {
	store := newMemStore()
	capped := activeLink()
	capped.MaxVisits = 5
	capped.VisitCount = 5
	capped.SuccessCount = 5
	store.add(capped)
	svc := NewLinkService(store, nil, nil)

	_, err := svc.Verify(context.Background(), "abc123", 37.7750, -122.4194, testMeta())
	assert.ErrorIs(t, err, ErrVisitCapReached)
}

func TestVerifyDisabledAndBanned(t *testing.T) {
	store := newMemStore()
	disabled := activeLink()
	disabled.ShortCode = "off"
	disabled.IsActive = false
	store.add(disabled)

	banned := activeLink()
	banned.ShortCode = "ban"
	banned.IsBanned = true
	store.add(banned)

	svc := NewLinkService(store, nil, nil)

	_, err := svc.Verify(context.Background(), "off", 37.7750, -122.4194, testMeta())
	assert.ErrorIs(t, err, ErrLinkDisabled)

	_, err = svc.Verify(context.Background(), "ban", 37.7750, -122.4194, testMeta())
	assert.ErrorIs(t, err, ErrLinkBanned)
}

func TestVerifyPersistenceFailureWithholdsVerdict(t *testing.T) {
	store := newMemStore()
	link := store.add(activeLink())
	store.recordErr = assert.AnError
	svc := NewLinkService(store, nil, nil)

	result, err := svc.Verify(context.Background(), "abc123", 37.7750, -122.4194, testMeta())
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.NotErrorIs(t, err, ErrNotFound)

	got, _ := store.GetByID(context.Background(), link.ID)
	assert.Equal(t, int64(0), got.VisitCount)
}

func TestVerifyConcurrentNoLostUpdates(t *testing.T) {
	store := newMemStore()
	link := store.add(activeLink())
	svc := NewLinkService(store, nil, nil)

	const n = 64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			// Alternate inside and outside the radius
			lat := 37.7750
			if i%2 == 0 {
				lat = 37.7760
			}
			_, err := svc.Verify(context.Background(), "abc123", lat, -122.4194, testMeta())
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, _ := store.GetByID(context.Background(), link.ID)
	assert.Equal(t, int64(n), got.VisitCount)
	assert.Equal(t, got.VisitCount, got.SuccessCount+got.DeniedCount)
	assert.Equal(t, n, store.logCount(link.ID))
}

func TestVerifyBloomFastPath(t *testing.T) {
	store := newMemStore()
	store.add(activeLink())
	bloom := filter.NewBloomFilter(1000, 0.01)
	bloom.Add("abc123")
	svc := NewLinkService(store, nil, bloom)

	// Known code passes through the filter to the decision
	result, err := svc.Verify(context.Background(), "abc123", 37.7750, -122.4194, testMeta())
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	// A code the filter has never seen is rejected without a store hit
	_, err = svc.Verify(context.Background(), "neverseen", 37.7750, -122.4194, testMeta())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublicInfoNoSideEffects(t *testing.T) {
	store := newMemStore()
	link := store.add(activeLink())
	svc := NewLinkService(store, nil, nil)

	info, err := svc.PublicInfo(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", info.ShortCode)
	assert.Equal(t, "Campus door", info.Title)
	assert.True(t, info.IsActive)

	got, _ := store.GetByID(context.Background(), link.ID)
	assert.Equal(t, int64(0), got.VisitCount)
	assert.Equal(t, 0, store.logCount(link.ID))
}

func TestPublicInfoDeletedIsNotFound(t *testing.T) {
	store := newMemStore()
	deleted := activeLink()
	deleted.IsDeleted = true
	store.add(deleted)
	svc := NewLinkService(store, nil, nil)

	_, err := svc.PublicInfo(context.Background(), "abc123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublicInfoCacheRoundTrip(t *testing.T) {
	store := newMemStore()
	store.add(activeLink())
	cache := &mapCache{data: make(map[string]string)}
	svc := NewLinkService(store, cache, nil)

	first, err := svc.PublicInfo(context.Background(), "abc123")
	require.NoError(t, err)
	assert.NotEmpty(t, cache.data["abc123"])

	// Second read is served from the cache and matches
	second, err := svc.PublicInfo(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// mapCache is a trivial PublicInfoCache for tests
type mapCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (c *mapCache) Get(ctx context.Context, shortCode string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[shortCode], nil
}

func (c *mapCache) Set(ctx context.Context, shortCode, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[shortCode] = payload
	return nil
}

func (c *mapCache) Delete(ctx context.Context, shortCode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, shortCode)
	return nil
}
