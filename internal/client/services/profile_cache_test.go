package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/dmitrijs2005/puffpass/internal/client/pricing"
	"github.com/dmitrijs2005/puffpass/internal/client/repositories/blob"
	"github.com/dmitrijs2005/puffpass/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteProfile() models.Profile {
	joined := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return models.Profile{
		ID:           userID,
		Username:     "prateek",
		Email:        "prateek@example.com",
		UnitPrice:    dec("17"),
		CurrencyCode: "INR",
		CountryCode:  "IN",
		JoinedAt:     &joined,
	}
}

func newCache(t *testing.T, users *fakeUsers, store blob.Store, clk *testClock, locale string) *ProfileCache {
	t.Helper()
	return NewProfileCache(context.Background(), users, fixedIdentity(userID), store, ProfileCacheOptions{
		Validity: time.Hour,
		Locale:   locale,
		Now:      clk.Now,
	})
}

func TestProfileCache_StartsEmpty(t *testing.T) {
	c := newCache(t, newFakeUsers(), memStore(), newClock(), "")

	st := c.Snapshot()
	assert.Equal(t, ProfileEmpty, st.Status)
	assert.Nil(t, st.Profile)
	assert.False(t, st.IsHydrated)
	assert.Equal(t, "Unknown User", c.DisplayName())
	assert.Equal(t, "No email", c.DisplayEmail())
	assert.Equal(t, "Unknown", c.DisplayJoinDate())
}

func TestProfileCache_LoadTwiceWithinWindowFetchesOnce(t *testing.T) {
	users := newFakeUsers(remoteProfile())
	clk := newClock()
	c := newCache(t, users, memStore(), clk, "")

	require.NoError(t, c.Load(context.Background()))
	clk.Advance(59 * time.Minute)
	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, 1, users.calls())
	assert.Equal(t, ProfileFresh, c.Status())
	p, ok := c.Profile()
	require.True(t, ok)
	assert.True(t, remoteProfile().Equal(p))
}

func TestProfileCache_ExpiredWindowRefetches(t *testing.T) {
	users := newFakeUsers(remoteProfile())
	clk := newClock()
	c := newCache(t, users, memStore(), clk, "")

	require.NoError(t, c.Load(context.Background()))
	clk.Advance(61 * time.Minute)
	assert.Equal(t, ProfileStale, c.Status())

	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 2, users.calls())
	assert.Equal(t, ProfileFresh, c.Status())
}

func TestProfileCache_ForceRefreshIgnoresFreshness(t *testing.T) {
	users := newFakeUsers(remoteProfile())
	c := newCache(t, users, memStore(), newClock(), "")

	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.ForceRefresh(context.Background()))
	assert.Equal(t, 2, users.calls())
}

func TestProfileCache_ConcurrentLoadsShareOneFetch(t *testing.T) {
	users := newFakeUsers(remoteProfile())
	users.getGate = make(chan struct{})
	c := newCache(t, users, memStore(), newClock(), "")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Load(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return users.calls() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, ProfileHydrating, c.Status())
	close(users.getGate)
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, 1, users.calls())
}

func TestProfileCache_CancelledCallerDoesNotFailSharedLoad(t *testing.T) {
	users := newFakeUsers(remoteProfile())
	users.getGate = make(chan struct{})
	c := newCache(t, users, memStore(), newClock(), "")

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() { errA <- c.Load(ctxA) }()
	require.Eventually(t, func() bool { return users.calls() == 1 }, time.Second, time.Millisecond)

	errB := make(chan error, 1)
	go func() { errB <- c.Load(context.Background()) }()

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	close(users.getGate)
	require.NoError(t, <-errB)
	assert.Equal(t, 1, users.calls())
	st := c.Snapshot()
	assert.Equal(t, ProfileFresh, st.Status)
	assert.Empty(t, st.ErrorMessage)
	assert.False(t, st.IsLoading)
}

func TestProfileCache_LoadFailureKeepsProfile(t *testing.T) {
	users := newFakeUsers(remoteProfile())
	clk := newClock()
	c := newCache(t, users, memStore(), clk, "")
	require.NoError(t, c.Load(context.Background()))

	clk.Advance(2 * time.Hour)
	users.getErr = context.DeadlineExceeded
	err := c.Load(context.Background())

	require.ErrorIs(t, err, common.ErrTransportTimeout)
	st := c.Snapshot()
	assert.Equal(t, ProfileStale, st.Status)
	require.NotNil(t, st.Profile)
	assert.Equal(t, "prateek", st.Profile.Username)
	assert.Equal(t, "Request timed out. Please try again.", st.ErrorMessage)
	assert.False(t, st.IsLoading)
}

func TestProfileCache_NoIdentity(t *testing.T) {
	users := newFakeUsers(remoteProfile())
	c := NewProfileCache(context.Background(), users, fixedIdentity(""), memStore(), ProfileCacheOptions{})

	err := c.Load(context.Background())
	require.ErrorIs(t, err, common.ErrUserNotFound)
	assert.Zero(t, users.calls())
	assert.Equal(t, ProfileEmpty, c.Status())
	assert.Equal(t, "Please log in to view your profile.", c.Snapshot().ErrorMessage)
}

func TestProfileCache_HydrateWithoutIdentity(t *testing.T) {
	users := newFakeUsers(remoteProfile())
	store := memStore()
	require.NoError(t, newCache(t, users, store, newClock(), "").Load(context.Background()))

	var c *ProfileCache
	require.NotPanics(t, func() {
		c = NewProfileCache(context.Background(), users, nil, store, ProfileCacheOptions{})
	})
	_, ok := c.Profile()
	assert.False(t, ok)

	err := c.Load(context.Background())
	require.ErrorIs(t, err, common.ErrUserNotFound)
	assert.Equal(t, 1, users.calls())
}

func TestProfileCache_PersistsAndHydrates(t *testing.T) {
	users := newFakeUsers(remoteProfile())
	store := memStore()
	clk := newClock()
	c := newCache(t, users, store, clk, "")
	require.NoError(t, c.Load(context.Background()))

	raw, err := store.Get(context.Background(), ProfileCacheKey)
	require.NoError(t, err)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Contains(t, fields, "profile")
	assert.JSONEq(t, "true", string(fields["is_hydrated"]))
	assert.JSONEq(t, "1750239000", string(fields["last_fetched_at"]))

	clk.Advance(10 * time.Minute)
	restored := newCache(t, users, store, clk, "")
	st := restored.Snapshot()
	assert.Equal(t, ProfileFresh, st.Status)
	assert.True(t, st.IsHydrated)
	require.NotNil(t, st.Profile)
	assert.True(t, remoteProfile().Equal(*st.Profile))

	require.NoError(t, restored.Load(context.Background()))
	assert.Equal(t, 1, users.calls(), "hydrated fresh profile must not be refetched")
}

func TestProfileCache_CorruptBlobIsDiscarded(t *testing.T) {
	store := memStore()
	require.NoError(t, store.Set(context.Background(), ProfileCacheKey, []byte("{not json")))

	c := newCache(t, newFakeUsers(), store, newClock(), "")
	assert.Equal(t, ProfileEmpty, c.Status())

	raw, err := store.Get(context.Background(), ProfileCacheKey)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestProfileCache_BlobOfAnotherUserIsDiscarded(t *testing.T) {
	store := memStore()
	other := remoteProfile()
	other.ID = otherID
	data, err := json.Marshal(cacheBlob{Profile: &other, LastFetchedAt: newClock().Now().Unix(), IsHydrated: true})
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), ProfileCacheKey, data))

	c := newCache(t, newFakeUsers(), store, newClock(), "")
	assert.Equal(t, ProfileEmpty, c.Status())
}

func TestProfileCache_UpdatePrice(t *testing.T) {
	t.Run("rejects non-positive price", func(t *testing.T) {
		users := newFakeUsers(remoteProfile())
		c := newCache(t, users, memStore(), newClock(), "")

		for _, p := range []string{"0", "-1.5"} {
			err := c.UpdatePrice(context.Background(), dec(p))
			require.ErrorIs(t, err, common.ErrValidation)
		}
		assert.Empty(t, users.recordedPatches())
		assert.Equal(t, "price must be greater than zero", c.Snapshot().ErrorMessage)
	})

	t.Run("writes through and adopts echoed row", func(t *testing.T) {
		users := newFakeUsers(remoteProfile())
		store := memStore()
		c := newCache(t, users, store, newClock(), "")
		require.NoError(t, c.Load(context.Background()))

		require.NoError(t, c.UpdatePrice(context.Background(), dec("20")))

		patches := users.recordedPatches()
		require.Len(t, patches, 1)
		require.NotNil(t, patches[0].UnitPrice)
		assert.True(t, dec("20").Equal(*patches[0].UnitPrice))
		assert.Nil(t, patches[0].CurrencyCode)

		p, _ := c.Profile()
		assert.True(t, dec("20").Equal(p.UnitPrice))

		restored := newCache(t, users, store, newClock(), "")
		rp, ok := restored.Profile()
		require.True(t, ok)
		assert.True(t, dec("20").Equal(rp.UnitPrice))
	})

	t.Run("failure leaves profile unchanged", func(t *testing.T) {
		users := newFakeUsers(remoteProfile())
		c := newCache(t, users, memStore(), newClock(), "")
		require.NoError(t, c.Load(context.Background()))

		users.updateErr = &common.Error{Kind: common.KindRemoteRejected, Message: "new row violates check constraint"}
		err := c.UpdatePrice(context.Background(), dec("25"))

		require.ErrorIs(t, err, common.ErrRemoteRejected)
		p, _ := c.Profile()
		assert.True(t, dec("17").Equal(p.UnitPrice))
		assert.Equal(t, "Failed to update price: new row violates check constraint", c.Snapshot().ErrorMessage)
	})
}

func TestProfileCache_UpdateCurrency(t *testing.T) {
	t.Run("zero price gets recommended price in the same update", func(t *testing.T) {
		p := remoteProfile()
		p.UnitPrice = decimal.Zero
		p.CurrencyCode, p.CountryCode = "", ""
		users := newFakeUsers(p)
		c := newCache(t, users, memStore(), newClock(), "")
		require.NoError(t, c.Load(context.Background()))

		require.NoError(t, c.UpdateCurrency(context.Background(), "inr"))

		patches := users.recordedPatches()
		require.Len(t, patches, 1)
		assert.Equal(t, "INR", *patches[0].CurrencyCode)
		assert.Equal(t, "IN", *patches[0].CountryCode)
		require.NotNil(t, patches[0].UnitPrice)
		assert.True(t, pricing.Default().RecommendedPrice("IN", "INR").Equal(*patches[0].UnitPrice))

		got, _ := c.Profile()
		assert.Equal(t, "INR", got.CurrencyCode)
		assert.True(t, dec("17").Equal(got.UnitPrice))
	})

	t.Run("existing price is kept", func(t *testing.T) {
		users := newFakeUsers(remoteProfile())
		c := newCache(t, users, memStore(), newClock(), "")
		require.NoError(t, c.Load(context.Background()))

		require.NoError(t, c.UpdateCurrency(context.Background(), "GBP"))

		patches := users.recordedPatches()
		require.Len(t, patches, 1)
		assert.Nil(t, patches[0].UnitPrice)
		got, _ := c.Profile()
		assert.Equal(t, "GBP", got.CurrencyCode)
		assert.True(t, dec("17").Equal(got.UnitPrice))
	})

	t.Run("price is checked against the remote row when nothing is cached", func(t *testing.T) {
		users := newFakeUsers(remoteProfile())
		c := newCache(t, users, memStore(), newClock(), "")

		require.NoError(t, c.UpdateCurrency(context.Background(), "USD"))

		patches := users.recordedPatches()
		require.Len(t, patches, 1)
		assert.Nil(t, patches[0].UnitPrice)
	})

	t.Run("unknown code", func(t *testing.T) {
		users := newFakeUsers(remoteProfile())
		c := newCache(t, users, memStore(), newClock(), "")

		err := c.UpdateCurrency(context.Background(), "ZZZ")
		require.ErrorIs(t, err, common.ErrValidation)
		assert.Empty(t, users.recordedPatches())
	})
}

func TestProfileCache_DetectedCurrencyAppliedOnce(t *testing.T) {
	p := remoteProfile()
	p.UnitPrice = decimal.Zero
	p.CurrencyCode, p.CountryCode = "", ""
	users := newFakeUsers(p)
	clk := newClock()
	c := newCache(t, users, memStore(), clk, "en_IN.UTF-8")

	assert.Equal(t, "INR", c.CurrentCurrency().Code)
	require.NoError(t, c.Load(context.Background()))

	patches := users.recordedPatches()
	require.Len(t, patches, 1)
	assert.Equal(t, "INR", *patches[0].CurrencyCode)
	assert.Equal(t, "IN", *patches[0].CountryCode)
	assert.True(t, dec("17").Equal(*patches[0].UnitPrice))

	require.NoError(t, c.ForceRefresh(context.Background()))
	assert.Len(t, users.recordedPatches(), 1)
}

func TestProfileCache_DetectedCurrencyNeverOverridesChoice(t *testing.T) {
	p := remoteProfile()
	p.CurrencyCode, p.CountryCode = "EUR", "DE"
	users := newFakeUsers(p)
	c := newCache(t, users, memStore(), newClock(), "en_IN.UTF-8")

	require.NoError(t, c.Load(context.Background()))
	assert.Empty(t, users.recordedPatches())
	assert.Equal(t, "EUR", c.CurrentCurrency().Code)
}

func TestProfileCache_ClearDropsInFlightLoad(t *testing.T) {
	users := newFakeUsers(remoteProfile())
	users.getGate = make(chan struct{})
	store := memStore()
	c := newCache(t, users, store, newClock(), "")

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background()) }()
	require.Eventually(t, func() bool { return users.calls() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, c.Clear(context.Background()))
	close(users.getGate)
	require.NoError(t, <-done)

	assert.Equal(t, ProfileEmpty, c.Status())
	raw, err := store.Get(context.Background(), ProfileCacheKey)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestProfileCache_ClearWipesBlob(t *testing.T) {
	users := newFakeUsers(remoteProfile())
	store := memStore()
	c := newCache(t, users, store, newClock(), "")
	require.NoError(t, c.Load(context.Background()))

	require.NoError(t, c.Clear(context.Background()))

	assert.Equal(t, ProfileEmpty, c.Status())
	raw, err := store.Get(context.Background(), ProfileCacheKey)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestProfileCache_Accessors(t *testing.T) {
	users := newFakeUsers(remoteProfile())
	c := newCache(t, users, memStore(), newClock(), "")
	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, "prateek", c.DisplayName())
	assert.Equal(t, "prateek@example.com", c.DisplayEmail())
	assert.Equal(t, "Jun 1, 2025", c.DisplayJoinDate())
	assert.Equal(t, "₹17.00", c.DisplayPrice())
	assert.Equal(t, "INR", c.CurrentCurrency().Code)
	assert.True(t, dec("17").Equal(c.RecommendedPrice()))
	assert.Equal(t, pricing.Default().Describe("IN", "INR"), c.PriceDescription())
}

func TestProfileCache_OnChangeCalled(t *testing.T) {
	users := newFakeUsers(remoteProfile())
	var mu sync.Mutex
	calls := 0
	c := NewProfileCache(context.Background(), users, fixedIdentity(userID), memStore(), ProfileCacheOptions{
		OnChange: func() { mu.Lock(); calls++; mu.Unlock() },
	})

	require.NoError(t, c.Load(context.Background()))
	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, calls, 2)
}

func TestProfileStatus_String(t *testing.T) {
	assert.Equal(t, "stale", ProfileStale.String())
	assert.Equal(t, "unknown", ProfileStatus(9).String())
}
