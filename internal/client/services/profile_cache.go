package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dmitrijs2005/puffpass/internal/client/client"
	"github.com/dmitrijs2005/puffpass/internal/client/currency"
	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/dmitrijs2005/puffpass/internal/client/pricing"
	"github.com/dmitrijs2005/puffpass/internal/client/repositories/blob"
	"github.com/dmitrijs2005/puffpass/internal/common"
	"github.com/dmitrijs2005/puffpass/internal/logging"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// ProfileCacheKey is the blob key of the persisted profile.
const ProfileCacheKey = "profile_cache"

// DefaultProfileValidity is how long a fetched profile stays fresh.
const DefaultProfileValidity = time.Hour

// ProfileStatus is the lifecycle state of the cached profile.
type ProfileStatus uint8

const (
	ProfileEmpty ProfileStatus = iota
	ProfileHydrating
	ProfileFresh
	ProfileStale
)

func (s ProfileStatus) String() string {
	switch s {
	case ProfileEmpty:
		return "empty"
	case ProfileHydrating:
		return "hydrating"
	case ProfileFresh:
		return "fresh"
	case ProfileStale:
		return "stale"
	default:
		return "unknown"
	}
}

// ProfileState is a copy of the cache's published state.
type ProfileState struct {
	Status        ProfileStatus
	Profile       *models.Profile
	LastFetchedAt time.Time
	IsHydrated    bool
	IsLoading     bool
	ErrorMessage  string
}

// ProfileCacheOptions configures a ProfileCache. Zero values select
// defaults.
type ProfileCacheOptions struct {
	Validity time.Duration
	// Locale is consulted once, at construction, when the cached profile has
	// no currency.
	Locale   string
	Catalog  *pricing.Catalog
	Logger   logging.Logger
	Now      func() time.Time
	OnChange func()
}

// cacheBlob is the persisted form of the cache.
type cacheBlob struct {
	Profile       *models.Profile `json:"profile"`
	LastFetchedAt int64           `json:"last_fetched_at"`
	IsHydrated    bool            `json:"is_hydrated"`
}

// ProfileCache keeps the signed-in user's profile, persists it between runs
// and writes price and currency changes through to the users table.
type ProfileCache struct {
	users    client.Users
	identity Identity
	store    blob.Store
	catalog  *pricing.Catalog
	log      logging.Logger
	now      func() time.Time
	validity time.Duration
	onChange func()

	queue slot
	group singleflight.Group

	// persistMu orders blob writes against Clear.
	persistMu sync.Mutex

	mu        sync.RWMutex
	gen       uint64
	profile   *models.Profile
	fetchedAt time.Time
	hydrated  bool
	loading   bool
	errMsg    string
	locale    *currency.Info
	detected  *currency.Info
}

// NewProfileCache builds a cache and hydrates it from store. A missing or
// unreadable blob leaves the cache empty.
func NewProfileCache(ctx context.Context, users client.Users, identity Identity, store blob.Store, opts ProfileCacheOptions) *ProfileCache {
	c := &ProfileCache{
		users:    users,
		identity: identity,
		store:    store,
		catalog:  opts.Catalog,
		log:      opts.Logger,
		now:      opts.Now,
		validity: opts.Validity,
		onChange: opts.OnChange,
		queue:    newSlot(),
	}
	if c.catalog == nil {
		c.catalog = pricing.Default()
	}
	if c.log == nil {
		c.log = logging.Nop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.validity <= 0 {
		c.validity = DefaultProfileValidity
	}
	c.log = c.log.With("component", "profile_cache")

	c.hydrate(ctx)

	if c.profile == nil || c.profile.CurrencyCode == "" {
		if info, ok := currency.DetectFromLocale(opts.Locale); ok {
			c.locale = &info
			c.detected = &info
			c.log.Debug(ctx, "currency detected from locale", "locale", opts.Locale, "currency", info.Code)
		}
	}
	return c
}

func (c *ProfileCache) hydrate(ctx context.Context) {
	if c.store == nil {
		return
	}
	data, err := c.store.Get(ctx, ProfileCacheKey)
	if err != nil {
		c.log.Warn(ctx, "failed to read profile cache", "error", err)
		return
	}
	if len(data) == 0 {
		return
	}

	var b cacheBlob
	if err := json.Unmarshal(data, &b); err != nil || b.Profile == nil || b.Profile.ID == "" {
		c.log.Warn(ctx, "discarding corrupt profile cache", "error", err)
		c.dropBlob(ctx)
		return
	}
	if c.identity == nil {
		return
	}
	if uid, ok := c.identity.CurrentUserID(); ok && uid != b.Profile.ID {
		c.log.Info(ctx, "discarding profile cache of another user", "user_id", uid)
		c.dropBlob(ctx)
		return
	}

	c.profile = b.Profile
	c.fetchedAt = time.Unix(b.LastFetchedAt, 0)
	c.hydrated = true
}

func (c *ProfileCache) dropBlob(ctx context.Context) {
	if err := c.store.Delete(ctx, ProfileCacheKey); err != nil {
		c.log.Warn(ctx, "failed to delete profile cache", "error", err)
	}
}

// Status reports the current lifecycle state.
func (c *ProfileCache) Status() ProfileStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statusLocked()
}

func (c *ProfileCache) statusLocked() ProfileStatus {
	switch {
	case c.loading:
		return ProfileHydrating
	case c.profile == nil:
		return ProfileEmpty
	case c.freshLocked():
		return ProfileFresh
	default:
		return ProfileStale
	}
}

func (c *ProfileCache) freshLocked() bool {
	return c.profile != nil && c.hydrated && c.now().Sub(c.fetchedAt) < c.validity
}

// Snapshot returns a copy of the published state.
func (c *ProfileCache) Snapshot() ProfileState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := ProfileState{
		Status:        c.statusLocked(),
		LastFetchedAt: c.fetchedAt,
		IsHydrated:    c.hydrated,
		IsLoading:     c.loading,
		ErrorMessage:  c.errMsg,
	}
	if c.profile != nil {
		p := *c.profile
		st.Profile = &p
	}
	return st
}

// Load fetches the profile unless the cached copy is still fresh.
func (c *ProfileCache) Load(ctx context.Context) error {
	if c.Status() == ProfileFresh {
		return nil
	}
	return c.fetch(ctx, false)
}

// ForceRefresh fetches the profile regardless of freshness.
func (c *ProfileCache) ForceRefresh(ctx context.Context) error {
	return c.fetch(ctx, true)
}

func (c *ProfileCache) fetch(ctx context.Context, force bool) error {
	key := "load"
	if force {
		key = "refresh"
	}
	// The shared fetch outlives any single caller; each caller only stops
	// waiting when its own context ends.
	ch := c.group.DoChan(key, func() (any, error) {
		return c.doFetch(context.WithoutCancel(ctx), force)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		if p, _ := res.Val.(*models.Profile); p != nil {
			c.applyDetected(ctx, *p)
		}
		return nil
	case <-ctx.Done():
		return common.Classify("profile.load", ctx.Err())
	}
}

func (c *ProfileCache) doFetch(ctx context.Context, force bool) (*models.Profile, error) {
	const op = "profile.load"

	gen := c.generation()
	if err := c.queue.acquire(ctx, op); err != nil {
		return nil, c.fail(ctx, gen, op, common.ActionLoadProfile, err)
	}
	defer c.queue.release()

	c.mu.Lock()
	if !force && c.freshLocked() {
		c.mu.Unlock()
		return nil, nil
	}
	gen = c.gen
	c.mu.Unlock()

	uid, err := currentUser(c.identity, op)
	if err != nil {
		return nil, c.fail(ctx, gen, op, common.ActionLoadProfile, err)
	}

	c.setLoading(gen, true)
	start := c.now()
	p, err := c.users.GetUser(ctx, uid)
	if err != nil {
		return nil, c.fail(ctx, gen, op, common.ActionLoadProfile, common.Classify(op, err))
	}
	if !c.commit(ctx, gen, p) {
		return nil, nil
	}
	c.log.Info(ctx, "profile loaded", "op", op, "user_id", uid, "elapsed", elapsed(start, c.now))
	return &p, nil
}

// applyDetected writes the locale currency once, after the first fetch that
// shows the remote profile has none.
func (c *ProfileCache) applyDetected(ctx context.Context, p models.Profile) {
	c.mu.Lock()
	info := c.detected
	c.detected = nil
	c.mu.Unlock()

	if info == nil || p.CurrencyCode != "" {
		return
	}
	if err := c.setCurrency(ctx, *info); err != nil {
		c.log.Warn(ctx, "failed to apply detected currency", "currency", info.Code, "error", err)
		return
	}
	c.log.Info(ctx, "applied detected currency", "currency", info.Code, "country", info.CountryCode)
}

// UpdatePrice sets the per-cigarette price. The price must be positive.
func (c *ProfileCache) UpdatePrice(ctx context.Context, price decimal.Decimal) error {
	const op = "profile.update_price"
	if !price.IsPositive() {
		err := &common.Error{Op: op, Kind: common.KindValidation, Message: "price must be greater than zero"}
		return c.fail(ctx, c.generation(), op, common.ActionUpdatePrice, err)
	}
	return c.write(ctx, op, common.ActionUpdatePrice, func(models.Profile) models.ProfilePatch {
		return models.ProfilePatch{UnitPrice: &price}
	})
}

// UpdateCurrency switches the profile to the currency with the given ISO
// code. A profile without a price also receives the recommended price for
// the new currency in the same update.
func (c *ProfileCache) UpdateCurrency(ctx context.Context, code string) error {
	const op = "profile.update_currency"
	info, ok := currency.Lookup(code)
	if !ok {
		err := &common.Error{Op: op, Kind: common.KindValidation, Message: "unsupported currency: " + code}
		return c.fail(ctx, c.generation(), op, common.ActionUpdateCurrency, err)
	}
	return c.setCurrency(ctx, info)
}

func (c *ProfileCache) setCurrency(ctx context.Context, info currency.Info) error {
	return c.write(ctx, "profile.update_currency", common.ActionUpdateCurrency, func(cur models.Profile) models.ProfilePatch {
		code, country := info.Code, info.CountryCode
		patch := models.ProfilePatch{CurrencyCode: &code, CountryCode: &country}
		if !cur.HasPrice() {
			price := c.catalog.RecommendedPrice(country, code)
			patch.UnitPrice = &price
		}
		return patch
	})
}

// write runs one remote update built from the current remote profile and
// adopts the echoed row.
func (c *ProfileCache) write(ctx context.Context, op string, action common.Action, build func(models.Profile) models.ProfilePatch) error {
	gen := c.generation()
	if err := c.queue.acquire(ctx, op); err != nil {
		return c.fail(ctx, gen, op, action, err)
	}
	defer c.queue.release()
	gen = c.generation()

	uid, err := currentUser(c.identity, op)
	if err != nil {
		return c.fail(ctx, gen, op, action, err)
	}

	cur, ok := c.Profile()
	if !ok || cur.ID != uid {
		if cur, err = c.users.GetUser(ctx, uid); err != nil {
			return c.fail(ctx, gen, op, action, common.Classify(op, err))
		}
	}

	p, err := c.users.UpdateUser(ctx, uid, build(cur))
	if err != nil {
		return c.fail(ctx, gen, op, action, common.Classify(op, err))
	}
	if c.commit(ctx, gen, p) {
		c.log.Info(ctx, "profile updated", "op", op, "user_id", uid)
	}
	return nil
}

// commit publishes p unless the cache moved on since gen.
func (c *ProfileCache) commit(ctx context.Context, gen uint64, p models.Profile) bool {
	now := c.now()
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.Debug(ctx, "dropping stale profile result", "user_id", p.ID)
		return false
	}
	c.profile = &p
	c.fetchedAt = now
	c.hydrated = true
	c.loading = false
	c.errMsg = ""
	c.mu.Unlock()

	c.persist(ctx, gen, p, now)
	c.notify()
	return true
}

func (c *ProfileCache) persist(ctx context.Context, gen uint64, p models.Profile, at time.Time) {
	if c.store == nil {
		return
	}
	data, err := json.Marshal(cacheBlob{Profile: &p, LastFetchedAt: at.Unix(), IsHydrated: true})
	if err != nil {
		c.log.Warn(ctx, "failed to encode profile cache", "error", err)
		return
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if c.generation() != gen {
		return
	}
	if err := c.store.Set(ctx, ProfileCacheKey, data); err != nil {
		c.log.Warn(ctx, "failed to persist profile cache", "error", err)
	}
}

func (c *ProfileCache) fail(ctx context.Context, gen uint64, op string, action common.Action, err error) error {
	c.mu.Lock()
	if gen == c.gen {
		c.loading = false
		c.errMsg = common.UserMessage(action, err)
	}
	c.mu.Unlock()
	c.log.Warn(ctx, "profile operation failed", "op", op, "kind", common.KindOf(err).String(), "error", err)
	c.notify()
	return err
}

func (c *ProfileCache) setLoading(gen uint64, v bool) {
	c.mu.Lock()
	if gen == c.gen {
		c.loading = v
		if v {
			c.errMsg = ""
		}
	}
	c.mu.Unlock()
	c.notify()
}

func (c *ProfileCache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

func (c *ProfileCache) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Clear forgets the profile and wipes the persisted blob. Requests still in
// flight complete without effect.
func (c *ProfileCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	c.profile = nil
	c.fetchedAt = time.Time{}
	c.hydrated = false
	c.loading = false
	c.errMsg = ""
	c.detected = c.locale
	c.mu.Unlock()
	c.notify()

	if c.store == nil {
		return nil
	}
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if err := c.store.Delete(ctx, ProfileCacheKey); err != nil {
		return common.Classify("profile.clear", err)
	}
	return nil
}

// Profile returns a copy of the cached profile.
func (c *ProfileCache) Profile() (models.Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.profile == nil {
		return models.Profile{}, false
	}
	return *c.profile, true
}

func (c *ProfileCache) DisplayName() string {
	if p, ok := c.Profile(); ok && p.Username != "" {
		return p.Username
	}
	return "Unknown User"
}

func (c *ProfileCache) DisplayEmail() string {
	if p, ok := c.Profile(); ok && p.Email != "" {
		return p.Email
	}
	return "No email"
}

// DisplayJoinDate renders the join date as "Jan 2, 2006" in UTC.
func (c *ProfileCache) DisplayJoinDate() string {
	p, ok := c.Profile()
	if !ok || p.JoinedAt == nil || p.JoinedAt.IsZero() {
		return "Unknown"
	}
	return p.JoinedAt.UTC().Format("Jan 2, 2006")
}

// CurrentCurrency is the profile's currency, else the locale currency, else
// the default.
func (c *ProfileCache) CurrentCurrency() currency.Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.profile != nil && c.profile.CurrencyCode != "" {
		if info, ok := currency.Lookup(c.profile.CurrencyCode); ok {
			if c.profile.CountryCode != "" {
				info.CountryCode = c.profile.CountryCode
			}
			return info
		}
	}
	if c.locale != nil {
		return *c.locale
	}
	return currency.DefaultCurrency()
}

// DisplayPrice renders the per-cigarette price in the current currency.
func (c *ProfileCache) DisplayPrice() string {
	price := decimal.Zero
	if p, ok := c.Profile(); ok {
		price = p.UnitPrice
	}
	return currency.Format(price, c.CurrentCurrency().Code)
}

// RecommendedPrice is the catalog price for the current country and
// currency.
func (c *ProfileCache) RecommendedPrice() decimal.Decimal {
	info := c.CurrentCurrency()
	return c.catalog.RecommendedPrice(info.CountryCode, info.Code)
}

func (c *ProfileCache) PriceDescription() string {
	info := c.CurrentCurrency()
	return c.catalog.Describe(info.CountryCode, info.Code)
}
