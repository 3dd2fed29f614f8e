package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/puffpass/internal/client/client"
	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/dmitrijs2005/puffpass/internal/client/repositories/entries"
	"github.com/dmitrijs2005/puffpass/internal/common"
	"github.com/dmitrijs2005/puffpass/internal/logging"
	"github.com/google/uuid"
)

// DefaultPageSize is the number of entries fetched per page.
const DefaultPageSize = 20

// EntryState is a copy of the store's published state. Entries[0] is the
// most recent entry.
type EntryState struct {
	Entries       []models.Entry
	PageIndex     int
	HasMore       bool
	IsLoading     bool
	IsLoadingMore bool
	ErrorMessage  string
	// Stale is set while the entries come from the local snapshot.
	Stale bool
}

// EntryStoreOptions configures an EntryStore. Zero values select defaults.
type EntryStoreOptions struct {
	PageSize int
	// Snapshots keeps the first page between runs. Optional.
	Snapshots entries.Repository
	Logger    logging.Logger
	Now       func() time.Time
	NewID     func() string
	OnChange  func()
}

const (
	flagLoading = 1 << iota
	flagLoadingMore
)

// EntryStore is the paginated list of the user's entries. New entries are
// prepended once the backend has stored them.
type EntryStore struct {
	remote    client.Entries
	identity  Identity
	snapshots entries.Repository
	log       logging.Logger
	now       func() time.Time
	newID     func() string
	onChange  func()
	pageSize  int

	queue  slot
	snapMu sync.Mutex

	mu          sync.RWMutex
	gen         uint64
	entries     []models.Entry
	page        int
	hasMore     bool
	loading     bool
	loadingMore bool
	errMsg      string
	stale       bool
}

func NewEntryStore(remote client.Entries, identity Identity, opts EntryStoreOptions) *EntryStore {
	s := &EntryStore{
		remote:    remote,
		identity:  identity,
		snapshots: opts.Snapshots,
		log:       opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
		onChange:  opts.OnChange,
		pageSize:  opts.PageSize,
		queue:     newSlot(),
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	s.log = s.log.With("component", "entry_store")
	return s
}

// Snapshot returns a copy of the published state.
func (s *EntryStore) Snapshot() EntryState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Entry, len(s.entries))
	copy(out, s.entries)
	return EntryState{
		Entries:       out,
		PageIndex:     s.page,
		HasMore:       s.hasMore,
		IsLoading:     s.loading,
		IsLoadingMore: s.loadingMore,
		ErrorMessage:  s.errMsg,
		Stale:         s.stale,
	}
}

// Load replaces the list with the first page.
func (s *EntryStore) Load(ctx context.Context) error {
	const op = "entries.load"
	if err := s.queue.acquire(ctx, op); err != nil {
		return s.fail(ctx, s.generation(), op, common.ActionLoadEntries, err, 0)
	}
	defer s.queue.release()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()

	uid, err := currentUser(s.identity, op)
	if err != nil {
		return s.fail(ctx, gen, op, common.ActionLoadEntries, err, flagLoading)
	}

	start := s.now()
	rows, err := s.remote.ListEntries(ctx, uid, 0, s.pageSize)
	if err != nil {
		return s.fail(ctx, gen, op, common.ActionLoadEntries, common.Classify(op, err), flagLoading)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.log.Debug(ctx, "dropping stale page", "op", op, "rows", len(rows))
		return nil
	}
	s.entries = append(make([]models.Entry, 0, len(rows)), rows...)
	s.page = 0
	s.hasMore = len(rows) >= s.pageSize
	s.loading = false
	s.stale = false
	s.mu.Unlock()

	s.saveSnapshot(ctx, gen, uid, rows)
	s.log.Info(ctx, "entries loaded", "op", op, "user_id", uid, "rows", len(rows), "page", 0, "elapsed", elapsed(start, s.now))
	s.notify()
	return nil
}

// Refresh reloads the first page.
func (s *EntryStore) Refresh(ctx context.Context) error {
	return s.Load(ctx)
}

// LoadMore appends the next page. It does nothing while another page is
// loading or when the last page was short.
func (s *EntryStore) LoadMore(ctx context.Context) error {
	const op = "entries.load_more"

	s.mu.Lock()
	if s.loadingMore || !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	s.loadingMore = true
	s.mu.Unlock()
	s.notify()

	if err := s.queue.acquire(ctx, op); err != nil {
		return s.fail(ctx, s.generation(), op, common.ActionLoadEntries, err, flagLoadingMore)
	}
	defer s.queue.release()

	// A Load or Reset may have run while this call waited.
	s.mu.Lock()
	if !s.hasMore {
		s.loadingMore = false
		s.mu.Unlock()
		s.notify()
		return nil
	}
	s.loadingMore = true
	gen := s.gen
	next := s.page + 1
	s.mu.Unlock()

	uid, err := currentUser(s.identity, op)
	if err != nil {
		return s.fail(ctx, gen, op, common.ActionLoadEntries, err, flagLoadingMore)
	}

	start := s.now()
	rows, err := s.remote.ListEntries(ctx, uid, next*s.pageSize, s.pageSize)
	if err != nil {
		return s.fail(ctx, gen, op, common.ActionLoadEntries, common.Classify(op, err), flagLoadingMore)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.log.Debug(ctx, "dropping stale page", "op", op, "page", next, "rows", len(rows))
		return nil
	}
	// Prepended entries shift offsets, so a page may repeat known rows.
	seen := make(map[string]struct{}, len(s.entries))
	for _, e := range s.entries {
		seen[e.ID] = struct{}{}
	}
	for _, e := range rows {
		if _, dup := seen[e.ID]; !dup {
			s.entries = append(s.entries, e)
		}
	}
	s.page = next
	s.hasMore = len(rows) >= s.pageSize
	s.loadingMore = false
	s.errMsg = ""
	s.mu.Unlock()

	s.log.Info(ctx, "entries page loaded", "op", op, "user_id", uid, "rows", len(rows), "page", next, "elapsed", elapsed(start, s.now))
	s.notify()
	return nil
}

// AddEntry logs a cigarette smoked now. The entry is prepended only after
// the backend has stored it; the stored row is returned.
func (s *EntryStore) AddEntry(ctx context.Context, reason *string) (models.Entry, error) {
	const op = "entries.add"
	if err := s.queue.acquire(ctx, op); err != nil {
		return models.Entry{}, s.fail(ctx, s.generation(), op, common.ActionAddEntry, err, 0)
	}
	defer s.queue.release()
	gen := s.generation()

	uid, err := currentUser(s.identity, op)
	if err != nil {
		return models.Entry{}, s.fail(ctx, gen, op, common.ActionAddEntry, err, 0)
	}

	e := models.Entry{
		ID:       s.newID(),
		UserID:   uid,
		SmokedAt: s.now().UTC(),
		Reason:   normalizeReason(reason),
	}
	stored, err := s.remote.InsertEntry(ctx, e)
	if err != nil {
		return models.Entry{}, s.fail(ctx, gen, op, common.ActionAddEntry, common.Classify(op, err), 0)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return stored, nil
	}
	s.entries = append([]models.Entry{stored}, s.entries...)
	s.errMsg = ""
	first := s.firstPageLocked()
	s.mu.Unlock()

	s.saveSnapshot(ctx, gen, uid, first)
	s.log.Info(ctx, "entry added", "op", op, "user_id", uid, "entry_id", stored.ID)
	s.notify()
	return stored, nil
}

// DeleteEntry removes an entry remotely and then locally. An entry the
// backend no longer has is removed locally as well.
func (s *EntryStore) DeleteEntry(ctx context.Context, id string) error {
	const op = "entries.delete"
	if err := s.queue.acquire(ctx, op); err != nil {
		return s.fail(ctx, s.generation(), op, common.ActionDeleteEntry, err, 0)
	}
	defer s.queue.release()
	gen := s.generation()

	uid, err := currentUser(s.identity, op)
	if err != nil {
		return s.fail(ctx, gen, op, common.ActionDeleteEntry, err, 0)
	}

	if err := s.remote.DeleteEntry(ctx, uid, id); err != nil && !errors.Is(err, common.ErrNotFound) {
		return s.fail(ctx, gen, op, common.ActionDeleteEntry, common.Classify(op, err), 0)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return nil
	}
	kept := s.entries[:0:0]
	for _, e := range s.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	s.errMsg = ""
	first := s.firstPageLocked()
	s.mu.Unlock()

	s.saveSnapshot(ctx, gen, uid, first)
	s.log.Info(ctx, "entry deleted", "op", op, "user_id", uid, "entry_id", id)
	s.notify()
	return nil
}

// Reset forgets all entries and the local snapshot. Requests in flight
// complete without effect.
func (s *EntryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	s.entries = nil
	s.page = 0
	s.hasMore = false
	s.loading = false
	s.loadingMore = false
	s.errMsg = ""
	s.stale = false
	s.mu.Unlock()
	s.notify()

	if s.snapshots == nil {
		return nil
	}
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	if err := s.snapshots.Clear(ctx); err != nil {
		return common.Classify("entries.reset", err)
	}
	return nil
}

// Restore shows the locally saved first page until the next Load. It does
// nothing when entries are already present.
func (s *EntryStore) Restore(ctx context.Context) error {
	const op = "entries.restore"
	if s.snapshots == nil {
		return nil
	}
	if s.identity == nil {
		return nil
	}
	uid, ok := s.identity.CurrentUserID()
	if !ok {
		return nil
	}
	gen := s.generation()
	rows, err := s.snapshots.List(ctx, uid)
	if err != nil {
		return common.Classify(op, err)
	}

	s.mu.Lock()
	if gen != s.gen || len(s.entries) > 0 || s.loading {
		s.mu.Unlock()
		return nil
	}
	s.entries = rows
	s.page = 0
	s.hasMore = len(rows) >= s.pageSize
	s.stale = len(rows) > 0
	s.mu.Unlock()

	s.log.Debug(ctx, "entries restored from snapshot", "op", op, "user_id", uid, "rows", len(rows))
	s.notify()
	return nil
}

func (s *EntryStore) firstPageLocked() []models.Entry {
	n := min(len(s.entries), s.pageSize)
	out := make([]models.Entry, n)
	copy(out, s.entries[:n])
	return out
}

func (s *EntryStore) saveSnapshot(ctx context.Context, gen uint64, uid string, rows []models.Entry) {
	if s.snapshots == nil {
		return
	}
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	if s.generation() != gen {
		return
	}
	if len(rows) > s.pageSize {
		rows = rows[:s.pageSize]
	}
	if err := s.snapshots.Replace(ctx, uid, rows); err != nil {
		s.log.Warn(ctx, "failed to save entries snapshot", "user_id", uid, "error", err)
	}
}

func (s *EntryStore) fail(ctx context.Context, gen uint64, op string, action common.Action, err error, flags int) error {
	s.mu.Lock()
	if gen == s.gen {
		if flags&flagLoading != 0 {
			s.loading = false
		}
		if flags&flagLoadingMore != 0 {
			s.loadingMore = false
		}
		s.errMsg = common.UserMessage(action, err)
	}
	s.mu.Unlock()
	s.log.Warn(ctx, "entry operation failed", "op", op, "kind", common.KindOf(err).String(), "error", err)
	s.notify()
	return err
}

func (s *EntryStore) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

func (s *EntryStore) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

func normalizeReason(reason *string) *string {
	if reason == nil {
		return nil
	}
	r := strings.TrimSpace(*reason)
	if r == "" {
		return nil
	}
	return &r
}
