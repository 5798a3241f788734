package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kashyap0729/good-will-hunting/internal/database"
	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// DefaultLockWait bounds how long a unit of work waits for a record lock
// before giving up with database.ErrConflict.
const DefaultLockWait = 2 * time.Second

// MemoryDonationRepository is an in-process DonationStore. Units of work
// take a per-user or per-location lock on first load and hold it until
// they finish, so work on different donors and locations runs in parallel.
// Writes are staged and applied together on commit.
type MemoryDonationRepository struct {
	mu        sync.RWMutex
	users     map[string]*model.User
	locations map[string]*model.StorageLocation
	catalog   map[string]*model.ItemCatalogEntry
	requests  map[string]*model.MissingItemRequest
	donations []*model.Donation
	byLoc     map[string][]int
	byUser    map[string][]int

	locksMu  sync.Mutex
	locks    map[string]*keyLock
	lockWait time.Duration
}

// NewMemoryDonationRepository creates an empty in-memory store
func NewMemoryDonationRepository() *MemoryDonationRepository {
	return &MemoryDonationRepository{
		users:     make(map[string]*model.User),
		locations: make(map[string]*model.StorageLocation),
		catalog:   make(map[string]*model.ItemCatalogEntry),
		requests:  make(map[string]*model.MissingItemRequest),
		byLoc:     make(map[string][]int),
		byUser:    make(map[string][]int),
		locks:     make(map[string]*keyLock),
		lockWait:  DefaultLockWait,
	}
}

// SetLockWait overrides DefaultLockWait
func (r *MemoryDonationRepository) SetLockWait(d time.Duration) {
	r.lockWait = d
}

// WithinTx implements DonationStore
func (r *MemoryDonationRepository) WithinTx(ctx context.Context, fn func(tx DonationTx) error) error {
	tx := &memoryTx{
		repo:      r,
		ctx:       ctx,
		held:      make(map[string]*keyLock),
		users:     make(map[string]*model.User),
		locations: make(map[string]*model.StorageLocation),
		catalog:   make(map[string]*model.ItemCatalogEntry),
		requests:  make(map[string]*model.MissingItemRequest),
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

// keyLock is a record lock shared by every unit of work that holds or
// waits on it. The entry leaves the map when the last one lets go.
type keyLock struct {
	ch   chan struct{}
	refs int
}

func (r *MemoryDonationRepository) acquireRef(key string) *keyLock {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	l, ok := r.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		r.locks[key] = l
	}
	l.refs++
	return l
}

func (r *MemoryDonationRepository) dropRef(key string, l *keyLock) {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(r.locks, key)
	}
}

type memoryTx struct {
	repo *MemoryDonationRepository
	ctx  context.Context
	held map[string]*keyLock

	users     map[string]*model.User
	locations map[string]*model.StorageLocation
	catalog   map[string]*model.ItemCatalogEntry
	requests  map[string]*model.MissingItemRequest
	donations []*model.Donation
}

func (t *memoryTx) lock(key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	l := t.repo.acquireRef(key)
	timer := time.NewTimer(t.repo.lockWait)
	defer timer.Stop()
	select {
	case l.ch <- struct{}{}:
		t.held[key] = l
		return nil
	case <-timer.C:
		t.repo.dropRef(key, l)
		return fmt.Errorf("%w: lock %s busy", database.ErrConflict, key)
	case <-t.ctx.Done():
		t.repo.dropRef(key, l)
		return fmt.Errorf("%w: %v", database.ErrConnection, t.ctx.Err())
	}
}

func (t *memoryTx) release() {
	for key, l := range t.held {
		<-l.ch
		t.repo.dropRef(key, l)
		delete(t.held, key)
	}
}

func (t *memoryTx) LoadUser(id string) (*model.User, error) {
	if err := t.lock("user:" + id); err != nil {
		return nil, err
	}
	if u, ok := t.users[id]; ok {
		return u.Clone(), nil
	}
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	return t.repo.users[id].Clone(), nil
}

func (t *memoryTx) LoadLocation(id string) (*model.StorageLocation, error) {
	if err := t.lock("location:" + id); err != nil {
		return nil, err
	}
	if l, ok := t.locations[id]; ok {
		return l.Clone(), nil
	}
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	return t.repo.locations[id].Clone(), nil
}

func (t *memoryTx) LoadCatalogEntry(itemType string) (*model.ItemCatalogEntry, error) {
	key := model.ItemKey(itemType)
	if e, ok := t.catalog[key]; ok {
		c := *e
		return &c, nil
	}
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	if e, ok := t.repo.catalog[key]; ok {
		c := *e
		return &c, nil
	}
	return nil, nil
}

func (t *memoryTx) ListUnfulfilledMissingRequests(locationID, itemType string) ([]*model.MissingItemRequest, error) {
	key := model.ItemKey(itemType)
	match := func(m *model.MissingItemRequest) bool {
		return m.LocationID == locationID && !m.Fulfilled && (key == "" || model.ItemKey(m.ItemType) == key)
	}

	var out []*model.MissingItemRequest
	t.repo.mu.RLock()
	for id, m := range t.repo.requests {
		if _, staged := t.requests[id]; staged {
			continue
		}
		if match(m) {
			out = append(out, m.Clone())
		}
	}
	t.repo.mu.RUnlock()
	for _, m := range t.requests {
		if match(m) {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedOn.Before(out[j].CreatedOn) })
	return out, nil
}

func (t *memoryTx) AppendDonation(d *model.Donation) error {
	if d.ID == "" {
		return fmt.Errorf("%w: donation id required", database.ErrQuery)
	}
	c := *d
	t.donations = append(t.donations, &c)
	return nil
}

func (t *memoryTx) SaveUser(u *model.User) error {
	if err := t.lock("user:" + u.ID); err != nil {
		return err
	}
	t.users[u.ID] = u.Clone()
	return nil
}

func (t *memoryTx) SaveLocation(l *model.StorageLocation) error {
	if err := t.lock("location:" + l.ID); err != nil {
		return err
	}
	t.locations[l.ID] = l.Clone()
	return nil
}

func (t *memoryTx) SaveCatalogEntry(e *model.ItemCatalogEntry) error {
	c := *e
	t.catalog[model.ItemKey(e.ItemType)] = &c
	return nil
}

func (t *memoryTx) SaveMissingRequest(m *model.MissingItemRequest) error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing item request id required", database.ErrQuery)
	}
	t.requests[m.ID] = m.Clone()
	return nil
}

func (t *memoryTx) AggregateLocationPoints(locationID string) ([]model.DonorTotal, error) {
	totals := make(map[string]*model.DonorTotal)
	add := func(d *model.Donation) {
		if d.LocationID != locationID {
			return
		}
		dt, ok := totals[d.UserID]
		if !ok {
			dt = &model.DonorTotal{UserID: d.UserID}
			totals[d.UserID] = dt
		}
		dt.Points += d.TotalPoints()
		dt.Donations++
		if d.CreatedOn.After(dt.ReachedOn) {
			dt.ReachedOn = d.CreatedOn
		}
	}

	t.repo.mu.RLock()
	for _, i := range t.repo.byLoc[locationID] {
		add(t.repo.donations[i])
	}
	t.repo.mu.RUnlock()
	for _, d := range t.donations {
		add(d)
	}

	out := make([]model.DonorTotal, 0, len(totals))
	for _, dt := range totals {
		out = append(out, *dt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (t *memoryTx) ListUserDonations(userID string) ([]*model.Donation, error) {
	var out []*model.Donation
	t.repo.mu.RLock()
	for _, i := range t.repo.byUser[userID] {
		c := *t.repo.donations[i]
		out = append(out, &c)
	}
	t.repo.mu.RUnlock()
	for _, d := range t.donations {
		if d.UserID == userID {
			c := *d
			out = append(out, &c)
		}
	}
	return out, nil
}

func (t *memoryTx) ListLocations() ([]*model.StorageLocation, error) {
	t.repo.mu.RLock()
	out := make([]*model.StorageLocation, 0, len(t.repo.locations))
	for id, l := range t.repo.locations {
		if staged, ok := t.locations[id]; ok {
			l = staged
		}
		out = append(out, l.Clone())
	}
	t.repo.mu.RUnlock()
	for id, l := range t.locations {
		if _, ok := t.repo.locations[id]; !ok {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memoryTx) ListUsers() ([]*model.User, error) {
	t.repo.mu.RLock()
	out := make([]*model.User, 0, len(t.repo.users))
	for id, u := range t.repo.users {
		if staged, ok := t.users[id]; ok {
			u = staged
		}
		out = append(out, u.Clone())
	}
	t.repo.mu.RUnlock()
	for id, u := range t.users {
		if _, ok := t.repo.users[id]; !ok {
			out = append(out, u.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memoryTx) LedgerSummary() (model.LedgerSummary, error) {
	var sum model.LedgerSummary
	add := func(d *model.Donation) {
		sum.Donations++
		sum.Points += d.TotalPoints()
		sum.Items += d.Quantity
	}
	t.repo.mu.RLock()
	for _, d := range t.repo.donations {
		add(d)
	}
	t.repo.mu.RUnlock()
	for _, d := range t.donations {
		add(d)
	}
	return sum, nil
}

// commit validates versions then applies every staged write under the
// data lock.
func (t *memoryTx) commit() error {
	r := t.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, u := range t.users {
		if err := checkVersion("user", id, currentUserVersion(r.users[id]), u.Version); err != nil {
			return err
		}
	}
	for id, l := range t.locations {
		if err := checkVersion("location", id, currentLocationVersion(r.locations[id]), l.Version); err != nil {
			return err
		}
	}
	for _, d := range t.donations {
		if _, ok := r.users[d.UserID]; !ok {
			if _, staged := t.users[d.UserID]; !staged {
				return fmt.Errorf("%w: donation references unknown user %s", database.ErrQuery, d.UserID)
			}
		}
	}

	for id, u := range t.users {
		u.Version++
		r.users[id] = u
	}
	for id, l := range t.locations {
		l.Version++
		r.locations[id] = l
	}
	for key, e := range t.catalog {
		r.catalog[key] = e
	}
	for id, m := range t.requests {
		r.requests[id] = m
	}
	for _, d := range t.donations {
		r.donations = append(r.donations, d)
		i := len(r.donations) - 1
		r.byLoc[d.LocationID] = append(r.byLoc[d.LocationID], i)
		r.byUser[d.UserID] = append(r.byUser[d.UserID], i)
	}
	return nil
}

func currentUserVersion(u *model.User) int64 {
	if u == nil {
		return 0
	}
	return u.Version
}

func currentLocationVersion(l *model.StorageLocation) int64 {
	if l == nil {
		return 0
	}
	return l.Version
}

func checkVersion(kind, id string, stored, staged int64) error {
	if stored != staged {
		return fmt.Errorf("%w: %s %s changed (stored v%d, staged v%d)", database.ErrConflict, kind, id, stored, staged)
	}
	return nil
}
