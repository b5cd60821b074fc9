// Package orders reconciles three writers of the order-list cache: optimistic
// patches from merchant actions, refetch results, and live-feed invalidation.
// Every mutation runs through an explicit state machine so the accepted
// last-writer-wins race between overlapping mutations is a visible property
// rather than a side effect of the cache.
package orders

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Thorwig/sovy-merchant/internal/api"
	"github.com/Thorwig/sovy-merchant/internal/cache"
	"github.com/Thorwig/sovy-merchant/internal/models"
)

// KeyPrefix is shared with the live feed, which invalidates every order page
// at once because its notifications carry no order identity.
const KeyPrefix = "orders"

// Key builds the cache key for one page+filter combination. Snapshot and
// rollback are scoped to this key, so mutations started from different pages
// cannot clobber each other.
func Key(q api.OrderQuery) string {
	return fmt.Sprintf("%s?status=%s&page=%d&limit=%d", KeyPrefix, q.Status, q.Page, q.Limit)
}

type MutationState int

const (
	StateIdle MutationState = iota
	StateOptimistic
	StateSettling
	StateCommitted
	StateRolledBack
)

func (s MutationState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOptimistic:
		return "optimistic"
	case StateSettling:
		return "settling"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Mutation tracks one status or payment change through its lifecycle:
// Idle -> Optimistic -> Settling -> Committed | RolledBack.
type Mutation struct {
	OrderID string

	mu    sync.Mutex
	state MutationState
}

func (m *Mutation) State() MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mutation) setState(s MutationState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Backend is the slice of the API client the store needs.
type Backend interface {
	ListOrders(ctx context.Context, q api.OrderQuery) (*models.OrderPage, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
	ConfirmOrderPayment(ctx context.Context, id string) (*models.Order, error)
}

type Store struct {
	backend Backend
	cache   *cache.Cache
	log     *slog.Logger

	pickupClear time.Duration
	after       func(d time.Duration, fn func()) *time.Timer

	remMu    sync.Mutex
	removing map[string]*time.Timer
}

func NewStore(backend Backend, c *cache.Cache, log *slog.Logger, pickupClear time.Duration) *Store {
	return &Store{
		backend:     backend,
		cache:       c,
		log:         log,
		pickupClear: pickupClear,
		after:       time.AfterFunc,
		removing:    make(map[string]*time.Timer),
	}
}

// Fetch returns the page for q, refetching when the cache entry is missing
// or stale. When the refetch fails and a stale value exists, both the stale
// page and the error are returned so the caller can keep a stale view on
// screen while reporting the failure.
func (s *Store) Fetch(ctx context.Context, q api.OrderQuery) (*models.OrderPage, error) {
	key := Key(q)
	if s.cache.Fresh(key) {
		if v, ok := s.cache.Get(key); ok {
			return v.(*models.OrderPage), nil
		}
	}

	fetchCtx, release := s.cache.BeginFetch(ctx, key)
	page, err := s.backend.ListOrders(fetchCtx, q)
	release()
	if err != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.(*models.OrderPage), fmt.Errorf("refresh orders: %w", err)
		}
		return nil, fmt.Errorf("list orders: %w", err)
	}
	s.cache.Set(key, page)
	return page, nil
}

// UpdateStatus moves an order to target with instant local feedback. The
// optimistic patch is applied before the request leaves; the cache entry is
// invalidated after the request settles either way; on failure the snapshot
// taken before the patch is restored and the error is returned to the caller.
func (s *Store) UpdateStatus(ctx context.Context, q api.OrderQuery, orderID string, target models.OrderStatus) (*Mutation, error) {
	return s.mutate(ctx, q, orderID, target == models.OrderStatusPickedUp,
		func(o *models.Order) { o.Status = target },
		func(ctx context.Context) error {
			_, err := s.backend.UpdateOrderStatus(ctx, orderID, target)
			return err
		})
}

// ConfirmPayment marks an order paid, with the same optimistic lifecycle as
// UpdateStatus.
func (s *Store) ConfirmPayment(ctx context.Context, q api.OrderQuery, orderID string) (*Mutation, error) {
	return s.mutate(ctx, q, orderID, false,
		func(o *models.Order) { o.PaymentStatus = models.PaymentStatusPaid },
		func(ctx context.Context) error {
			_, err := s.backend.ConfirmOrderPayment(ctx, orderID)
			return err
		})
}

func (s *Store) mutate(ctx context.Context, q api.OrderQuery, orderID string, pickedUp bool,
	patch func(*models.Order), send func(context.Context) error) (*Mutation, error) {

	key := Key(q)
	mut := &Mutation{OrderID: orderID, state: StateIdle}

	// A refetch racing the optimistic patch could overwrite it with a stale
	// page, so it is cancelled before anything else happens.
	s.cache.CancelInflight(key)

	snap, hadSnap := s.cache.Snapshot(key)
	if hadSnap {
		if page, ok := snap.(*models.OrderPage); ok {
			s.cache.Set(key, patchPage(page, orderID, patch))
		}
	}
	mut.setState(StateOptimistic)

	if pickedUp {
		s.markRemoving(orderID)
	}

	mut.setState(StateSettling)
	err := send(ctx)
	if err != nil {
		if hadSnap {
			s.cache.Set(key, snap)
		}
		s.clearRemoving(orderID)
		mut.setState(StateRolledBack)
		s.cache.Invalidate(key)
		s.log.Warn("order mutation rolled back", "order", orderID, "err", err)
		return mut, fmt.Errorf("update order %s: %w", orderID, err)
	}

	mut.setState(StateCommitted)
	s.cache.Invalidate(key)
	return mut, nil
}

// patchPage applies patch to the matching order on a copy of page, leaving
// the cached original untouched for the snapshot.
func patchPage(page *models.OrderPage, orderID string, patch func(*models.Order)) *models.OrderPage {
	out := &models.OrderPage{
		Orders: make([]models.Order, len(page.Orders)),
		Total:  page.Total,
	}
	copy(out.Orders, page.Orders)
	for i := range out.Orders {
		if out.Orders[i].ID == orderID {
			patch(&out.Orders[i])
		}
	}
	return out
}

// markRemoving flags an order as visually leaving the list. The flag clears
// on its own after the configured window no matter how the request ends;
// a failed mutation clears it sooner via clearRemoving.
func (s *Store) markRemoving(orderID string) {
	s.remMu.Lock()
	defer s.remMu.Unlock()
	if t, ok := s.removing[orderID]; ok {
		t.Stop()
	}
	s.removing[orderID] = s.after(s.pickupClear, func() { s.clearRemoving(orderID) })
}

func (s *Store) clearRemoving(orderID string) {
	s.remMu.Lock()
	t, ok := s.removing[orderID]
	if ok {
		delete(s.removing, orderID)
	}
	s.remMu.Unlock()
	if ok {
		t.Stop()
	}
}

// IsRemoving reports whether an order is inside its pickup-removal window.
func (s *Store) IsRemoving(orderID string) bool {
	s.remMu.Lock()
	defer s.remMu.Unlock()
	_, ok := s.removing[orderID]
	return ok
}

// Pagination derives the controls for an order listing.
type Pagination struct {
	Page  int
	Limit int
	Total int
}

func (p Pagination) TotalPages() int {
	if p.Limit <= 0 {
		return 1
	}
	n := (p.Total + p.Limit - 1) / p.Limit
	if n < 1 {
		n = 1
	}
	return n
}

func (p Pagination) HasPrev() bool { return p.Page > 1 }

func (p Pagination) HasNext() bool { return p.Page < p.TotalPages() }
