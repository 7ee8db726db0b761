// Package memstore is an in-process store.Repository used by db.driver=memory
// and by service tests.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"NovaRamp/internal/models"
	"NovaRamp/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	users    map[string]*models.User // by auth subject
	orders   map[string]*models.Order
	deposits map[string]*models.MakerDeposit
}

var _ store.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		users:    make(map[string]*models.User),
		orders:   make(map[string]*models.Order),
		deposits: make(map[string]*models.MakerDeposit),
	}
}

// WithClock replaces the clock used for updated_at stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) UpsertUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if u, ok := s.users[user.AuthSubject]; ok {
		if user.PrimaryAddress != "" {
			u.PrimaryAddress = user.PrimaryAddress
		}
		u.UpdatedAt = now
		cp := *u
		return &cp, nil
	}
	u := &models.User{
		ID:             user.ID,
		AuthSubject:    user.AuthSubject,
		PrimaryAddress: user.PrimaryAddress,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.users[u.AuthSubject] = u
	cp := *u
	return &cp, nil
}

func (s *Store) CreateOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := copyOrder(order)
	if len(o.Metadata) == 0 {
		o.Metadata = json.RawMessage("{}")
	}
	s.orders[o.OrderID] = o
	return nil
}

func (s *Store) GetOrder(_ context.Context, userID, orderID string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, store.ErrNotFound
	}
	return copyOrder(o), nil
}

func (s *Store) ListOrders(_ context.Context, userID string) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := []*models.Order{}
	for _, o := range s.orders {
		if o.UserID == userID {
			orders = append(orders, copyOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].OrderID > orders[j].OrderID
	})
	return orders, nil
}

func (s *Store) UpdateOrder(_ context.Context, userID, orderID string, patch models.OrderPatch) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, store.ErrNotFound
	}
	if patch.ExpectStatus != nil && o.Status != *patch.ExpectStatus {
		return nil, store.ErrStatusChanged
	}
	if len(patch.Metadata) > 0 {
		merged, err := mergeJSON(o.Metadata, patch.Metadata)
		if err != nil {
			return nil, err
		}
		o.Metadata = merged
	}
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	setString(&o.IntentHash, patch.IntentHash)
	setString(&o.ProofBytes, patch.ProofBytes)
	setString(&o.TxSignal, patch.TxSignal)
	setString(&o.TxFulfill, patch.TxFulfill)
	setString(&o.ErrorMessage, patch.ErrorMessage)
	o.UpdatedAt = s.now()
	return copyOrder(o), nil
}

func (s *Store) MarkExpired(_ context.Context, cutoff time.Time) ([]store.ExpiredOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []store.ExpiredOrder
	now := s.now()
	for _, o := range s.orders {
		if o.Status.Terminal() || !o.CreatedAt.Before(cutoff) {
			continue
		}
		from := o.Status
		o.Status = models.OrderExpired
		o.UpdatedAt = now
		expired = append(expired, store.ExpiredOrder{From: from, Order: copyOrder(o)})
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].Order.OrderID < expired[j].Order.OrderID })
	return expired, nil
}

func (s *Store) CreateDeposit(_ context.Context, d *models.MakerDeposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.IsActive {
		for _, other := range s.deposits {
			if other.IsActive && other.NormalizedPayeeID == d.NormalizedPayeeID && other.Provider == d.Provider {
				return store.ErrDuplicate
			}
		}
	}
	cp := *d
	s.deposits[d.DepositID] = &cp
	return nil
}

func (s *Store) GetDeposit(_ context.Context, depositID string) (*models.MakerDeposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deposits[depositID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *Store) FindEligibleDeposits(_ context.Context, q models.DepositQuery) ([]*models.MakerDeposit, error) {
	return s.filterDeposits(func(d *models.MakerDeposit) bool {
		return d.IsActive &&
			strings.EqualFold(d.Currency, q.Currency) &&
			(q.Provider == "" || d.Provider == q.Provider) &&
			d.MinAmount <= q.Amount && q.Amount <= d.MaxAmount
	}), nil
}

func (s *Store) ActivePayeeExists(_ context.Context, normalizedPayeeID, provider string) (bool, error) {
	found := s.filterDeposits(func(d *models.MakerDeposit) bool {
		return d.IsActive && d.NormalizedPayeeID == normalizedPayeeID && d.Provider == provider
	})
	return len(found) > 0, nil
}

func (s *Store) ListDeposits(_ context.Context, userID string) ([]*models.MakerDeposit, error) {
	out := s.filterDeposits(func(d *models.MakerDeposit) bool {
		return d.IsActive && d.UserID == userID
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].DepositID > out[j].DepositID
	})
	return out, nil
}

func (s *Store) DeactivateDeposit(_ context.Context, userID, depositID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deposits[depositID]
	if !ok || d.UserID != userID || !d.IsActive {
		return store.ErrNotFound
	}
	d.IsActive = false
	d.UpdatedAt = s.now()
	return nil
}

func (s *Store) filterDeposits(keep func(*models.MakerDeposit) bool) []*models.MakerDeposit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.MakerDeposit{}
	for _, d := range s.deposits {
		if keep(d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepositID < out[j].DepositID })
	return out
}

func copyOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Metadata = append(json.RawMessage(nil), o.Metadata...)
	return &cp
}

func setString(dst **string, v *string) {
	if v == nil {
		return
	}
	s := *v
	*dst = &s
}

// mergeJSON applies the top-level keys of patch over base, like jsonb ||.
func mergeJSON(base, patch json.RawMessage) (json.RawMessage, error) {
	merged := map[string]json.RawMessage{}
	if len(base) > 0 {
		if err := json.Unmarshal(base, &merged); err != nil {
			return nil, err
		}
	}
	var add map[string]json.RawMessage
	if err := json.Unmarshal(patch, &add); err != nil {
		return nil, err
	}
	for k, v := range add {
		merged[k] = v
	}
	return json.Marshal(merged)
}
