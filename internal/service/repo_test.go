package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/ordersync/internal/model"
	"github.com/mmeshcher/ordersync/internal/repository"
)

// memRepo хранит данные в памяти и повторяет семантику PostgresRepository.
type memRepo struct {
	mu sync.Mutex

	users         map[string]*model.User
	orders        map[uuid.UUID]*model.Order
	byExternal    map[string]uuid.UUID
	wms           map[uuid.UUID]*model.WMSRecord
	notifications []*model.Notification

	upsertErr   map[string]error
	createErr   error
	saveWMSErr  error
	upsertCalls int
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:      map[string]*model.User{},
		orders:     map[uuid.UUID]*model.Order{},
		byExternal: map[string]uuid.UUID{},
		wms:        map[uuid.UUID]*model.WMSRecord{},
		upsertErr:  map[string]error{},
	}
}

func clone[T any](v *T) *T {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return &out
}

func (r *memRepo) Ping(context.Context) error { return nil }
func (r *memRepo) Close() error               { return nil }

func (r *memRepo) CreateUser(_ context.Context, username string, hash []byte) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[username]; ok {
		return nil, repository.ErrUserExists
	}
	role := model.RoleUser
	if len(r.users) == 0 {
		role = model.RoleAdmin
	}
	u := &model.User{ID: uuid.New(), Username: username, PasswordHash: hash, Role: role, CreatedAt: time.Now()}
	r.users[username] = u
	return u, nil
}

func (r *memRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (r *memRepo) GetUserByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *memRepo) upsert(d model.OrderData) error {
	if err := r.upsertErr[d.ExternalOrderID]; err != nil {
		return err
	}

	if id, ok := r.byExternal[d.ExternalOrderID]; ok {
		o := r.orders[id]
		before, _ := json.Marshal(o.OrderData)
		after, _ := json.Marshal(d)
		if !bytes.Equal(before, after) {
			o.OrderData = d
			o.UpdatedAt = time.Now()
		}
		return nil
	}

	now := time.Now()
	o := &model.Order{ID: uuid.New(), OrderData: d, CreatedAt: now, UpdatedAt: now}
	r.orders[o.ID] = o
	r.byExternal[d.ExternalOrderID] = o.ID
	return nil
}

func (r *memRepo) UpsertOrders(_ context.Context, orders []model.OrderData) []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.upsertCalls++
	errs := make([]error, len(orders))
	for i, d := range orders {
		errs[i] = r.upsert(*clone(&d))
	}
	return errs
}

func (r *memRepo) UpsertOrder(ctx context.Context, d model.OrderData) (*model.Order, error) {
	r.mu.Lock()
	err := r.upsert(*clone(&d))
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.GetOrderByExternalID(ctx, d.ExternalOrderID)
}

func (r *memRepo) CreateOrder(ctx context.Context, d model.OrderData) (*model.Order, error) {
	r.mu.Lock()
	if r.createErr != nil {
		r.mu.Unlock()
		return nil, r.createErr
	}
	if _, ok := r.byExternal[d.ExternalOrderID]; ok {
		r.mu.Unlock()
		return nil, repository.ErrOrderExists
	}
	err := r.upsert(*clone(&d))
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.GetOrderByExternalID(ctx, d.ExternalOrderID)
}

func (r *memRepo) GetOrder(_ context.Context, id uuid.UUID) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return clone(o), nil
}

func (r *memRepo) GetOrderByExternalID(ctx context.Context, externalID string) (*model.Order, error) {
	r.mu.Lock()
	id, ok := r.byExternal[externalID]
	r.mu.Unlock()
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return r.GetOrder(ctx, id)
}

func (r *memRepo) ListOrders(_ context.Context, f model.OrderFilter) ([]model.Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]model.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if f.FinancialStatus != "" && o.FinancialStatus != f.FinancialStatus {
			continue
		}
		res = append(res, *clone(o))
	}
	return res, len(res), nil
}

func (r *memRepo) update(ctx context.Context, id uuid.UUID, fn func(*model.OrderData) error) (*model.Order, error) {
	r.mu.Lock()
	o, ok := r.orders[id]
	if !ok {
		r.mu.Unlock()
		return nil, repository.ErrOrderNotFound
	}
	d := clone(&o.OrderData)
	if err := fn(d); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	d.ExternalOrderID = o.ExternalOrderID
	o.OrderData = *d
	o.UpdatedAt = time.Now()
	r.mu.Unlock()

	return r.GetOrder(ctx, id)
}

func (r *memRepo) UpdateOrder(ctx context.Context, id uuid.UUID, fn func(*model.OrderData) error) (*model.Order, error) {
	return r.update(ctx, id, fn)
}

func (r *memRepo) UpdateOrderByExternalID(ctx context.Context, externalID string, fn func(*model.OrderData) error) (*model.Order, error) {
	r.mu.Lock()
	id, ok := r.byExternal[externalID]
	r.mu.Unlock()
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return r.update(ctx, id, fn)
}

func (r *memRepo) UpdateCustomerSnapshot(_ context.Context, c model.Customer) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, o := range r.orders {
		if o.Customer != nil && o.Customer.ExternalID == c.ExternalID {
			o.Customer = clone(&c)
			n++
		}
	}
	return n, nil
}

func (r *memRepo) DeleteOrder(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	delete(r.byExternal, o.ExternalOrderID)
	delete(r.orders, id)
	delete(r.wms, id)
	return nil
}

func (r *memRepo) GetWMSRecord(_ context.Context, orderID uuid.UUID) (*model.WMSRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.wms[orderID]
	if !ok {
		return nil, repository.ErrWMSRecordNotFound
	}
	return clone(rec), nil
}

func (r *memRepo) SaveWMSRecord(_ context.Context, rec *model.WMSRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveWMSErr != nil {
		return r.saveWMSErr
	}
	o, ok := r.orders[rec.OrderID]
	if !ok {
		return repository.ErrOrderNotFound
	}

	r.wms[rec.OrderID] = clone(rec)
	status := rec.Status
	wmsID := rec.WMSOrderID
	o.WMS = model.OrderWMS{Status: &status, WMSOrderID: &wmsID, Customer: rec.Customer, LastSync: rec.LastSync}
	return nil
}

func (r *memRepo) CreateNotification(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *memRepo) ListNotifications(_ context.Context, unreadOnly bool, limit int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := []model.Notification{}
	for i := len(r.notifications) - 1; i >= 0 && len(res) < limit; i-- {
		if unreadOnly && r.notifications[i].Read {
			continue
		}
		res = append(res, *r.notifications[i])
	}
	return res, nil
}

func (r *memRepo) MarkNotificationRead(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.notifications {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return repository.ErrNotificationNotFound
}

func (r *memRepo) orderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

var errBoom = errors.New("boom")
