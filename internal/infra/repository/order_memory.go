package repository

import (
	"context"
	"sync"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// DBなしで動くメモリ実装。注文IDとintent idの二重索引を持つ。
// テストと開発用。契約はOrderGormRepositoryと同じ。
type OrderMemoryRepository struct {
	mu       sync.RWMutex
	byID     map[string]model.Order
	byIntent map[string]string // intent id -> order id
}

func NewOrderMemoryRepository() *OrderMemoryRepository {
	return &OrderMemoryRepository{
		byID:     make(map[string]model.Order),
		byIntent: make(map[string]string),
	}
}

func (r *OrderMemoryRepository) Insert(_ context.Context, order model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byIntent[order.ProviderIntentID]; ok {
		return repo.ErrIntentConflict
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	order.UpdatedAt = order.CreatedAt

	r.byID[order.ID] = order
	r.byIntent[order.ProviderIntentID] = order.ID
	return nil
}

func (r *OrderMemoryRepository) FindByID(_ context.Context, orderID string) (model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.byID[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (r *OrderMemoryRepository) FindByIntentID(_ context.Context, intentID string) (model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byIntent[intentID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *OrderMemoryRepository) UpdateStatus(_ context.Context, orderID string, status model.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byID[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	if !o.Status.CanTransitionTo(status) {
		return repo.ErrInvalidTransition
	}

	o.Status = status
	o.UpdatedAt = time.Now()
	r.byID[orderID] = o
	return nil
}

func (r *OrderMemoryRepository) UpdateAmounts(_ context.Context, orderID string, amount int64, taxAmount int64, quantity int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byID[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Amount = amount
	o.TaxAmount = taxAmount
	o.Quantity = quantity
	o.UpdatedAt = time.Now()
	r.byID[orderID] = o
	return nil
}

func (r *OrderMemoryRepository) RelinkIntent(_ context.Context, orderID string, rl repo.IntentRelink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byID[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	if owner, ok := r.byIntent[rl.NewIntentID]; ok && owner != orderID {
		return repo.ErrIntentConflict
	}

	//索引の付け替えと金額はロック内で一度に書く。旧IDで引くとErrNotFoundになる
	delete(r.byIntent, o.ProviderIntentID)
	r.byIntent[rl.NewIntentID] = orderID

	o.ProviderIntentID = rl.NewIntentID
	o.PreviousIntentID = rl.PreviousIntentID
	o.Amount = rl.Amount
	o.TaxAmount = rl.TaxAmount
	o.Quantity = rl.Quantity
	o.UpdatedAt = time.Now()
	r.byID[orderID] = o
	return nil
}

func (r *OrderMemoryRepository) UpdateTracking(_ context.Context, orderID string, trackingNumber string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byID[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.TrackingNumber = trackingNumber
	o.UpdatedAt = time.Now()
	r.byID[orderID] = o
	return nil
}

func (r *OrderMemoryRepository) ListByUserID(_ context.Context, userID int64) ([]model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]model.Order, 0)
	for _, o := range r.byID {
		if o.UserID == userID {
			items = append(items, o)
		}
	}
	return items, nil
}
