package repository

import (
	"context"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/stretchr/testify/assert"
)

func seedOrder(t *testing.T, r *OrderMemoryRepository, id, intentID string) model.Order {
	t.Helper()
	o := model.Order{
		ID:               id,
		UserID:           1,
		ProductID:        10,
		Status:           model.OrderStatusPending,
		Amount:           10000,
		TaxAmount:        1900,
		Quantity:         1,
		Currency:         "eur",
		ProviderIntentID: intentID,
	}
	assert.NoError(t, r.Insert(context.Background(), o))
	return o
}

func TestOrderMemory_InsertAndLookup(t *testing.T) {
	r := NewOrderMemoryRepository()
	seedOrder(t, r, "order-1", "pi_1")

	byID, err := r.FindByID(context.Background(), "order-1")
	assert.NoError(t, err)
	assert.Equal(t, "pi_1", byID.ProviderIntentID)

	byIntent, err := r.FindByIntentID(context.Background(), "pi_1")
	assert.NoError(t, err)
	assert.Equal(t, "order-1", byIntent.ID)

	_, err = r.FindByID(context.Background(), "order-404")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestOrderMemory_DuplicateIntentRejected(t *testing.T) {
	r := NewOrderMemoryRepository()
	seedOrder(t, r, "order-1", "pi_1")

	err := r.Insert(context.Background(), model.Order{
		ID: "order-2", UserID: 2, Status: model.OrderStatusPending, ProviderIntentID: "pi_1",
	})
	assert.ErrorIs(t, err, repo.ErrIntentConflict)
}

func TestOrderMemory_StatusTransitions(t *testing.T) {
	r := NewOrderMemoryRepository()
	seedOrder(t, r, "order-1", "pi_1")

	//pendingからは各終端へ進める
	assert.NoError(t, r.UpdateStatus(context.Background(), "order-1", model.OrderStatusCompleted))

	//終端からは動かせない
	err := r.UpdateStatus(context.Background(), "order-1", model.OrderStatusFailed)
	assert.ErrorIs(t, err, repo.ErrInvalidTransition)

	err = r.UpdateStatus(context.Background(), "order-1", model.OrderStatusPending)
	assert.ErrorIs(t, err, repo.ErrInvalidTransition)

	err = r.UpdateStatus(context.Background(), "order-404", model.OrderStatusCompleted)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestOrderMemory_RelinkIntent(t *testing.T) {
	r := NewOrderMemoryRepository()
	seedOrder(t, r, "order-1", "pi_1")

	assert.NoError(t, r.RelinkIntent(context.Background(), "order-1", repo.IntentRelink{
		NewIntentID:      "pi_2",
		PreviousIntentID: "pi_1",
		Amount:           20000,
		TaxAmount:        3800,
		Quantity:         2,
	}))

	//旧intent idは索引から外れる
	_, err := r.FindByIntentID(context.Background(), "pi_1")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	//識別子と金額が同時に切り替わっている
	o, err := r.FindByIntentID(context.Background(), "pi_2")
	assert.NoError(t, err)
	assert.Equal(t, "order-1", o.ID)
	assert.Equal(t, "pi_2", o.ProviderIntentID)
	assert.Equal(t, "pi_1", o.PreviousIntentID)
	assert.Equal(t, int64(20000), o.Amount)
	assert.Equal(t, int64(3800), o.TaxAmount)
	assert.Equal(t, int64(2), o.Quantity)
}

func TestOrderMemory_RelinkConflict(t *testing.T) {
	r := NewOrderMemoryRepository()
	seedOrder(t, r, "order-1", "pi_1")
	seedOrder(t, r, "order-2", "pi_2")

	//他の注文が持っているintentへは付け替えられない
	err := r.RelinkIntent(context.Background(), "order-1", repo.IntentRelink{
		NewIntentID:      "pi_2",
		PreviousIntentID: "pi_1",
	})
	assert.ErrorIs(t, err, repo.ErrIntentConflict)

	//元の索引は壊れていない
	o, err := r.FindByIntentID(context.Background(), "pi_1")
	assert.NoError(t, err)
	assert.Equal(t, "order-1", o.ID)
}

func TestOrderMemory_UpdateAmounts(t *testing.T) {
	r := NewOrderMemoryRepository()
	seedOrder(t, r, "order-1", "pi_1")

	assert.NoError(t, r.UpdateAmounts(context.Background(), "order-1", 20000, 3800, 2))

	o, err := r.FindByID(context.Background(), "order-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(20000), o.Amount)
	assert.Equal(t, int64(3800), o.TaxAmount)
	assert.Equal(t, int64(2), o.Quantity)

	err = r.UpdateAmounts(context.Background(), "order-404", 1, 0, 1)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestOrderMemory_ListByUserID(t *testing.T) {
	r := NewOrderMemoryRepository()
	seedOrder(t, r, "order-1", "pi_1")
	seedOrder(t, r, "order-2", "pi_2")
	assert.NoError(t, r.Insert(context.Background(), model.Order{
		ID: "order-3", UserID: 2, Status: model.OrderStatusPending, ProviderIntentID: "pi_3",
	}))

	mine, err := r.ListByUserID(context.Background(), 1)
	assert.NoError(t, err)
	assert.Len(t, mine, 2)

	other, err := r.ListByUserID(context.Background(), 99)
	assert.NoError(t, err)
	assert.Empty(t, other)
}
