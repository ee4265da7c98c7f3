package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) Insert(ctx context.Context, order model.Order) error {
	err := r.db.WithContext(ctx).Create(&order).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repo.ErrIntentConflict
	}
	return err
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) FindByIntentID(ctx context.Context, intentID string) (model.Order, error) {
	var o model.Order
	//差し替え済みの旧IDはここには当たらない（previous_intent_id側）
	err := r.db.WithContext(ctx).Where("provider_intent_id = ?", intentID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	if !model.OrderStatusPending.CanTransitionTo(status) {
		return repo.ErrInvalidTransition
	}

	//条件付きUPDATEで、pendingからの遷移だけ通す
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusPending).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, orderID); err != nil {
			return err
		}
		return repo.ErrInvalidTransition
	}
	return nil
}

func (r *OrderGormRepository) UpdateAmounts(ctx context.Context, orderID string, amount int64, taxAmount int64, quantity int64) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"amount":     amount,
			"tax_amount": taxAmount,
			"quantity":   quantity,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) RelinkIntent(ctx context.Context, orderID string, rl repo.IntentRelink) error {
	//識別子と金額は同じUPDATEで書く
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"provider_intent_id": rl.NewIntentID,
			"previous_intent_id": rl.PreviousIntentID,
			"amount":             rl.Amount,
			"tax_amount":         rl.TaxAmount,
			"quantity":           rl.Quantity,
		})
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return repo.ErrIntentConflict
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) UpdateTracking(ctx context.Context, orderID string, trackingNumber string) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("tracking_number", trackingNumber)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Order, error) {
	var items []model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&items).Error
	if err != nil {
		return []model.Order{}, err
	}
	return items, nil
}
