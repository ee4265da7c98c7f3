package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
)

var (
	ErrNotFound = errors.New("not found")

	//許可されていないステータス遷移
	ErrInvalidTransition = errors.New("invalid status transition")

	//同じintent idを持つ注文が既にいる
	ErrIntentConflict = errors.New("intent id already linked")
)

// intent差し替え時に一度に書く内容。識別子と金額を
// 別々に更新すると請求額と台帳がずれる瞬間ができる。
type IntentRelink struct {
	NewIntentID      string
	PreviousIntentID string
	Amount           int64
	TaxAmount        int64
	Quantity         int64
}

// 注文台帳。注文IDとintent idの両方から引ける。
// 非終端のintent idを参照できる注文は常に1件だけ。
type OrderRepository interface {
	Insert(ctx context.Context, order model.Order) error
	FindByID(ctx context.Context, orderID string) (model.Order, error)

	//現在有効なintent idから注文を引く。差し替え済みの旧IDはErrNotFound
	FindByIntentID(ctx context.Context, intentID string) (model.Order, error)

	//遷移表にない変更はErrInvalidTransitionで拒否する
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error

	//数量変更後の金額を台帳へ反映する（intent側の更新が通った後に呼ぶ）
	UpdateAmounts(ctx context.Context, orderID string, amount int64, taxAmount int64, quantity int64) error

	//intentの差し替え。旧IDをprevious_intent_idへ退避して索引を付け替え、
	//新しい金額も同時に書く
	RelinkIntent(ctx context.Context, orderID string, rl IntentRelink) error

	UpdateTracking(ctx context.Context, orderID string, trackingNumber string) error

	ListByUserID(ctx context.Context, userID int64) ([]model.Order, error)
}
