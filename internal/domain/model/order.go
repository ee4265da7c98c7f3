package model

import (
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// 入力値として妥当なステータスか。大文字小文字は区別しない
func ParseOrderStatus(s string) (OrderStatus, bool) {
	v := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled:
		return v, true
	}
	return "", false
}

// 終端ステータスかどうか
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed || s == OrderStatusCancelled
}

// 許可される遷移は pending -> completed / failed / cancelled のみ。
// 終端からはどこにも戻れない。
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderStatusPending && next.IsTerminal()
}

type Order struct {
	ID        string `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID    int64  `gorm:"not null;index" json:"user_id"`
	ProductID int64  `gorm:"not null" json:"product_id"`

	Status OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	//Amountは税抜きの基本金額（最小通貨単位）。
	//amount + tax_amountが現intentの請求額と常に一致する
	Amount    int64  `gorm:"not null" json:"amount"`
	TaxAmount int64  `gorm:"not null" json:"tax_amount"`
	Quantity  int64  `gorm:"not null;default:1" json:"quantity"`
	Currency  string `gorm:"type:varchar(3);not null" json:"currency"`

	CouponCode     string `gorm:"type:varchar(64)" json:"coupon_code,omitempty"`
	TrackingNumber string `gorm:"type:varchar(128)" json:"tracking_number,omitempty"`

	//現在有効なPaymentIntentのID。非終端の注文につき1件だけ
	ProviderIntentID string `gorm:"type:varchar(128);not null;uniqueIndex" json:"provider_intent_id"`

	//数量変更でintentを作り直した場合、元のIDを監査用に残す
	PreviousIntentID string `gorm:"type:varchar(128)" json:"previous_intent_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
