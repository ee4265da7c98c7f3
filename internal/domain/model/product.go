package model

import "time"

// カタログ本体は外部同期。決済前の存在チェックに使う最小形。
type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	//priceはUSDセント、priceEURはEURセント
	Price    int64 `gorm:"not null" json:"price"`
	PriceEUR int64 `gorm:"not null" json:"price_eur"`

	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
