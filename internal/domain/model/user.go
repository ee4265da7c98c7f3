package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// 認証・登録は外部サービスの管轄。ここでは課金に必要な属性だけ持つ。
type User struct {
	ID    int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Email string `gorm:"uniqueIndex;not null" json:"email"`

	//ISO-3166 alpha-2。未設定なら空文字
	Country string `gorm:"type:varchar(2)" json:"country,omitempty"`

	Role     Role `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	IsActive bool `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
