package repository

import (
	"context"

	"app/internal/domain/model"
)

// ユーザー本体は外部管理。決済時の存在チェックと国の解決に使う。
type UserRepository interface {
	FindByID(ctx context.Context, userID int64) (model.User, error)
}
