package notification

import (
	"context"
	"log/slog"

	"app/internal/domain/model"
)

// 注文ステータス変更の通知窓口。push/メールの実体は外部サービス。
// 呼び出し側は失敗をログするだけで、リクエストを失敗させない。
type Dispatcher interface {
	NotifyOrderStatus(ctx context.Context, userID int64, orderID string, status model.OrderStatus) error
	EmailOrderStatus(ctx context.Context, userID int64, orderID string, status model.OrderStatus) error
}

// 配信基盤が未接続の環境用。ログに書くだけ。
type LogDispatcher struct {
	log *slog.Logger
}

func NewLogDispatcher(log *slog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) NotifyOrderStatus(_ context.Context, userID int64, orderID string, status model.OrderStatus) error {
	d.log.Info("order status notification",
		slog.Int64("user_id", userID),
		slog.String("order_id", orderID),
		slog.String("status", string(status)),
	)
	return nil
}

func (d *LogDispatcher) EmailOrderStatus(_ context.Context, userID int64, orderID string, status model.OrderStatus) error {
	d.log.Info("order status email",
		slog.Int64("user_id", userID),
		slog.String("order_id", orderID),
		slog.String("status", string(status)),
	)
	return nil
}
