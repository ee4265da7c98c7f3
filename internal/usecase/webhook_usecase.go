package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"app/internal/domain/model"
	"app/internal/notification"
	"app/internal/provider"
	repo "app/internal/repository"
)

type WebhookUsecase struct {
	orders     repo.OrderRepository
	pc         provider.Client
	dispatcher notification.Dispatcher
	locks      *OrderLocks
	log        *slog.Logger
	secret     string
	devBypass  bool
}

// locksはPaymentUsecaseと同じインスタンスを渡すこと。
func NewWebhookUsecase(
	orders repo.OrderRepository,
	pc provider.Client,
	dispatcher notification.Dispatcher,
	locks *OrderLocks,
	log *slog.Logger,
	secret string,
	devBypass bool,
) *WebhookUsecase {
	return &WebhookUsecase{
		orders:     orders,
		pc:         pc,
		dispatcher: dispatcher,
		locks:      locks,
		log:        log,
		secret:     secret,
		devBypass:  devBypass,
	}
}

// Process はwebhookの受信本体。署名検証に通った後は、処理できない
// イベントでもerrorは返さない(プロバイダ側の再送を止めるため2xxで応答する)。
func (u *WebhookUsecase) Process(ctx context.Context, payload []byte, sigHeader string, devTestHeader bool) error {
	verify := u.secret != ""
	if verify && u.devBypass && devTestHeader {
		u.log.Warn("webhook signature verification bypassed via test header")
		verify = false
	}

	var (
		ev  provider.Event
		err error
	)
	if verify {
		if sigHeader == "" {
			return NewHTTPError(http.StatusBadRequest, "missing signature header")
		}
		ev, err = u.pc.VerifyWebhookSignature(payload, sigHeader, u.secret)
		if err != nil {
			u.log.Warn("webhook signature verification failed", slog.Any("error", err))
			return NewHTTPError(http.StatusBadRequest, "invalid signature")
		}
	} else {
		ev, err = u.pc.ParseEvent(payload)
		if err != nil {
			return NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
	}

	switch ev.Kind() {
	case provider.EventPaymentSucceeded:
		u.reconcile(ctx, ev, model.OrderStatusCompleted)
	case provider.EventPaymentFailed:
		u.reconcile(ctx, ev, model.OrderStatusFailed)
	default:
		u.log.Info("unhandled event type", slog.String("type", ev.Type))
	}
	return nil
}

func (u *WebhookUsecase) reconcile(ctx context.Context, ev provider.Event, target model.OrderStatus) {
	if ev.IntentID == "" {
		u.log.Warn("event without intent id", slog.String("event_id", ev.ID))
		return
	}

	found, err := u.orders.FindByIntentID(ctx, ev.IntentID)
	if errors.Is(err, repo.ErrNotFound) {
		//付け替え済みの旧intentか、こちらが知らない注文。ackして終わる
		u.log.Warn("no order for intent",
			slog.String("intent_id", ev.IntentID),
			slog.String("event_type", ev.Type),
		)
		return
	}
	if err != nil {
		u.log.Error("order lookup failed",
			slog.String("intent_id", ev.IntentID),
			slog.Any("error", err),
		)
		return
	}

	unlock := u.locks.Lock(found.ID)
	defer unlock()

	order, err := u.orders.FindByID(ctx, found.ID)
	if err != nil {
		u.log.Error("order re-fetch failed",
			slog.String("order_id", found.ID),
			slog.Any("error", err),
		)
		return
	}

	//再送イベント。状態は既に一致しているので通知も送らない
	if order.Status == target {
		u.log.Info("duplicate event ignored",
			slog.String("order_id", order.ID),
			slog.String("status", string(target)),
		)
		return
	}

	if err := u.orders.UpdateStatus(ctx, order.ID, target); err != nil {
		if errors.Is(err, repo.ErrInvalidTransition) {
			u.log.Warn("event rejected by status machine",
				slog.String("order_id", order.ID),
				slog.String("current", string(order.Status)),
				slog.String("target", string(target)),
			)
			return
		}
		u.log.Error("status update failed",
			slog.String("order_id", order.ID),
			slog.Any("error", err),
		)
		return
	}

	if err := u.dispatcher.NotifyOrderStatus(ctx, order.UserID, order.ID, target); err != nil {
		//通知失敗で台帳確定を巻き戻さない
		u.log.Error("notification dispatch failed",
			slog.String("order_id", order.ID),
			slog.Any("error", err),
		)
	}
}
