package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/notification"
	repo "app/internal/repository"
)

type AdminOrderUsecase struct {
	orders     repo.OrderRepository
	auditRepo  repo.AuditLogRepository
	dispatcher notification.Dispatcher
	locks      *OrderLocks
	log        *slog.Logger
}

func NewAdminOrderUsecase(
	orders repo.OrderRepository,
	auditRepo repo.AuditLogRepository,
	dispatcher notification.Dispatcher,
	locks *OrderLocks,
	log *slog.Logger,
) *AdminOrderUsecase {
	return &AdminOrderUsecase{
		orders:     orders,
		auditRepo:  auditRepo,
		dispatcher: dispatcher,
		locks:      locks,
		log:        log,
	}
}

type AdminUpdateOrderStatusInput struct {
	Status           string
	SendNotification bool
	SendEmail        bool
}

// ステータス更新（webhookを経由しない手動補正用）
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID string, in AdminUpdateOrderStatusInput) (model.Order, error) {
	if actorAdminUserID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(orderID) == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus, ok := model.ParseOrderStatus(in.Status)
	if !ok {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	unlock := u.locks.Lock(orderID)
	defer unlock()

	// 注文取得
	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// すでに同じなら何もしない（200）
	if o.Status == newStatus {
		return o, nil
	}
	// 終端ガード
	if !o.Status.CanTransitionTo(newStatus) {
		return model.Order{}, NewHTTPError(http.StatusConflict, "invalid status transition")
	}

	beforeStatus := string(o.Status)
	if err := u.orders.UpdateStatus(ctx, orderID, newStatus); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		if errors.Is(err, repo.ErrInvalidTransition) {
			return model.Order{}, NewHTTPError(http.StatusConflict, "invalid status transition")
		}
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// ★監査ログ（UPDATE_ORDER_STATUS）
	beforeJSON := `{"status":"` + beforeStatus + `"}`
	afterJSON := `{"status":"` + string(newStatus) + `"}`
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorAdminUserID,
		Action:       model.AuditActionUpdateOrderStatus,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   beforeJSON,
		AfterJSON:    afterJSON,
		CreatedAt:    time.Now(),
	}); err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	o.Status = newStatus

	//通知は任意。失敗しても台帳の更新は確定済みなのでログだけ残す
	if in.SendNotification {
		if err := u.dispatcher.NotifyOrderStatus(ctx, o.UserID, o.ID, newStatus); err != nil {
			u.log.Error("admin notification dispatch failed",
				slog.String("order_id", o.ID),
				slog.Any("error", err),
			)
		}
	}
	if in.SendEmail {
		if err := u.dispatcher.EmailOrderStatus(ctx, o.UserID, o.ID, newStatus); err != nil {
			u.log.Error("admin email dispatch failed",
				slog.String("order_id", o.ID),
				slog.Any("error", err),
			)
		}
	}

	return o, nil
}

// 注文の操作履歴（誰がいつ状態を変えたか）
func (u *AdminOrderUsecase) ListAuditLogs(ctx context.Context, actorAdminUserID int64, orderID string, limit int, offset int) ([]model.AuditLog, error) {
	if actorAdminUserID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(orderID) == "" {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	resourceType := model.AuditResourceOrder
	logs, err := u.auditRepo.List(ctx, repo.AuditLogFilter{
		ResourceType: &resourceType,
		ResourceID:   &orderID,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return logs, nil
}

type AdminUpdateTrackingInput struct {
	TrackingNumber string
}

// 追跡番号の登録・更新
func (u *AdminOrderUsecase) UpdateTracking(ctx context.Context, actorAdminUserID int64, orderID string, in AdminUpdateTrackingInput) (model.Order, error) {
	if actorAdminUserID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(orderID) == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	tracking := strings.TrimSpace(in.TrackingNumber)
	if tracking == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "tracking number is required")
	}

	unlock := u.locks.Lock(orderID)
	defer unlock()

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if o.TrackingNumber == tracking {
		return o, nil
	}

	before := o.TrackingNumber
	if err := u.orders.UpdateTracking(ctx, orderID, tracking); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// ★監査ログ（UPDATE_TRACKING）
	beforeJSON := `{"tracking_number":"` + before + `"}`
	afterJSON := `{"tracking_number":"` + tracking + `"}`
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorAdminUserID,
		Action:       model.AuditActionUpdateTracking,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   beforeJSON,
		AfterJSON:    afterJSON,
		CreatedAt:    time.Now(),
	}); err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	o.TrackingNumber = tracking
	return o, nil
}
