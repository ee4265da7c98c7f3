package usecase

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"app/internal/domain/model"
	infraRepo "app/internal/infra/repository"
	"app/internal/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// 通知の回数を数えるスパイ
type dispatcherSpy struct {
	mu     sync.Mutex
	notify []model.OrderStatus
	emails []model.OrderStatus
}

func (d *dispatcherSpy) NotifyOrderStatus(_ context.Context, _ int64, _ string, status model.OrderStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notify = append(d.notify, status)
	return nil
}

func (d *dispatcherSpy) EmailOrderStatus(_ context.Context, _ int64, _ string, status model.OrderStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emails = append(d.emails, status)
	return nil
}

func (d *dispatcherSpy) notifyCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.notify)
}

type webhookFixture struct {
	uc     *WebhookUsecase
	orders *infraRepo.OrderMemoryRepository
	pc     *ProviderClientMock
	disp   *dispatcherSpy
}

func newWebhookFixture(secret string, devBypass bool) *webhookFixture {
	f := &webhookFixture{
		orders: infraRepo.NewOrderMemoryRepository(),
		pc:     &ProviderClientMock{},
		disp:   &dispatcherSpy{},
	}
	f.uc = NewWebhookUsecase(f.orders, f.pc, f.disp, NewOrderLocks(), testLogger(), secret, devBypass)
	return f
}

func (f *webhookFixture) seedPending(t *testing.T, intentID string) model.Order {
	t.Helper()
	o := model.Order{
		ID:               "order-1",
		UserID:           1,
		ProductID:        10,
		Status:           model.OrderStatusPending,
		Amount:           10000,
		TaxAmount:        1900,
		Currency:         "eur",
		ProviderIntentID: intentID,
	}
	assert.NoError(t, f.orders.Insert(context.Background(), o))
	return o
}

func TestWebhook_SucceededCompletesOrder(t *testing.T) {
	f := newWebhookFixture("", false)
	f.seedPending(t, "pi_1")

	f.pc.On("ParseEvent", mock.Anything).
		Return(provider.Event{ID: "evt_1", Type: "payment_intent.succeeded", IntentID: "pi_1"}, nil)

	err := f.uc.Process(context.Background(), []byte(`{}`), "", false)
	assert.NoError(t, err)

	o, err := f.orders.FindByIntentID(context.Background(), "pi_1")
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, o.Status)
	assert.Equal(t, 1, f.disp.notifyCount())
}

func TestWebhook_DuplicateEventNotifiesOnce(t *testing.T) {
	f := newWebhookFixture("", false)
	f.seedPending(t, "pi_1")

	f.pc.On("ParseEvent", mock.Anything).
		Return(provider.Event{ID: "evt_1", Type: "payment_intent.succeeded", IntentID: "pi_1"}, nil)

	//同じイベントの再送。2回目は状態が一致しているので何もしない
	assert.NoError(t, f.uc.Process(context.Background(), []byte(`{}`), "", false))
	assert.NoError(t, f.uc.Process(context.Background(), []byte(`{}`), "", false))

	o, _ := f.orders.FindByIntentID(context.Background(), "pi_1")
	assert.Equal(t, model.OrderStatusCompleted, o.Status)
	assert.Equal(t, 1, f.disp.notifyCount())
}

func TestWebhook_FailedAfterCompletedIsRejected(t *testing.T) {
	f := newWebhookFixture("", false)
	f.seedPending(t, "pi_1")

	f.pc.On("ParseEvent", []byte(`ok`)).
		Return(provider.Event{ID: "evt_1", Type: "payment_intent.succeeded", IntentID: "pi_1"}, nil)
	f.pc.On("ParseEvent", []byte(`late`)).
		Return(provider.Event{ID: "evt_2", Type: "payment_intent.payment_failed", IntentID: "pi_1"}, nil)

	assert.NoError(t, f.uc.Process(context.Background(), []byte(`ok`), "", false))
	//遅れて届いたfailedは終端状態を壊さない。ackはする
	assert.NoError(t, f.uc.Process(context.Background(), []byte(`late`), "", false))

	o, _ := f.orders.FindByIntentID(context.Background(), "pi_1")
	assert.Equal(t, model.OrderStatusCompleted, o.Status)
	assert.Equal(t, 1, f.disp.notifyCount())
}

func TestWebhook_FailedMarksOrderFailed(t *testing.T) {
	f := newWebhookFixture("", false)
	f.seedPending(t, "pi_1")

	f.pc.On("ParseEvent", mock.Anything).
		Return(provider.Event{ID: "evt_1", Type: "payment_intent.payment_failed", IntentID: "pi_1"}, nil)

	assert.NoError(t, f.uc.Process(context.Background(), []byte(`{}`), "", false))

	o, _ := f.orders.FindByIntentID(context.Background(), "pi_1")
	assert.Equal(t, model.OrderStatusFailed, o.Status)
	assert.Equal(t, []model.OrderStatus{model.OrderStatusFailed}, f.disp.notify)
}

func TestWebhook_UnhandledEventIsAcked(t *testing.T) {
	f := newWebhookFixture("", false)
	f.seedPending(t, "pi_1")

	f.pc.On("ParseEvent", mock.Anything).
		Return(provider.Event{ID: "evt_1", Type: "charge.refunded", IntentID: "pi_1"}, nil)

	assert.NoError(t, f.uc.Process(context.Background(), []byte(`{}`), "", false))

	o, _ := f.orders.FindByIntentID(context.Background(), "pi_1")
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.Equal(t, 0, f.disp.notifyCount())
}

func TestWebhook_UnknownIntentIsAcked(t *testing.T) {
	f := newWebhookFixture("", false)

	f.pc.On("ParseEvent", mock.Anything).
		Return(provider.Event{ID: "evt_1", Type: "payment_intent.succeeded", IntentID: "pi_ghost"}, nil)

	//台帳に無い注文でもerrorにしない（再送ループを避ける）
	assert.NoError(t, f.uc.Process(context.Background(), []byte(`{}`), "", false))
	assert.Equal(t, 0, f.disp.notifyCount())
}

func TestWebhook_SignatureRequired(t *testing.T) {
	f := newWebhookFixture("whsec_123", false)
	f.seedPending(t, "pi_1")

	//署名ヘッダーなしは400
	err := f.uc.Process(context.Background(), []byte(`{}`), "", false)
	assertHTTPError(t, err, http.StatusBadRequest)

	//検証失敗も400。台帳は触らない
	f.pc.On("VerifyWebhookSignature", mock.Anything, "bad", "whsec_123").
		Return(provider.Event{}, provider.ErrBadSignature)

	err = f.uc.Process(context.Background(), []byte(`{}`), "bad", false)
	assertHTTPError(t, err, http.StatusBadRequest)

	o, _ := f.orders.FindByIntentID(context.Background(), "pi_1")
	assert.Equal(t, model.OrderStatusPending, o.Status)
	f.pc.AssertNotCalled(t, "ParseEvent", mock.Anything)
}

func TestWebhook_SignatureVerified(t *testing.T) {
	f := newWebhookFixture("whsec_123", false)
	f.seedPending(t, "pi_1")

	f.pc.On("VerifyWebhookSignature", mock.Anything, "sig", "whsec_123").
		Return(provider.Event{ID: "evt_1", Type: "payment_intent.succeeded", IntentID: "pi_1"}, nil)

	assert.NoError(t, f.uc.Process(context.Background(), []byte(`{}`), "sig", false))

	o, _ := f.orders.FindByIntentID(context.Background(), "pi_1")
	assert.Equal(t, model.OrderStatusCompleted, o.Status)
}

func TestWebhook_DevBypassSkipsVerification(t *testing.T) {
	f := newWebhookFixture("whsec_123", true)
	f.seedPending(t, "pi_1")

	f.pc.On("ParseEvent", mock.Anything).
		Return(provider.Event{ID: "evt_1", Type: "payment_intent.succeeded", IntentID: "pi_1"}, nil)

	//テストヘッダー付きなら署名なしで通す（開発専用）
	assert.NoError(t, f.uc.Process(context.Background(), []byte(`{}`), "", true))

	o, _ := f.orders.FindByIntentID(context.Background(), "pi_1")
	assert.Equal(t, model.OrderStatusCompleted, o.Status)
	f.pc.AssertNotCalled(t, "VerifyWebhookSignature", mock.Anything, mock.Anything, mock.Anything)
}
