package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"app/internal/domain/model"
	infraRepo "app/internal/infra/repository"
	"app/internal/notification"
	"app/internal/provider"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

// =====================
// provider スタブ（handler専用：署名検証の分岐だけ差し替える）
// =====================

type providerStub struct {
	event     provider.Event
	verifyErr error
}

func (p *providerStub) CreateIntent(_ context.Context, _ provider.IntentSpec) (provider.Intent, error) {
	panic("not used in webhook handler tests")
}

func (p *providerStub) UpdateIntent(_ context.Context, _ string, _ provider.IntentSpec) (provider.Intent, error) {
	panic("not used in webhook handler tests")
}

func (p *providerStub) RetrieveIntent(_ context.Context, _ string) (provider.Intent, error) {
	panic("not used in webhook handler tests")
}

func (p *providerStub) VerifyWebhookSignature(_ []byte, _ string, _ string) (provider.Event, error) {
	if p.verifyErr != nil {
		return provider.Event{}, p.verifyErr
	}
	return p.event, nil
}

func (p *providerStub) ParseEvent(_ []byte) (provider.Event, error) {
	return p.event, nil
}

type webhookAck struct {
	Received bool `json:"received"`
}

func newWebhookEcho(t *testing.T, stub *providerStub, secret string) (*echo.Echo, *infraRepo.OrderMemoryRepository) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orders := infraRepo.NewOrderMemoryRepository()
	assert.NoError(t, orders.Insert(context.Background(), model.Order{
		ID:               "order-1",
		UserID:           1,
		Status:           model.OrderStatusPending,
		Currency:         "eur",
		ProviderIntentID: "pi_1",
	}))

	uc := usecase.NewWebhookUsecase(
		orders,
		stub,
		notification.NewLogDispatcher(log),
		usecase.NewOrderLocks(),
		log,
		secret,
		false,
	)

	e := echo.New()
	NewWebhookHandler(uc).RegisterRoutes(e)
	return e, orders
}

func TestWebhookHandler_AcksAndCompletes(t *testing.T) {
	stub := &providerStub{
		event: provider.Event{ID: "evt_1", Type: "payment_intent.succeeded", IntentID: "pi_1"},
	}
	e, orders := newWebhookEcho(t, stub, "whsec_123")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var ack webhookAck
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.True(t, ack.Received)

	o, err := orders.FindByIntentID(context.Background(), "pi_1")
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, o.Status)
}

func TestWebhookHandler_BadSignature(t *testing.T) {
	stub := &providerStub{verifyErr: provider.ErrBadSignature}
	e, orders := newWebhookEcho(t, stub, "whsec_123")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "garbage")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid signature", body.Error)

	//署名が通らない限り台帳は動かない
	o, err := orders.FindByIntentID(context.Background(), "pi_1")
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, o.Status)
}

func TestWebhookHandler_MissingSignature(t *testing.T) {
	stub := &providerStub{
		event: provider.Event{ID: "evt_1", Type: "payment_intent.succeeded", IntentID: "pi_1"},
	}
	e, _ := newWebhookEcho(t, stub, "whsec_123")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookHandler_NoSecretSkipsVerification(t *testing.T) {
	stub := &providerStub{
		event: provider.Event{ID: "evt_1", Type: "payment_intent.succeeded", IntentID: "pi_1"},
	}
	e, orders := newWebhookEcho(t, stub, "")

	//シークレット未設定の環境では署名ヘッダーなしでも処理する
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	o, err := orders.FindByIntentID(context.Background(), "pi_1")
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, o.Status)
}
