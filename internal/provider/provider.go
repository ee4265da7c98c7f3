package provider

import (
	"context"
	"errors"
)

var (
	//署名検証に失敗した
	ErrBadSignature = errors.New("bad webhook signature")
)

// PaymentIntentのステータス（決済プロバイダ側の状態）。
type IntentStatus string

const (
	IntentStatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentStatusRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentStatusRequiresAction        IntentStatus = "requires_action"
	IntentStatusProcessing            IntentStatus = "processing"
	IntentStatusSucceeded             IntentStatus = "succeeded"
	IntentStatusCanceled              IntentStatus = "canceled"
)

// 金額を書き換えられる状態か。これ以外は作り直しになる。
func (s IntentStatus) Mutable() bool {
	return s == IntentStatusRequiresPaymentMethod || s == IntentStatusRequiresConfirmation
}

// プロバイダに送る希望状態。idとclient_secretはプロバイダの応答が正。
type IntentSpec struct {
	Amount             int64
	Currency           string
	Description        string
	ReceiptEmail       string
	PaymentMethodTypes []string
	Metadata           map[string]string
}

// プロバイダから返ってきたPaymentIntent。
type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	Amount       int64
	Currency     string
	Metadata     map[string]string
}

// Webhookイベントの種類。扱う種類は閉じた集合にして、
// それ以外はEventUnhandledに落として明示的にログする。
type EventKind int

const (
	EventUnhandled EventKind = iota
	EventPaymentSucceeded
	EventPaymentFailed
)

const (
	eventTypeSucceeded = "payment_intent.succeeded"
	eventTypeFailed    = "payment_intent.payment_failed"
)

func KindOf(eventType string) EventKind {
	switch eventType {
	case eventTypeSucceeded:
		return EventPaymentSucceeded
	case eventTypeFailed:
		return EventPaymentFailed
	default:
		return EventUnhandled
	}
}

// プロバイダから届いたイベント。
type Event struct {
	ID       string
	Type     string
	IntentID string
}

func (e Event) Kind() EventKind {
	return KindOf(e.Type)
}

// 決済プロバイダへの窓口。実装はinfra/stripeclient。
type Client interface {
	CreateIntent(ctx context.Context, spec IntentSpec) (Intent, error)
	UpdateIntent(ctx context.Context, intentID string, spec IntentSpec) (Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (Intent, error)

	//署名を検証してイベントを返す。失敗時はErrBadSignature
	VerifyWebhookSignature(payload []byte, signature string, secret string) (Event, error)

	//検証なしのパース。開発バイパス専用
	ParseEvent(payload []byte) (Event, error)
}
