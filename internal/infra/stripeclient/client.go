package stripeclient

import (
	"context"
	"encoding/json"
	"fmt"

	"app/internal/provider"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// provider.ClientのStripe実装。
type Client struct {
	api *client.API
}

func New(secretKey string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{api: api}
}

func (c *Client) CreateIntent(ctx context.Context, spec provider.IntentSpec) (provider.Intent, error) {
	params := intentParams(ctx, spec)
	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return provider.Intent{}, fmt.Errorf("stripe create intent: %w", err)
	}
	return toIntent(pi), nil
}

func (c *Client) UpdateIntent(ctx context.Context, intentID string, spec provider.IntentSpec) (provider.Intent, error) {
	params := intentParams(ctx, spec)
	//更新では通貨は変えられない
	params.Currency = nil
	params.PaymentMethodTypes = nil
	pi, err := c.api.PaymentIntents.Update(intentID, params)
	if err != nil {
		return provider.Intent{}, fmt.Errorf("stripe update intent %s: %w", intentID, err)
	}
	return toIntent(pi), nil
}

func (c *Client) RetrieveIntent(ctx context.Context, intentID string) (provider.Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := c.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return provider.Intent{}, fmt.Errorf("stripe retrieve intent %s: %w", intentID, err)
	}
	return toIntent(pi), nil
}

func (c *Client) VerifyWebhookSignature(payload []byte, signature string, secret string) (provider.Event, error) {
	ev, err := webhook.ConstructEvent(payload, signature, secret)
	if err != nil {
		return provider.Event{}, provider.ErrBadSignature
	}
	var raw json.RawMessage
	if ev.Data != nil {
		raw = ev.Data.Raw
	}
	return toEvent(ev.ID, string(ev.Type), raw), nil
}

func (c *Client) ParseEvent(payload []byte) (provider.Event, error) {
	var ev stripe.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return provider.Event{}, fmt.Errorf("parse webhook event: %w", err)
	}
	var raw json.RawMessage
	if ev.Data != nil {
		raw = ev.Data.Raw
	}
	return toEvent(ev.ID, string(ev.Type), raw), nil
}

func intentParams(ctx context.Context, spec provider.IntentSpec) *stripe.PaymentIntentParams {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(spec.Amount),
		Currency: stripe.String(spec.Currency),
	}
	params.Context = ctx
	if spec.Description != "" {
		params.Description = stripe.String(spec.Description)
	}
	if spec.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(spec.ReceiptEmail)
	}
	if len(spec.PaymentMethodTypes) > 0 {
		params.PaymentMethodTypes = stripe.StringSlice(spec.PaymentMethodTypes)
	}
	for k, v := range spec.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}

func toIntent(pi *stripe.PaymentIntent) provider.Intent {
	return provider.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       provider.IntentStatus(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

func toEvent(id string, eventType string, raw json.RawMessage) provider.Event {
	//data.objectからintent idだけ取り出す
	var obj struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &obj)

	return provider.Event{
		ID:       id,
		Type:     eventType,
		IntentID: obj.ID,
	}
}
