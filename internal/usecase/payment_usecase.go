package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"app/internal/domain/model"
	"app/internal/provider"
	repo "app/internal/repository"
	"app/internal/tax"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 注文ID生成（mainでuuidを注入）
type IDGenerator interface {
	NewID() string
}

// intentのmetadataに書くキー。後から再計算せずに
// 見積りを復元できるだけの情報を残す。
const (
	mdUserID         = "user_id"
	mdProductID      = "product_id"
	mdQuantity       = "quantity"
	mdCurrency       = "currency"
	mdCountry        = "country"
	mdCountrySource  = "country_source"
	mdCountryCode    = "country_code"
	mdCouponCode     = "coupon_code"
	mdBaseAmount     = "base_amount"
	mdTaxAmount      = "tax_amount"
	mdTaxRate        = "tax_rate"
	mdTaxLabel       = "tax_label"
	mdUnitPrice      = "unit_price"
	mdTotalAmount    = "total_amount"
	mdPreviousIntent = "previous_payment_intent_id"
)

type PaymentUsecase struct {
	orders   repo.OrderRepository
	users    repo.UserRepository
	products repo.ProductRepository
	pc       provider.Client
	idGen    IDGenerator
	locks    *OrderLocks
	log      *slog.Logger
}

func NewPaymentUsecase(
	orders repo.OrderRepository,
	users repo.UserRepository,
	products repo.ProductRepository,
	pc provider.Client,
	idGen IDGenerator,
	locks *OrderLocks,
	log *slog.Logger,
) *PaymentUsecase {
	return &PaymentUsecase{
		orders:   orders,
		users:    users,
		products: products,
		pc:       pc,
		idGen:    idGen,
		locks:    locks,
		log:      log,
	}
}

type CreateIntentInput struct {
	Amount    int64
	UserID    int64
	ProductID int64
	Currency  string
	Quantity  int64

	//国の解決に使う入力。bodyとquery両方を受ける
	Country      string
	QueryCountry string
	ForceCountry bool

	CouponCode string
}

type TaxInfo struct {
	Amount  int64   `json:"amount"`
	Rate    float64 `json:"rate"`
	Label   string  `json:"label"`
	Display string  `json:"display"`
}

type CreateIntentOutput struct {
	ID           string  `json:"id"`
	ClientSecret string  `json:"clientSecret"`
	OrderID      string  `json:"orderId"`
	Amount       int64   `json:"amount"`
	TaxAmount    int64   `json:"taxAmount"`
	TotalWithTax int64   `json:"totalWithTax"`
	TaxRate      float64 `json:"taxRate"`
	Quantity     int64   `json:"quantity"`
	UnitPrice    int64   `json:"unitPrice"`
	Currency     string  `json:"currency"`
	Tax          TaxInfo `json:"tax"`
}

func (u *PaymentUsecase) Create(ctx context.Context, in CreateIntentInput) (CreateIntentOutput, error) {
	//金額は常に最小通貨単位の正の整数。推測変換はしない
	if in.Amount <= 0 {
		return CreateIntentOutput{}, NewHTTPError(http.StatusBadRequest, "amount must be a positive integer in minor units")
	}
	if in.UserID <= 0 || in.ProductID <= 0 {
		return CreateIntentOutput{}, NewHTTPError(http.StatusBadRequest, "amount, userId, and productId are required")
	}

	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if currency != "usd" && currency != "eur" {
		return CreateIntentOutput{}, NewHTTPError(http.StatusBadRequest, "currency must be either 'usd' or 'eur'")
	}

	quantity := in.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return CreateIntentOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be a positive number")
	}

	user, err := u.users.FindByID(ctx, in.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return CreateIntentOutput{}, NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return CreateIntentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if _, err := u.products.FindByID(ctx, in.ProductID); errors.Is(err, repo.ErrNotFound) {
		return CreateIntentOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
	} else if err != nil {
		return CreateIntentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	country, countrySource := resolveCountry(in, user)
	quote := tax.QuoteFor(country)

	unitPrice := int64(math.Round(float64(in.Amount) / float64(quantity)))
	taxAmount := tax.AmountFor(in.Amount, quote.Rate)
	total := in.Amount + taxAmount

	md := map[string]string{
		mdUserID:        strconv.FormatInt(in.UserID, 10),
		mdProductID:     strconv.FormatInt(in.ProductID, 10),
		mdQuantity:      strconv.FormatInt(quantity, 10),
		mdCurrency:      currency,
		mdCountry:       quote.CountryCode,
		mdCountrySource: countrySource,
		mdCountryCode:   quote.CountryCode,
		mdBaseAmount:    strconv.FormatInt(in.Amount, 10),
		mdTaxAmount:     strconv.FormatInt(taxAmount, 10),
		mdTaxRate:       formatRate(quote.Rate),
		mdTaxLabel:      quote.Label,
		mdUnitPrice:     strconv.FormatInt(unitPrice, 10),
	}
	if in.CouponCode != "" {
		md[mdCouponCode] = in.CouponCode
	}

	methods := []string{"card"}
	if currency == "eur" {
		methods = append(methods, "ideal", "sepa_debit")
	}

	intent, err := u.pc.CreateIntent(ctx, provider.IntentSpec{
		Amount:             total,
		Currency:           currency,
		Description:        describeOrder(quote.Label, quote.Rate, taxAmount, currency),
		ReceiptEmail:       user.Email,
		PaymentMethodTypes: methods,
		Metadata:           md,
	})
	if err != nil {
		u.log.Error("create payment intent failed",
			slog.Int64("user_id", in.UserID),
			slog.String("currency", currency),
			slog.Any("error", err),
		)
		return CreateIntentOutput{}, NewHTTPError(http.StatusInternalServerError, "error creating payment intent")
	}

	order := model.Order{
		ID:               u.idGen.NewID(),
		UserID:           in.UserID,
		ProductID:        in.ProductID,
		Status:           model.OrderStatusPending,
		Amount:           in.Amount,
		TaxAmount:        taxAmount,
		Quantity:         quantity,
		Currency:         currency,
		CouponCode:       in.CouponCode,
		ProviderIntentID: intent.ID,
	}
	if err := u.orders.Insert(ctx, order); err != nil {
		//intent idが請求内容の正。台帳はここから復旧できるようにログに残す
		u.log.Error("order insert failed after intent creation",
			slog.String("intent_id", intent.ID),
			slog.Int64("user_id", in.UserID),
			slog.Any("error", err),
		)
		return CreateIntentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return CreateIntentOutput{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		OrderID:      order.ID,
		Amount:       in.Amount,
		TaxAmount:    taxAmount,
		TotalWithTax: total,
		TaxRate:      quote.Rate,
		Quantity:     quantity,
		UnitPrice:    unitPrice,
		Currency:     currency,
		Tax: TaxInfo{
			Amount:  taxAmount,
			Rate:    quote.Rate,
			Label:   quote.Label,
			Display: quote.Label,
		},
	}, nil
}

type UpdateIntentInput struct {
	PaymentIntentID string
	Quantity        int64
	UserID          int64
}

type UpdateIntentOutput struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	TaxAmount    int64  `json:"taxAmount"`
	TotalAmount  int64  `json:"totalAmount"`
	Quantity     int64  `json:"quantity"`
}

func (u *PaymentUsecase) Update(ctx context.Context, in UpdateIntentInput) (UpdateIntentOutput, error) {
	if in.PaymentIntentID == "" || in.UserID <= 0 {
		return UpdateIntentOutput{}, NewHTTPError(http.StatusBadRequest, "payment intent ID, quantity, and user ID are required")
	}
	if in.Quantity < 1 || in.Quantity > 10 {
		return UpdateIntentOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be between 1 and 10")
	}

	found, err := u.orders.FindByIntentID(ctx, in.PaymentIntentID)
	if errors.Is(err, repo.ErrNotFound) {
		return UpdateIntentOutput{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return UpdateIntentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if found.UserID != in.UserID {
		return UpdateIntentOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	//ここからwebhookと競合しうるので注文単位で直列化する
	unlock := u.locks.Lock(found.ID)
	defer unlock()

	order, err := u.orders.FindByID(ctx, found.ID)
	if err != nil {
		return UpdateIntentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	intent, err := u.pc.RetrieveIntent(ctx, order.ProviderIntentID)
	if err != nil {
		u.log.Error("retrieve payment intent failed",
			slog.String("intent_id", order.ProviderIntentID),
			slog.Any("error", err),
		)
		return UpdateIntentOutput{}, NewHTTPError(http.StatusInternalServerError, "error updating payment intent")
	}

	//単価は作成時にmetadataへ固定したものを使う。カタログは見ない
	unitPrice := recoverUnitPrice(intent.Metadata, order)
	rate := recoverTaxRate(intent.Metadata)

	newBase := unitPrice * in.Quantity
	newTax := tax.AmountFor(newBase, rate)
	newTotal := newBase + newTax

	md := make(map[string]string, len(intent.Metadata)+4)
	for k, v := range intent.Metadata {
		md[k] = v
	}
	md[mdQuantity] = strconv.FormatInt(in.Quantity, 10)
	md[mdBaseAmount] = strconv.FormatInt(newBase, 10)
	md[mdTaxAmount] = strconv.FormatInt(newTax, 10)
	md[mdTotalAmount] = strconv.FormatInt(newTotal, 10)

	if intent.Status.Mutable() {
		updated, err := u.pc.UpdateIntent(ctx, order.ProviderIntentID, provider.IntentSpec{
			Amount:   newTotal,
			Metadata: md,
		})
		if err == nil {
			//台帳もintentと同じ金額に揃える
			if err := u.orders.UpdateAmounts(ctx, order.ID, newBase, newTax, in.Quantity); err != nil {
				u.log.Error("order amounts update failed after intent update",
					slog.String("order_id", order.ID),
					slog.String("intent_id", updated.ID),
					slog.Any("error", err),
				)
				return UpdateIntentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
			}
			return UpdateIntentOutput{
				ID:           updated.ID,
				ClientSecret: updated.ClientSecret,
				Amount:       newBase,
				TaxAmount:    newTax,
				TotalAmount:  newTotal,
				Quantity:     in.Quantity,
			}, nil
		}
		u.log.Warn("in-place intent update rejected, creating replacement",
			slog.String("intent_id", order.ProviderIntentID),
			slog.Any("error", err),
		)
	}

	return u.replaceIntent(ctx, order, md, newBase, newTax, newTotal, in.Quantity)
}

// intentを作り直して台帳を付け替える。旧IDは監査用に残す。
func (u *PaymentUsecase) replaceIntent(
	ctx context.Context,
	order model.Order,
	md map[string]string,
	newBase, newTax, newTotal, quantity int64,
) (UpdateIntentOutput, error) {
	previousID := order.ProviderIntentID
	md[mdPreviousIntent] = previousID

	created, err := u.pc.CreateIntent(ctx, provider.IntentSpec{
		Amount:   newTotal,
		Currency: order.Currency,
		Metadata: md,
	})
	if err != nil {
		u.log.Error("replacement intent creation failed",
			slog.String("previous_intent_id", previousID),
			slog.Any("error", err),
		)
		return UpdateIntentOutput{}, NewHTTPError(http.StatusInternalServerError, "error updating payment intent")
	}

	if err := u.orders.RelinkIntent(ctx, order.ID, repo.IntentRelink{
		NewIntentID:      created.ID,
		PreviousIntentID: previousID,
		Amount:           newBase,
		TaxAmount:        newTax,
		Quantity:         quantity,
	}); err != nil {
		u.log.Error("order relink failed after replacement",
			slog.String("order_id", order.ID),
			slog.String("new_intent_id", created.ID),
			slog.String("previous_intent_id", previousID),
			slog.Any("error", err),
		)
		return UpdateIntentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return UpdateIntentOutput{
		ID:           created.ID,
		ClientSecret: created.ClientSecret,
		Amount:       newBase,
		TaxAmount:    newTax,
		TotalAmount:  newTotal,
		Quantity:     quantity,
	}, nil
}

// 注文履歴（ユーザー単位）。
func (u *PaymentUsecase) ListOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	orders, err := u.orders.ListByUserID(ctx, userID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return orders, nil
}

// 国の優先順位: force指定 > ユーザープロフィール > body > query > unknown
func resolveCountry(in CreateIntentInput, user model.User) (string, string) {
	if in.ForceCountry {
		if in.Country != "" {
			return in.Country, "force_country"
		}
		return in.QueryCountry, "force_country"
	}
	if user.Country != "" {
		return user.Country, "user_profile"
	}
	if in.Country != "" {
		return in.Country, "request_body"
	}
	if in.QueryCountry != "" {
		return in.QueryCountry, "query_param"
	}
	return "", "unknown"
}

// 税率を"19.0%"形式の文字列にする。更新時にこの値を正として読み戻す。
func formatRate(rate float64) string {
	return strconv.FormatFloat(rate*100, 'f', 1, 64) + "%"
}

func recoverTaxRate(md map[string]string) float64 {
	s := strings.TrimSuffix(md[mdTaxRate], "%")
	if s == "" {
		return 0
	}
	pct, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return pct / 100
}

func recoverUnitPrice(md map[string]string, order model.Order) int64 {
	if v, err := strconv.ParseInt(md[mdUnitPrice], 10, 64); err == nil && v > 0 {
		return v
	}
	//旧形式: base_amount / quantity から復元
	base, errB := strconv.ParseInt(md[mdBaseAmount], 10, 64)
	qty, errQ := strconv.ParseInt(md[mdQuantity], 10, 64)
	if errB == nil && errQ == nil && qty > 0 {
		return int64(math.Round(float64(base) / float64(qty)))
	}
	//metadataが無ければ台帳の金額と数量から出す
	orderQty := order.Quantity
	if orderQty < 1 {
		orderQty = 1
	}
	return int64(math.Round(float64(order.Amount) / float64(orderQty)))
}

func describeOrder(label string, rate float64, taxAmount int64, currency string) string {
	if rate > 0 {
		return fmt.Sprintf("Order with %s (%d %s)", label, taxAmount, currency)
	}
	return "Order without VAT"
}
