package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 決済intentの作成・更新API
type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

// DI
func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/create-payment-intent", h.create)
	e.POST("/update-payment-intent", h.update)
}

type CreatePaymentIntentRequest struct {
	Amount    int64  `json:"amount"`
	UserID    int64  `json:"userId"`
	ProductID int64  `json:"productId"`
	Currency  string `json:"currency"`
	Quantity  int64  `json:"quantity"`

	Country      string `json:"country"`
	ForceCountry bool   `json:"force_country"`
	CouponCode   string `json:"couponCode"`
}

type UpdatePaymentIntentRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
	Quantity        int64  `json:"quantity"`
	UserID          int64  `json:"userId"`

	//受けるだけで使わない。単価と税率はintentのmetadataが正
	ProductID int64           `json:"productId"`
	NewItems  json.RawMessage `json:"newItems"`
}

func (h *PaymentHandler) create(c echo.Context) error {
	var req CreatePaymentIntentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	//queryでも国の指定を受ける（bodyが優先）
	forceCountry := req.ForceCountry || c.QueryParam("force_country") == "true"

	out, err := h.uc.Create(c.Request().Context(), usecase.CreateIntentInput{
		Amount:       req.Amount,
		UserID:       req.UserID,
		ProductID:    req.ProductID,
		Currency:     req.Currency,
		Quantity:     req.Quantity,
		Country:      req.Country,
		QueryCountry: c.QueryParam("country"),
		ForceCountry: forceCountry,
		CouponCode:   req.CouponCode,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) update(c echo.Context) error {
	var req UpdatePaymentIntentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Update(c.Request().Context(), usecase.UpdateIntentInput{
		PaymentIntentID: req.PaymentIntentID,
		Quantity:        req.Quantity,
		UserID:          req.UserID,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
