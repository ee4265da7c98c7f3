package handler

import (
	"io"
	"net/http"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// プロバイダからのwebhook受信口
type WebhookHandler struct {
	uc *usecase.WebhookUsecase
}

func NewWebhookHandler(uc *usecase.WebhookUsecase) *WebhookHandler {
	return &WebhookHandler{uc: uc}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhook", h.receive)
}

type WebhookAckResponse struct {
	Received bool `json:"received"`
}

func (h *WebhookHandler) receive(c echo.Context) error {
	//署名検証は生のbodyに対して行うので、bindせずそのまま読む
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable body"})
	}

	sig := c.Request().Header.Get("Stripe-Signature")
	devTest := c.Request().Header.Get("X-Stripe-Test") == "true"

	if err := h.uc.Process(c.Request().Context(), payload, sig, devTest); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, WebhookAckResponse{Received: true})
}
