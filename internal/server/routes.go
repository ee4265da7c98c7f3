package server

import (
	"net/http"

	"app/internal/config"
	"app/internal/handler"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// New はルート登録済みのechoを組み立てる。
func New(
	cfg config.Config,
	paymentH *handler.PaymentHandler,
	webhookH *handler.WebhookHandler,
	orderH *handler.OrderHandler,
	adminH *handler.AdminOrderHandler,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	paymentH.RegisterRoutes(e)
	webhookH.RegisterRoutes(e)
	orderH.RegisterRoutes(e, cfg)
	adminH.RegisterRoutes(e, cfg)

	return e
}
