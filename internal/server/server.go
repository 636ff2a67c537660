package server

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/gabegon8910/server-donation-tool/internal/handler"
	"github.com/gabegon8910/server-donation-tool/internal/middleware"
)

type Server struct {
	echo                *echo.Echo
	sessionSecret       string
	donationHandler     *handler.DonationHandler
	subscriptionHandler *handler.SubscriptionHandler
	webhookHandler      *handler.WebhookHandler
}

func NewServer(
	sessionSecret string,
	donationHandler *handler.DonationHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	webhookHandler *handler.WebhookHandler,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	s := &Server{
		echo:                e,
		sessionSecret:       sessionSecret,
		donationHandler:     donationHandler,
		subscriptionHandler: subscriptionHandler,
		webhookHandler:      webhookHandler,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// -------- provider webhooks / callbacks (no session) --------
	api.POST("/payments/webhook", s.webhookHandler.HandleEvent)
	api.GET("/donations/success", s.donationHandler.HandleSuccess)

	// -------- member endpoints --------
	auth := api.Group("", middleware.SessionAuth(s.sessionSecret))
	auth.POST("/donations", s.donationHandler.Donate)
	auth.GET("/donations/:id", s.donationHandler.GetOrder)
	auth.POST("/subscriptions", s.subscriptionHandler.Subscribe)
	auth.GET("/subscriptions/:id", s.subscriptionHandler.View)
	auth.POST("/subscriptions/:id/abort", s.subscriptionHandler.Abort)
	auth.DELETE("/subscriptions/:id", s.subscriptionHandler.Cancel)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
