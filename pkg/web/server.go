// Package web exposes the HTTP surface: the keep-alive liveness endpoint
// and, in webhook mode, the bot update receiver.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	tb "gopkg.in/tucnak/telebot.v2"

	"github.com/cofure/cofure/pkg/logger"
)

const livenessBody = "✅ Cofure bot vẫn đang hoạt động!"

// UpdateProcessor receives decoded bot updates handed off by the webhook.
type UpdateProcessor interface {
	ProcessUpdate(u tb.Update)
}

// Server is the HTTP gateway.
type Server struct {
	echo *echo.Echo
	log  logger.Logger
	port int
}

// New builds the gateway. When processor is non-nil the webhook route
// POST /bot{token} is mounted; token is compared in constant time.
func New(port int, token string, processor UpdateProcessor, log logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, livenessBody)
	})

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if processor != nil {
		e.POST("/bot:token", func(c echo.Context) error {
			if subtle.ConstantTimeCompare([]byte(c.Param("token")), []byte(token)) != 1 {
				return c.NoContent(http.StatusNotFound)
			}

			var update tb.Update
			if err := json.NewDecoder(c.Request().Body).Decode(&update); err != nil {
				log.WithError(err).Warn("discarding malformed webhook update")
				return c.NoContent(http.StatusOK)
			}

			// Acknowledge before dispatch so the platform never retries
			// an update the bot has already accepted.
			go processor.ProcessUpdate(update)
			return c.NoContent(http.StatusOK)
		})
	}

	return &Server{echo: e, log: log, port: port}
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.WithField("port", s.port).Info("http gateway listening")
	err := s.echo.Start(fmt.Sprintf(":%d", s.port))
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http gateway: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for in-process request tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
