package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/skisignal/internal/weather"
)

const appName = "skisignal"

// ServerConfig configures the Fiber app returned by NewApp.
type ServerConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// AccessLog enables fiber's request logger middleware.
	AccessLog bool

	// Metrics is served at /metrics when set.
	Metrics http.Handler

	Logger *zap.SugaredLogger
}

// NewApp builds the Fiber app with middleware, operational endpoints and API routes.
func NewApp(service ForecastService, cfg ServerConfig) *fiber.App {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          errorHandler(log),
	})

	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	RegisterRoutes(app, service)
	return app
}

// errorHandler renders every error as {"error": "<message>"}. Domain errors are
// mapped to a status here so handlers can return them unchanged.
func errorHandler(log *zap.SugaredLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, msg := statusFor(err)
		if code >= fiber.StatusInternalServerError {
			log.Errorw("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"request_id", c.Locals(requestid.ConfigDefault.ContextKey),
				"error", err,
			)
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}

func statusFor(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, weather.ErrUnknownResort), errors.Is(err, weather.ErrValidation):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, weather.ErrNoResults):
		return fiber.StatusServiceUnavailable, weather.ErrNoResults.Error()
	case errors.Is(err, weather.ErrUpstream), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusInternalServerError, weather.ErrUpstream.Error()
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}
