package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler) {
	// Health check
	app.Get("/health", handler.HealthCheck)

	// Series and phenology
	app.Get("/series/point", handler.GetSeriesPoint)

	pheno := app.Group("/phenology")
	{
		pheno.Get("/point", handler.GetPhenologyPoint)
		pheno.Post("/classify", handler.ClassifySeries)
		pheno.Get("/calendar", handler.GetBloomCalendar)
	}

	// Paths used by the web client
	api := app.Group("/api")
	{
		api.Get("/health", handler.HealthCheck)
		api.Get("/ndvi/point", handler.GetSeriesPoint)
	}
}

// ErrorHandler renders errors as {"error": true, "message": ...}
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
