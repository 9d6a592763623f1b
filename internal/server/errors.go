package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// errorHandler writes errors that escaped a handler as {"message": ...}.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("unhandled error", zap.Error(err), zap.String("method", c.Method()), zap.String("path", c.Path()))
		}
		return c.Status(code).JSON(fiber.Map{"message": msg})
	}
}
