package utils

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// AppError is the machine-readable failure surfaced to the caller. Every
// condition the engine can hit maps to exactly one code and HTTP status;
// nothing is silently absorbed.
type AppError struct {
	Code    string
	Status  int
	Message string
	Extra   fiber.Map
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func ErrUnauthorized() *AppError {
	return &AppError{Code: "unauthorized", Status: fiber.StatusUnauthorized, Message: "Unauthorized"}
}

func ErrNotFound() *AppError {
	return &AppError{Code: "not_found", Status: fiber.StatusNotFound, Message: "Not found"}
}

func ErrInvalidPayload() *AppError {
	return &AppError{Code: "invalid_payload", Status: fiber.StatusBadRequest, Message: "Invalid payload"}
}

// ErrUpstreamUnavailable covers both a failed health probe and a transport
// failure on the execution call itself.
func ErrUpstreamUnavailable() *AppError {
	return &AppError{Code: "upstream_unavailable", Status: fiber.StatusServiceUnavailable, Message: "Executor unavailable"}
}

// ErrUpstreamError forwards the sandbox's non-2xx status with best-effort
// error detail.
func ErrUpstreamError(status int, detail interface{}) *AppError {
	return &AppError{
		Code:    "upstream_error",
		Status:  status,
		Message: "Executor error",
		Extra:   fiber.Map{"detail": detail},
	}
}

func ErrQuotaExceeded(limit int) *AppError {
	return &AppError{
		Code:    "quota_exceeded",
		Status:  fiber.StatusTooManyRequests,
		Message: "Daily limit reached",
		Extra:   fiber.Map{"remaining": 0, "limit": limit},
	}
}

func ErrReviewFailed() *AppError {
	return &AppError{Code: "review_failed", Status: fiber.StatusBadGateway, Message: "Review failed"}
}

func ErrConflict(message string) *AppError {
	return &AppError{Code: "conflict", Status: fiber.StatusConflict, Message: message}
}

func ErrBadRequest(message string) *AppError {
	return &AppError{Code: "bad_request", Status: fiber.StatusBadRequest, Message: message}
}

// Respond writes err as the standard JSON error body. Unknown errors
// become opaque 500s; the cause is logged by the caller, not leaked.
func Respond(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		body := fiber.Map{"error": appErr.Message}
		for k, v := range appErr.Extra {
			body[k] = v
		}
		return c.Status(appErr.Status).JSON(body)
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal error"})
}
