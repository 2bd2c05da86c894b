package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/phonemap/internal/core/domain"
)

// Error codes carried in APIError.Code.
const (
	codeBadRequest  = "bad_request"
	codeValidation  = "validation_error"
	codeNotFound    = "not_found"
	codeInternal    = "internal_error"
	codeRateLimited = "rate_limited"
)

// APIError is the JSON body of every non-2xx response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"` // set for validation_error
	RequestID string `json:"request_id,omitempty"`
}

func writeError(c *fiber.Ctx, e APIError) error {
	e.RequestID, _ = c.Locals("requestid").(string)
	return c.Status(e.Status).JSON(e)
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return writeError(c, APIError{Status: fiber.StatusBadRequest, Code: codeBadRequest, Message: msg})
}

// errValidation reports the rejected field alongside the message shown to
// the user.
func errValidation(c *fiber.Ctx, ve *domain.ValidationError) error {
	return writeError(c, APIError{
		Status:  fiber.StatusBadRequest,
		Code:    codeValidation,
		Message: ve.Error(),
		Field:   ve.Field,
	})
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return writeError(c, APIError{Status: fiber.StatusNotFound, Code: codeNotFound, Message: msg})
}

func errInternal(c *fiber.Ctx, msg string) error {
	return writeError(c, APIError{Status: fiber.StatusInternalServerError, Code: codeInternal, Message: msg})
}

func errTooManyRequests(c *fiber.Ctx, msg string) error {
	return writeError(c, APIError{Status: fiber.StatusTooManyRequests, Code: codeRateLimited, Message: msg})
}
