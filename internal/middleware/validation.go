package middleware

import (
	"encoding/json"
	"strings"

	"tubequiz/internal/domain"
	"tubequiz/internal/dto"
	"tubequiz/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

// NewValidationMiddleware creates a new validation middleware instance
func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validation.NewValidator(),
	}
}

// ValidateQuizID answers 404 for an :id that cannot be a quiz id.
func (vm *ValidationMiddleware) ValidateQuizID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if errs := vm.validator.ValidateQuizID(c.Params("id")); len(errs) > 0 {
			return domain.NewNotFoundError("No Quiz matches the given query.")
		}
		return c.Next()
	}
}

// StrictFields rejects JSON bodies carrying keys other than allowed. It only
// applies to PATCH and PUT requests.
func (vm *ValidationMiddleware) StrictFields(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPatch && c.Method() != fiber.MethodPut {
			return c.Next()
		}
		body := c.Body()
		if len(body) == 0 {
			return c.Next()
		}

		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Detail: "JSON parse error - " + err.Error()})
		}
		if extra := validation.UnexpectedFields(fields, allowed...); len(extra) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Detail: "Unexpected fields: " + strings.Join(extra, ", "),
			})
		}
		return c.Next()
	}
}
