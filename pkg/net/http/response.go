// Package http holds the thin fiber response/error helpers shared by the
// minimal inbound HTTP surface.
package http

import "github.com/gofiber/fiber/v2"

// OK returns HTTP 200 with the given payload.
func OK(c *fiber.Ctx, payload any) error {
	return c.Status(fiber.StatusOK).JSON(payload)
}

// Created returns HTTP 201 with the given payload.
func Created(c *fiber.Ctx, payload any) error {
	return c.Status(fiber.StatusCreated).JSON(payload)
}

// Accepted returns HTTP 202 with the given payload.
func Accepted(c *fiber.Ctx, payload any) error {
	return c.Status(fiber.StatusAccepted).JSON(payload)
}

// NoContent returns HTTP 204.
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

func errorResponse(c *fiber.Ctx, status int, code, title, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"code":    code,
		"title":   title,
		"message": message,
	})
}

// NotFound returns HTTP 404.
func NotFound(c *fiber.Ctx, code, title, message string) error {
	return errorResponse(c, fiber.StatusNotFound, code, title, message)
}

// Conflict returns HTTP 409.
func Conflict(c *fiber.Ctx, code, title, message string) error {
	return errorResponse(c, fiber.StatusConflict, code, title, message)
}

// BadRequest returns HTTP 400 with a structured field-validation payload.
func BadRequest(c *fiber.Ctx, payload any) error {
	return c.Status(fiber.StatusBadRequest).JSON(payload)
}

// UnprocessableEntity returns HTTP 422.
func UnprocessableEntity(c *fiber.Ctx, code, title, message string) error {
	return errorResponse(c, fiber.StatusUnprocessableEntity, code, title, message)
}

// Unauthorized returns HTTP 401.
func Unauthorized(c *fiber.Ctx, code, title, message string) error {
	return errorResponse(c, fiber.StatusUnauthorized, code, title, message)
}

// Forbidden returns HTTP 403.
func Forbidden(c *fiber.Ctx, code, title, message string) error {
	return errorResponse(c, fiber.StatusForbidden, code, title, message)
}

// TooManyRequests returns HTTP 429, honoring the rate limiter's retry hint.
func TooManyRequests(c *fiber.Ctx, code, title, message string, retryAfterSeconds int) error {
	if retryAfterSeconds > 0 {
		c.Set("Retry-After", itoa(retryAfterSeconds))
	}

	return errorResponse(c, fiber.StatusTooManyRequests, code, title, message)
}

// PaymentRequired returns HTTP 402, used for usage-guardrail rejections.
func PaymentRequired(c *fiber.Ctx, code, title, message string) error {
	return errorResponse(c, fiber.StatusPaymentRequired, code, title, message)
}

// BadGateway returns HTTP 502, used for destination/webhook upstream failures.
func BadGateway(c *fiber.Ctx, code, title, message string) error {
	return errorResponse(c, fiber.StatusBadGateway, code, title, message)
}

// InternalServerError returns HTTP 500.
func InternalServerError(c *fiber.Ctx, code, title, message string) error {
	return errorResponse(c, fiber.StatusInternalServerError, code, title, message)
}

// JSONResponseError renders a pre-built ResponseError at its own code.
func JSONResponseError(c *fiber.Ctx, err ResponseError) error {
	status := err.HTTPStatus()
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(err)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	neg := n < 0
	if neg {
		n = -n
	}

	var buf [20]byte

	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}

	if neg {
		i--
		buf[i] = '-'
	}

	return string(buf[i:])
}
</content>
