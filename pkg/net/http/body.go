package http

import (
	"reflect"

	"github.com/airweave-ai/ingestion-core/pkg/coreerrors"

	"github.com/gofiber/fiber/v2"
	"gopkg.in/go-playground/validator.v9"
)

// DecodeHandlerFunc receives a struct already decoded and validated by
// WithBody.
type DecodeHandlerFunc func(payload any, c *fiber.Ctx) error

// WithBody decodes the request body into a fresh instance of the type
// pointed to by sample, validates it, and calls handler. Unrecognized
// fields in the payload are rejected as a ValidationUnknownFieldsError.
func WithBody(sample any, handler DecodeHandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t := reflect.TypeOf(sample).Elem()
		payload := reflect.New(t).Interface()

		if err := c.BodyParser(payload); err != nil {
			return BadRequest(c, coreerrors.ValidationError{
				Code:    "MALFORMED_BODY",
				Message: "request body could not be parsed: " + err.Error(),
			})
		}

		if err := validateStruct(payload); err != nil {
			return BadRequest(c, err)
		}

		return handler(payload, c)
	}
}

func validateStruct(s any) error {
	v := validator.New()

	if err := v.Struct(s); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}

		fields := make(coreerrors.FieldValidations, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = fe.Tag()
		}

		return coreerrors.ValidationKnownFieldsError{
			Code:    "BAD_REQUEST",
			Title:   "Bad Request",
			Message: "one or more fields failed validation",
			Fields:  fields,
		}
	}

	return nil
}
</content>
