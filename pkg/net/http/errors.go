package http

import (
	"github.com/airweave-ai/ingestion-core/pkg/coreerrors"

	"github.com/gofiber/fiber/v2"
)

// ResponseError is the wire envelope for a pre-resolved HTTP status error.
type ResponseError struct {
	Code    int    `json:"code,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

func (r ResponseError) Error() string { return r.Message }

// HTTPStatus returns the status code to respond with.
func (r ResponseError) HTTPStatus() int { return r.Code }

// WithError renders err as the appropriate HTTP response for the §7 error
// taxonomy, falling back to a hidden 500 for anything unrecognized.
func WithError(c *fiber.Ctx, err error) error {
	switch e := err.(type) {
	case coreerrors.EntityNotFoundError:
		return NotFound(c, e.Code, e.Title, e.Message)
	case coreerrors.EntityConflictError:
		return Conflict(c, e.Code, e.Title, e.Message)
	case coreerrors.ValidationError:
		return BadRequest(c, coreerrors.ValidationKnownFieldsError{
			Code:    e.Code,
			Title:   e.Title,
			Message: e.Message,
		})
	case coreerrors.ValidationKnownFieldsError:
		return BadRequest(c, e)
	case coreerrors.ValidationUnknownFieldsError:
		return BadRequest(c, e)
	case coreerrors.UnprocessableOperationError:
		return UnprocessableEntity(c, e.Code, e.Title, e.Message)
	case coreerrors.UnauthorizedError:
		return Unauthorized(c, e.Code, e.Title, e.Message)
	case coreerrors.ForbiddenError:
		return Forbidden(c, e.Code, e.Title, e.Message)
	case coreerrors.RateLimitExceededError:
		return TooManyRequests(c, e.Code, e.Title, e.Message, e.RetryAfter)
	case coreerrors.UsageLimitExceededError:
		return PaymentRequired(c, e.Code, e.Title, e.Message)
	case coreerrors.HTTPError:
		return BadGateway(c, e.Code, e.Title, e.Message)
	case ResponseError:
		return JSONResponseError(c, e)
	default:
		ierr, _ := coreerrors.ValidateInternalError(err, "").(coreerrors.InternalServerError)
		return InternalServerError(c, ierr.Code, ierr.Title, ierr.Message)
	}
}
</content>
