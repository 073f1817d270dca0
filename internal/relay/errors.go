package relay

import "errors"

var (
	// ErrMissingFields means the body lacked one of name, email or message
	ErrMissingFields = errors.New("missing required fields")

	// ErrInvalidFields means a required field was not a non-blank string
	ErrInvalidFields = errors.New("invalid field values")

	// ErrDeliveryFailed means the webhook could not be reached or answered
	// with a status other than 200 or 204
	ErrDeliveryFailed = errors.New("webhook delivery failed")

	// ErrInternal covers failures building or sending the request that are
	// not the webhook's fault
	ErrInternal = errors.New("internal relay error")
)

// IsValidationError reports whether err is one of the field validation errors
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingFields) || errors.Is(err, ErrInvalidFields)
}
