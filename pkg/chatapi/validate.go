package chatapi

import (
	"github.com/go-playground/validator/v10"
)

var responseValidate = validator.New()

// validateResponse checks decoded response shapes against their struct tags.
func validateResponse(v any) error {
	if err := responseValidate.Struct(v); err != nil {
		return &MalformedResponseError{Reason: "missing required fields", Err: err}
	}
	return nil
}
