package access

import (
	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// FormatValidationErrorToMap flattens a validation error into a field to
// message map the views can render next to each input.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	switch verr := err.(type) {
	case validation.Errors:
		for field, ferr := range verr {
			out[field] = ferr.Error()
		}
	case *goerrors.Error:
		out["form"] = verr.Message
	default:
		out["form"] = err.Error()
	}

	return out
}
