// Package validation runs `binding` struct tags through gin's validator and
// turns rule violations into per-field common.FieldError values.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophfeed/internal/common"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Struct validates in against its binding tags, the same rules
// ShouldBindJSON applies at the HTTP layer.
func Struct(in any) error {
	if err := binding.Validator.ValidateStruct(in); err != nil {
		return BindError(err)
	}
	return nil
}

// BindError converts a ShouldBindJSON or validator failure into a validation
// error. Rule violations become per-field messages, anything else (malformed
// JSON, wrong types) a plain "invalid request body".
func BindError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return common.Validation(common.ErrorValidation, "invalid request body")
	}

	fields := make([]common.FieldError, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, common.FieldError{Field: jsonName(fe.Field()), Msg: message(fe)})
	}
	return common.InvalidFields(fields...)
}

func message(fe validator.FieldError) string {
	name := jsonName(fe.Field())
	switch fe.Tag() {
	case "required", "notblank":
		return name + " is required"
	case "email":
		return "a valid email is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	default:
		return name + " is invalid"
	}
}

// jsonName lowers the first letter of a Go field name: RefreshToken -> refreshToken.
func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
