package service

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// bcrypt rejects input longer than 72 bytes, which `max` counts as runes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= n
	})
	return v
}

// validateStruct runs the `validate` tags on req and turns the first
// failure into a ValidationError with a readable message.
func validateStruct(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return validationError("invalid request")
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return validationError(fmt.Sprintf("%s is required", fe.Field()))
	case "email":
		return validationError(fmt.Sprintf("%s must be a valid email address", fe.Field()))
	case "max":
		return validationError(fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
	case "maxbytes":
		return validationError(fmt.Sprintf("%s must be at most %s bytes", fe.Field(), fe.Param()))
	default:
		return validationError(fmt.Sprintf("%s is invalid", fe.Field()))
	}
}
