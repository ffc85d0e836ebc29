package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

// customTags are the domain rules exposed as validate tags.
var customTags = map[string]validator.Func{
	"mobile": func(fl validator.FieldLevel) bool {
		return domain.ValidPhoneNumber(fl.Field().String())
	},
	"otp": func(fl validator.FieldLevel) bool {
		return domain.ValidCodeFormat(fl.Field().String())
	},
}

// tagMessages render a failed tag; %[1]s is the field, %[2]s the tag param.
var tagMessages = map[string]string{
	"required": "%[1]s is required",
	"mobile":   "%[1]s must be an 11-digit mobile number starting with 09",
	"otp":      "%[1]s must be a 4-digit code",
	"max":      "%[1]s must be at most %[2]s characters",
}

type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns the request validator installed on echo.Echo.
func NewValidator() *echoValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	for tag, fn := range customTags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %q validation: %v", tag, err))
		}
	}
	return &echoValidator{v: v}
}

// Validate satisfies the echo.Validator interface.
func (ev *echoValidator) Validate(i any) error {
	err := ev.v.Struct(i)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldError(fe validator.FieldError) string {
	if format, ok := tagMessages[fe.Tag()]; ok {
		return fmt.Sprintf(format, fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed validation (%s)", fe.Field(), fe.Tag())
}

// jsonFieldName reports fields by their JSON name so messages match the payload.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	return name
}
