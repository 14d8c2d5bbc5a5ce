// Package validator adapts go-playground/validator to echo.
package validator

import (
	"strings"

	domainerrors "referral/internal/domain/errors"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// CustomValidator implements echo.Validator.
type CustomValidator struct {
	validate *validator.Validate
}

func New() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	return &CustomValidator{validate: v}
}

// Validate reports failures as INVALID_REQUEST naming the offending fields.
func (cv *CustomValidator) Validate(i any) error {
	err := cv.validate.Struct(i)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return errors.Wrap(domainerrors.ErrInvalidRequest, err.Error())
	}

	fields := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		fields = append(fields, fieldErr.Field()+" is "+fieldErr.Tag())
	}

	return domainerrors.ErrInvalidRequest.WithDetails(strings.Join(fields, "; "))
}
