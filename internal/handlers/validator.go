package handlers

import (
	"errors"

	"tourism-analytics/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator implements echo.Validator interface
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates an echo validator sharing the analytics rules
func NewValidator() echo.Validator {
	return &CustomValidator{validator: validation.GetValidator().GetValidate()}
}

// Validate implements the echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// validationDetails renders validator errors as sorted "field: message" details
func validationDetails(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}

	fieldErrors := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		fieldErrors[fe.Field()] = validation.DescribeFieldError(fe)
	}
	return validation.FormatFieldErrors(fieldErrors)
}
