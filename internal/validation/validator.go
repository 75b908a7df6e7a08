package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"tourism-analytics/internal/models"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator with custom rules and error formatting
type Validator struct {
	validate *validator.Validate
}

// GetValidate returns the underlying validator.Validate instance for use with Echo
func (v *Validator) GetValidate() *validator.Validate {
	return v.validate
}

var (
	instance *Validator
	once     sync.Once
)

// GetValidator returns the shared validator instance
func GetValidator() *Validator {
	once.Do(func() {
		instance = NewValidator()
	})
	return instance
}

// NewValidator creates a new validator instance with custom rules and configuration
func NewValidator() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("period", validatePeriod)
	_ = v.RegisterValidation("breakdown", validateBreakdown)
	_ = v.RegisterValidation("viewer_role", validateViewerRole)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// ValidateFilters checks a filter set after defaults were applied. The
// returned map is keyed by JSON field name.
func (v *Validator) ValidateFilters(filters models.Filters) map[string]string {
	err := v.validate.Struct(filters)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return map[string]string{"filters": err.Error()}
	}

	fieldErrors := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		fieldErrors[fe.Field()] = DescribeFieldError(fe)
	}
	return fieldErrors
}

// FormatFieldErrors renders field errors as sorted "field: message" details
func FormatFieldErrors(fieldErrors map[string]string) []string {
	details := make([]string, 0, len(fieldErrors))
	for field, message := range fieldErrors {
		details = append(details, fmt.Sprintf("%s: %s", field, message))
	}
	sort.Strings(details)
	return details
}

// DescribeFieldError converts a validator.FieldError to a human-readable message
func DescribeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a valid UUID"
	case "period":
		return "must be one of week month quarter year"
	case "breakdown":
		return "must be one of category attraction time"
	case "viewer_role":
		return "must be one of AUTHORITY OWNER"
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "is invalid"
	}
}

func validatePeriod(fl validator.FieldLevel) bool {
	switch models.Period(fl.Field().String()) {
	case models.PeriodWeek, models.PeriodMonth, models.PeriodQuarter, models.PeriodYear:
		return true
	default:
		return false
	}
}

func validateBreakdown(fl validator.FieldLevel) bool {
	switch models.Breakdown(fl.Field().String()) {
	case models.BreakdownCategory, models.BreakdownAttraction, models.BreakdownTime:
		return true
	default:
		return false
	}
}

func validateViewerRole(fl validator.FieldLevel) bool {
	switch models.Role(fl.Field().String()) {
	case models.RoleAuthority, models.RoleOwner:
		return true
	default:
		return false
	}
}
