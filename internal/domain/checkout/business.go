package checkout

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"vendibook/internal/domain/booking"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

const LicenseOther = "other"

// BusinessInfo is the renter's business profile required for some categories.
type BusinessInfo struct {
	LicenseType   string `json:"license_type" validate:"required,oneof=business_license food_handler health_permit mobile_vendor other"`
	LicenseOther  string `json:"license_other" validate:"required_if=LicenseType other"`
	EmployeeCount string `json:"employee_count" validate:"required,oneof=1 2-5 6-10 11-25 26+"`
	IntendedUse   string `json:"intended_use" validate:"required"`
	CuisineType   string `json:"cuisine_type" validate:"required"`
}

// Normalize trims every field so whitespace-only answers count as empty.
func (b BusinessInfo) Normalize() BusinessInfo {
	out := BusinessInfo{
		LicenseType:   strings.ToLower(strings.TrimSpace(b.LicenseType)),
		LicenseOther:  strings.TrimSpace(b.LicenseOther),
		EmployeeCount: strings.TrimSpace(b.EmployeeCount),
		IntendedUse:   strings.TrimSpace(b.IntendedUse),
		CuisineType:   strings.TrimSpace(b.CuisineType),
	}
	if out.LicenseType != LicenseOther {
		out.LicenseOther = ""
	}
	return out
}

// Validate returns a ValidationError for the first failing field.
func (b BusinessInfo) Validate() error {
	err := validate.Struct(b.Normalize())
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return invalid("business."+fe.Field(), fieldMessage(fe))
	}
	return invalid("business", err.Error())
}

func (b BusinessInfo) Details() *booking.BusinessDetails {
	n := b.Normalize()
	return &booking.BusinessDetails{
		LicenseType:   n.LicenseType,
		LicenseOther:  n.LicenseOther,
		EmployeeCount: n.EmployeeCount,
		IntendedUse:   n.IntendedUse,
		CuisineType:   n.CuisineType,
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}
