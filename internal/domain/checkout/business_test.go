package checkout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendibook/internal/domain/checkout"
)

func TestBusinessInfo_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *checkout.BusinessInfo)
		field  string
	}{
		{"valid", func(b *checkout.BusinessInfo) {}, ""},
		{"missing license", func(b *checkout.BusinessInfo) { b.LicenseType = "" }, "business.license_type"},
		{"unknown license", func(b *checkout.BusinessInfo) { b.LicenseType = "pilot" }, "business.license_type"},
		{"other needs text", func(b *checkout.BusinessInfo) { b.LicenseType = "other" }, "business.license_other"},
		{"other with text", func(b *checkout.BusinessInfo) { b.LicenseType = "Other"; b.LicenseOther = "Cottage food" }, ""},
		{"bad employee bucket", func(b *checkout.BusinessInfo) { b.EmployeeCount = "7" }, "business.employee_count"},
		{"blank intended use", func(b *checkout.BusinessInfo) { b.IntendedUse = "   " }, "business.intended_use"},
		{"blank cuisine", func(b *checkout.BusinessInfo) { b.CuisineType = "" }, "business.cuisine_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := validBusiness()
			tt.mutate(&info)
			err := info.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *checkout.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestBusinessInfo_DetailsDropsStrayOtherText(t *testing.T) {
	info := validBusiness()
	info.LicenseOther = "ignored"
	details := info.Details()
	assert.Empty(t, details.LicenseOther)
	assert.Equal(t, "food_handler", details.LicenseType)
}
