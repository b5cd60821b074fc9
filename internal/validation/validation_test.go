package validation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Thorwig/sovy-merchant/internal/models"
	"github.com/Thorwig/sovy-merchant/internal/validation"
)

func validProfile() models.MerchantProfile {
	return models.MerchantProfile{
		BusinessName: "Corner Cafe",
		Address:      "12 Market Street",
		Phone:        "+12025550123",
		Email:        "owner@corner.cafe",
		Latitude:     33.58,
		Longitude:    -7.61,
	}
}

func TestValidateProfile(t *testing.T) {
	assert.NoError(t, validation.ValidateProfile(validProfile()))
}

func TestValidateProfilePhone(t *testing.T) {
	p := validProfile()

	p.Phone = "123"
	assert.Error(t, validation.ValidateProfile(p))

	p.Phone = "+12025550123"
	assert.NoError(t, validation.ValidateProfile(p))

	p.Phone = "202-555-0123"
	assert.Error(t, validation.ValidateProfile(p))
}

func TestValidateProfileBounds(t *testing.T) {
	p := validProfile()
	p.Latitude = 91
	assert.Error(t, validation.ValidateProfile(p))

	p = validProfile()
	p.Longitude = -181
	assert.Error(t, validation.ValidateProfile(p))

	p = validProfile()
	p.Email = "not-an-email"
	assert.Error(t, validation.ValidateProfile(p))

	p = validProfile()
	p.BusinessName = "X"
	assert.Error(t, validation.ValidateProfile(p))
}

func TestValidateFoodItem(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	tomorrow := now.Add(24 * time.Hour)

	assert.NoError(t, validation.ValidateFoodItem("Day-old croissants", "Still great", 3.5, 7, 12, tomorrow, now))

	assert.Error(t, validation.ValidateFoodItem("X", "", 3.5, 7, 12, tomorrow, now),
		"single character name")
	assert.Error(t, validation.ValidateFoodItem("Croissants", "", 0, 7, 12, tomorrow, now),
		"zero price")
	assert.Error(t, validation.ValidateFoodItem("Croissants", "", 8, 7, 12, tomorrow, now),
		"discounted above original")
	assert.Error(t, validation.ValidateFoodItem("Croissants", "", 3.5, 7, -1, tomorrow, now),
		"negative quantity")
	assert.Error(t, validation.ValidateFoodItem("Croissants", "", 3.5, 7, 12, now.Add(-time.Hour), now),
		"expiry in the past")
}
