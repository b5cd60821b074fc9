// Package validation checks merchant form input before it is sent to the
// backend, so obvious mistakes fail locally instead of as 4xx responses.
package validation

import (
	"errors"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/Thorwig/sovy-merchant/internal/models"
)

var (
	// E.164: leading +, country code, 8 to 15 digits in total.
	phonePattern = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

func ValidateProfile(p models.MerchantProfile) error {
	if n := utf8.RuneCountInString(p.BusinessName); n < 2 || n > 100 {
		return errors.New("business name must be between 2 and 100 characters")
	}
	if p.Address == "" {
		return errors.New("address is required")
	}
	if !phonePattern.MatchString(p.Phone) {
		return errors.New("phone must be in international format, e.g. +12025550123")
	}
	if !emailPattern.MatchString(p.Email) {
		return errors.New("email is not valid")
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return errors.New("latitude must be between -90 and 90")
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return errors.New("longitude must be between -180 and 180")
	}
	return nil
}

// ValidateFoodItem checks a listing form. now is passed in so expiry checks
// are deterministic in tests.
func ValidateFoodItem(name, description string, price, originalPrice float64, quantity int, expiry time.Time, now time.Time) error {
	if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
		return errors.New("name must be between 2 and 100 characters")
	}
	if utf8.RuneCountInString(description) > 500 {
		return errors.New("description must be at most 500 characters")
	}
	if price <= 0 {
		return errors.New("price must be positive")
	}
	if originalPrice <= 0 {
		return errors.New("original price must be positive")
	}
	if price > originalPrice {
		return errors.New("discounted price cannot exceed the original price")
	}
	if quantity < 0 {
		return errors.New("quantity cannot be negative")
	}
	if !expiry.After(now) {
		return errors.New("expiry date must be in the future")
	}
	return nil
}
