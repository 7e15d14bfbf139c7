package utils

import (
	"regexp"
	"strings"
)

var (
	phoneFormatting = regexp.MustCompile(`[\s\-().]`)
	phonePattern    = regexp.MustCompile(`^\+?[1-9][0-9]{6,14}$`)
)

// NormalizePhoneNumber strips formatting characters so numbers are
// stored E.164-like ("+5511999998888"). An international "00" prefix
// becomes "+". Anything else is kept as typed.
func NormalizePhoneNumber(phoneNumber string) string {
	cleaned := phoneFormatting.ReplaceAllString(strings.TrimSpace(phoneNumber), "")
	if strings.HasPrefix(cleaned, "00") {
		cleaned = "+" + strings.TrimPrefix(cleaned, "00")
	}
	return cleaned
}

// IsValidPhoneNumber reports whether a normalized number looks like
// E.164: an optional "+", no leading zero and 7 to 15 digits
func IsValidPhoneNumber(phoneNumber string) bool {
	return phonePattern.MatchString(phoneNumber)
}
