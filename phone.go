package accounts

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used to parse numbers submitted without a country
// prefix.
var DefaultPhoneRegion = "US"

// NormalizePhone parses a submitted phone number and formats it as E.164.
// Empty input passes through; anything unparseable is returned as-is so the
// profile keeps what the user typed.
func NormalizePhone(number string) string {
	number = strings.TrimSpace(number)
	if number == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(number, DefaultPhoneRegion)
	if err != nil {
		return number
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return number
	}

	return phonenumbers.Format(parsed, phonenumbers.E164)
}
