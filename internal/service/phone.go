package service

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultPhoneRegion = "RU"

func normalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if region == "" {
		region = defaultPhoneRegion
	}
	number, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return ""
	}
	if !phonenumbers.IsPossibleNumber(number) || !phonenumbers.IsValidNumber(number) {
		return ""
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

// searchTerms returns the term as typed plus its E.164 form when the term is
// a valid phone number, so "8 (916) 123-45-67" finds "+79161234567".
func searchTerms(value, region string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	terms := []string{value}
	if e164 := normalizePhone(value, region); e164 != "" && e164 != value {
		terms = append(terms, e164)
	}
	return terms
}
