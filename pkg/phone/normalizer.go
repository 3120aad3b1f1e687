package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Normalizer rewrites phone numbers to E.164 so stored values and lookup
// keys compare equal regardless of the formatting the CRM sent.
type Normalizer struct {
	region string
}

// NewNormalizer creates a normalizer that resolves national numbers
// against the given ISO 3166 region (for example "IN" or "US").
func NewNormalizer(region string) *Normalizer {
	if region == "" {
		region = "US"
	}
	return &Normalizer{region: strings.ToUpper(region)}
}

// Normalize returns the E.164 form of raw. Numbers that do not parse or are
// not valid for their region are returned trimmed but otherwise untouched.
func (n *Normalizer) Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(trimmed, n.region)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return trimmed
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
