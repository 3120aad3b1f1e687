package fieldmap

import (
	"fmt"

	"github.com/jordanlanch/leadsync/pkg/domain"
	"github.com/jordanlanch/leadsync/pkg/models"
)

var defaultMappings = [][2]string{
	{"lead_name", "lead_name"},
	{"first_name", "first_name"},
	{"last_name", "last_name"},
	{"salutation", "salutation"},
	{"company_name", "company"},
	{"title", "title"},
	{"designation", "designation"},
	{"email_id", "email"},
	{"secondary_email", "secondary_email"},
	{"phone", "phone"},
	{"mobile_no", "mobile"},
	{"phone_alternate", "phone_alternate"},
	{"mobile_alternate", "mobile_alternate"},
	{"fax", "fax"},
	{"website", "website"},
	{"source", "lead_source"},
	{"status", "lead_status"},
	{"industry", "industry"},
	{"annual_revenue", "annual_revenue"},
	{"skype_id", "skype_id"},
	{"twitter", "twitter"},
	{"address_line1", "street"},
	{"city", "city"},
	{"state", "state"},
	{"pincode", "zip_code"},
	{"country", "country"},
	{"description", "description"},
	{"tag", "tag"},
	{"utm_source", "utm_source"},
	{"utm_medium", "utm_medium"},
	{"utm_campaign", "utm_campaign"},
	{"utm_term", "utm_term"},
	{"utm_content", "utm_content"},
	{"referrer_url", "referrer_url"},
	{"no_of_employees", "no_of_employees"},
	{"lead_owner", "lead_owner"},
}

// DefaultMappings returns the stock CRM-to-lead mapping rows.
func DefaultMappings() []models.FieldMapping {
	rows := make([]models.FieldMapping, len(defaultMappings))
	for i, pair := range defaultMappings {
		rows[i] = models.FieldMapping{Idx: i + 1, InternalField: pair[0], ExternalField: pair[1]}
	}
	return rows
}

// ValidateMappings checks that every row targets a mappable lead field
// and that no field is targeted twice.
func ValidateMappings(rows []models.FieldMapping) error {
	seen := make(map[string]bool, len(rows))
	for i, row := range rows {
		if !models.IsMappableField(row.InternalField) {
			return domain.NewValidationError(fmt.Sprintf("row %d: unknown lead field %q", i+1, row.InternalField))
		}
		if seen[row.InternalField] {
			return domain.NewValidationError(fmt.Sprintf("row %d: lead field %q is mapped twice", i+1, row.InternalField))
		}
		seen[row.InternalField] = true
	}
	return nil
}
