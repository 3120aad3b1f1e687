package fieldmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jordanlanch/leadsync/pkg/auth"
	"github.com/jordanlanch/leadsync/pkg/logger"
	"github.com/jordanlanch/leadsync/pkg/models"
	"golang.org/x/text/unicode/norm"
)

// Directory answers the lookups the mapper needs from the internal system.
type Directory interface {
	UserExists(ctx context.Context, id string) (bool, error)
	EnsureIndustryType(ctx context.Context, name string) (bool, error)
}

// PhoneNormalizer rewrites phone numbers before they are stored.
type PhoneNormalizer interface {
	Normalize(raw string) string
}

// Mapper copies external payload values onto a lead through a mapping table.
type Mapper struct {
	tables Tables
	dir    Directory
	phones PhoneNormalizer
	log    logger.Logger
}

// NewMapper creates a mapper. phones may be nil to keep numbers as received.
func NewMapper(tables Tables, dir Directory, phones PhoneNormalizer, log logger.Logger) *Mapper {
	if log == nil {
		log = logger.Nop()
	}
	return &Mapper{tables: tables, dir: dir, phones: phones, log: log}
}

// Tables returns the lookup tables in use.
func (m *Mapper) Tables() Tables {
	return m.tables
}

var phoneFields = map[string]bool{
	models.FieldPhone:    true,
	models.FieldMobileNo: true,
	"phone_alternate":    true,
	"mobile_alternate":   true,
}

// Apply sets every mapped field whose external value is present (non-null)
// in payload. Rows with a blank side or an unknown internal field are
// skipped.
func (m *Mapper) Apply(ctx context.Context, lead *models.Lead, payload map[string]any, mappings []models.FieldMapping) error {
	for _, row := range mappings {
		if row.InternalField == "" || row.ExternalField == "" {
			continue
		}
		raw, ok := payload[row.ExternalField]
		if !ok || raw == nil {
			continue
		}

		if row.InternalField == models.FieldAnnualRevenue {
			lead.AnnualRevenue = parseRevenue(raw)
			continue
		}

		dst, ok := lead.StringField(row.InternalField)
		if !ok || !models.IsMappableField(row.InternalField) {
			m.log.Warn("skipping mapping row for unknown lead field",
				"internal_field", row.InternalField, "external_field", row.ExternalField)
			continue
		}

		value, err := m.convert(ctx, row.InternalField, raw)
		if err != nil {
			return err
		}
		*dst = value
	}
	return nil
}

func (m *Mapper) convert(ctx context.Context, field string, raw any) (string, error) {
	switch field {
	case models.FieldNoOfEmployees:
		n, ok := parseEmployeeCount(raw)
		if !ok {
			return "", nil
		}
		return m.tables.EmployeeBand(n), nil
	}

	value := Clean(raw)
	switch field {
	case models.FieldSalutation:
		return m.tables.Salutation.Lookup(value), nil
	case models.FieldStatus:
		return m.tables.Status.Lookup(value), nil
	case models.FieldSource:
		return m.tables.Source.Lookup(value), nil
	case models.FieldIndustry:
		value = m.tables.Industry.Lookup(value)
		if value == "" {
			return "", nil
		}
		created, err := m.dir.EnsureIndustryType(ctx, value)
		if err != nil {
			return "", fmt.Errorf("failed to ensure industry type %q: %w", value, err)
		}
		if created {
			m.log.Info("industry type created", "industry", value)
		}
		return value, nil
	case models.FieldLeadOwner:
		exists := false
		if value != "" {
			var err error
			if exists, err = m.dir.UserExists(ctx, value); err != nil {
				return "", fmt.Errorf("failed to check owner %q: %w", value, err)
			}
		}
		if !exists {
			return auth.UserFromContext(ctx), nil
		}
		return value, nil
	}

	if phoneFields[field] && m.phones != nil {
		return m.phones.Normalize(value), nil
	}
	return value, nil
}

// Keys extracts the values used to find an existing lead: the external id
// and the email, mobile and phone values the mapping routes into the lead.
func (m *Mapper) Keys(payload map[string]any, mappings []models.FieldMapping) models.LeadKeys {
	keys := models.LeadKeys{IntegrationID: Clean(payload["id"])}

	external := map[string]string{
		models.FieldEmailID:  "email",
		models.FieldMobileNo: "mobile",
		models.FieldPhone:    "phone",
	}
	for _, row := range mappings {
		if _, ok := external[row.InternalField]; ok && row.ExternalField != "" {
			external[row.InternalField] = row.ExternalField
		}
	}

	keys.Email = Clean(payload[external[models.FieldEmailID]])
	keys.Mobile = Clean(payload[external[models.FieldMobileNo]])
	keys.Phone = Clean(payload[external[models.FieldPhone]])
	if m.phones != nil {
		keys.Mobile = m.phones.Normalize(keys.Mobile)
		keys.Phone = m.phones.Normalize(keys.Phone)
	}
	return keys
}

// EnsureLeadName fills a blank lead name from the first and last names,
// or "Unknown" when both are blank.
func EnsureLeadName(lead *models.Lead) {
	if strings.TrimSpace(lead.LeadName) != "" {
		return
	}
	name := strings.TrimSpace(lead.FirstName + " " + lead.LastName)
	if name == "" {
		name = "Unknown"
	}
	lead.LeadName = name
}

// Clean renders a payload value as trimmed, NFC-normalised text.
// Null becomes the empty string.
func Clean(raw any) string {
	var s string
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		s = v.String()
	case bool:
		s = strconv.FormatBool(v)
	case []any, map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		s = string(b)
	default:
		s = fmt.Sprint(v)
	}
	return norm.NFC.String(strings.TrimSpace(s))
}

// parseEmployeeCount accepts whole numbers only; fractional JSON numbers
// are truncated and values beyond the int range saturate.
func parseEmployeeCount(raw any) (int, bool) {
	switch v := raw.(type) {
	case float64:
		return floatToInt(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case string:
		s := strings.TrimSpace(v)
		n, err := strconv.Atoi(s)
		if errors.Is(err, strconv.ErrRange) {
			if strings.HasPrefix(s, "-") {
				return math.MinInt, true
			}
			return math.MaxInt, true
		}
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func floatToInt(v float64) (int, bool) {
	switch {
	case math.IsNaN(v), math.IsInf(v, 0):
		return 0, false
	case v >= math.MaxInt:
		return math.MaxInt, true
	case v <= math.MinInt:
		return math.MinInt, true
	}
	return int(v), true
}

func parseRevenue(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	}
	return 0
}
