package testdata

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
)

// PayloadGeneratorConfig configures webhook payload generation
type PayloadGeneratorConfig struct {
	Count         int
	Source        string  // CRM lead source; random when empty
	SyncStatus    string  // Lead_Sync_Status; "-None-" when empty
	EmailChance   float64 // 0.0-1.0 (probability of having email)
	PhoneChance   float64
	MobileChance  float64
	AddressChance float64
}

// DefaultPayloadConfig returns a config producing mostly complete payloads
func DefaultPayloadConfig(count int) PayloadGeneratorConfig {
	return PayloadGeneratorConfig{
		Count:         count,
		EmailChance:   0.9,
		PhoneChance:   0.6,
		MobileChance:  0.5,
		AddressChance: 0.7,
	}
}

// CRMSources are lead sources as the CRM spells them
var CRMSources = []string{
	"Advertisement", "Cold Call", "Employee Referral", "External Referral",
	"Online Store", "Partner", "Public Relations", "Sales Email Alias",
	"Seminar Partner", "Trade Show", "Web Download", "Web Research", "Chat",
}

// CRMStatuses are lead statuses as the CRM spells them
var CRMStatuses = []string{
	"-None-", "Attempted to Contact", "Contact in Future", "Contacted",
	"Not Contacted", "Pre-Qualified", "Not Qualified",
}

var companyNameParts = struct {
	Prefixes []string
	Suffixes []string
}{
	Prefixes: []string{"Milestone", "Apex", "Summit", "Blue", "Vertex", "Northwind", "Crescent", "Orbit", "Granite", "Silver"},
	Suffixes: []string{"Tech Pvt Ltd", "Systems", "Solutions", "Industries", "Labs", "Logistics", "Consulting", "Holdings"},
}

// GenerateCompanyName returns a plausible company name
func GenerateCompanyName() string {
	prefix := companyNameParts.Prefixes[rand.Intn(len(companyNameParts.Prefixes))]
	suffix := companyNameParts.Suffixes[rand.Intn(len(companyNameParts.Suffixes))]
	return fmt.Sprintf("%s %s", prefix, suffix)
}

// GenerateIntegrationID returns an external record id shaped like the CRM's
func GenerateIntegrationID() string {
	return gofakeit.Numerify("921314000##########")
}

// GeneratePayload creates a single webhook payload with realistic data
func GeneratePayload(config PayloadGeneratorConfig) map[string]any {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	company := GenerateCompanyName()

	source := config.Source
	if source == "" {
		source = CRMSources[rand.Intn(len(CRMSources))]
	}
	syncStatus := config.SyncStatus
	if syncStatus == "" {
		syncStatus = "-None-"
	}

	payload := map[string]any{
		"id":               GenerateIntegrationID(),
		"first_name":       first,
		"last_name":        last,
		"lead_name":        first + " " + last,
		"company":          company,
		"lead_source":      source,
		"lead_status":      CRMStatuses[rand.Intn(len(CRMStatuses))],
		"annual_revenue":   fmt.Sprintf("%d", gofakeit.Number(10000, 5000000)),
		"no_of_employees":  fmt.Sprintf("%d", gofakeit.Number(1, 5000)),
		"Lead_Sync_Status": syncStatus,
	}

	if rand.Float64() < config.EmailChance {
		domain := strings.ToLower(strings.ReplaceAll(company, " ", ""))
		if len(domain) > 20 {
			domain = domain[:20]
		}
		payload["email"] = fmt.Sprintf("%s.%s@%s.com", strings.ToLower(first), strings.ToLower(last), domain)
	}
	if rand.Float64() < config.PhoneChance {
		payload["phone"] = gofakeit.Phone()
	}
	if rand.Float64() < config.MobileChance {
		payload["mobile"] = gofakeit.Phone()
	}
	if rand.Float64() < config.AddressChance {
		payload["street"] = gofakeit.Street()
		payload["city"] = gofakeit.City()
		payload["state"] = gofakeit.State()
		payload["zip_code"] = gofakeit.Zip()
		payload["country"] = gofakeit.Country()
	}

	return payload
}

// GeneratePayloads creates multiple payloads with the given config. Every
// payload gets a distinct external id.
func GeneratePayloads(config PayloadGeneratorConfig) []map[string]any {
	payloads := make([]map[string]any, 0, config.Count)
	seen := make(map[string]bool, config.Count)
	for len(payloads) < config.Count {
		p := GeneratePayload(config)
		id := p["id"].(string)
		if seen[id] {
			continue
		}
		seen[id] = true
		payloads = append(payloads, p)
	}
	return payloads
}
