package models

import "time"

// AdministratorUser is the sentinel owner used when no assigned user applies
const AdministratorUser = "Administrator"

// Lead is the internal lead record kept in sync with the external CRM
type Lead struct {
	ID string `json:"id"`

	LeadName    string `json:"lead_name"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Salutation  string `json:"salutation,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	Title       string `json:"title,omitempty"`
	Designation string `json:"designation,omitempty"`

	EmailID         string `json:"email_id,omitempty"`
	SecondaryEmail  string `json:"secondary_email,omitempty"`
	Phone           string `json:"phone,omitempty"`
	MobileNo        string `json:"mobile_no,omitempty"`
	PhoneAlternate  string `json:"phone_alternate,omitempty"`
	MobileAlternate string `json:"mobile_alternate,omitempty"`
	Fax             string `json:"fax,omitempty"`
	Website         string `json:"website,omitempty"`
	SkypeID         string `json:"skype_id,omitempty"`
	Twitter         string `json:"twitter,omitempty"`

	Source        string  `json:"source,omitempty"`
	Status        string  `json:"status,omitempty"`
	Industry      string  `json:"industry,omitempty"`
	AnnualRevenue float64 `json:"annual_revenue"`
	NoOfEmployees string  `json:"no_of_employees,omitempty"`

	AddressLine1 string `json:"address_line1,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Pincode      string `json:"pincode,omitempty"`
	Country      string `json:"country,omitempty"`

	Description string `json:"description,omitempty"`
	Tag         string `json:"tag,omitempty"`
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`
	ReferrerURL string `json:"referrer_url,omitempty"`

	LeadOwner       string   `json:"lead_owner"`
	LeadOwnerName   string   `json:"lead_owner_name"`
	Assign          []string `json:"_assign"`
	ChangeLeadOwner bool     `json:"change_lead_owner"`

	IntegrationLeadID   string `json:"custom_integration_lead_id,omitempty"`
	IntegrationSyncDone bool   `json:"custom_integration_sync_done"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Column names shared by the store and the field mapper.
const (
	FieldLeadName      = "lead_name"
	FieldFirstName     = "first_name"
	FieldLastName      = "last_name"
	FieldSalutation    = "salutation"
	FieldEmailID       = "email_id"
	FieldPhone         = "phone"
	FieldMobileNo      = "mobile_no"
	FieldSource        = "source"
	FieldStatus        = "status"
	FieldIndustry      = "industry"
	FieldAnnualRevenue = "annual_revenue"
	FieldNoOfEmployees = "no_of_employees"
	FieldLeadOwner     = "lead_owner"
	FieldLeadOwnerName = "lead_owner_name"
	FieldAssign        = "_assign"
	FieldChangeOwner   = "change_lead_owner"
	FieldIntegrationID = "custom_integration_lead_id"
	FieldSyncDone      = "custom_integration_sync_done"
)

type stringField struct {
	name string
	ptr  func(*Lead) *string
}

// Order matters: it is the column order used by the store.
var leadStringFields = []stringField{
	{FieldLeadName, func(l *Lead) *string { return &l.LeadName }},
	{FieldFirstName, func(l *Lead) *string { return &l.FirstName }},
	{FieldLastName, func(l *Lead) *string { return &l.LastName }},
	{FieldSalutation, func(l *Lead) *string { return &l.Salutation }},
	{"company_name", func(l *Lead) *string { return &l.CompanyName }},
	{"title", func(l *Lead) *string { return &l.Title }},
	{"designation", func(l *Lead) *string { return &l.Designation }},
	{FieldEmailID, func(l *Lead) *string { return &l.EmailID }},
	{"secondary_email", func(l *Lead) *string { return &l.SecondaryEmail }},
	{FieldPhone, func(l *Lead) *string { return &l.Phone }},
	{FieldMobileNo, func(l *Lead) *string { return &l.MobileNo }},
	{"phone_alternate", func(l *Lead) *string { return &l.PhoneAlternate }},
	{"mobile_alternate", func(l *Lead) *string { return &l.MobileAlternate }},
	{"fax", func(l *Lead) *string { return &l.Fax }},
	{"website", func(l *Lead) *string { return &l.Website }},
	{"skype_id", func(l *Lead) *string { return &l.SkypeID }},
	{"twitter", func(l *Lead) *string { return &l.Twitter }},
	{FieldSource, func(l *Lead) *string { return &l.Source }},
	{FieldStatus, func(l *Lead) *string { return &l.Status }},
	{FieldIndustry, func(l *Lead) *string { return &l.Industry }},
	{FieldNoOfEmployees, func(l *Lead) *string { return &l.NoOfEmployees }},
	{"address_line1", func(l *Lead) *string { return &l.AddressLine1 }},
	{"city", func(l *Lead) *string { return &l.City }},
	{"state", func(l *Lead) *string { return &l.State }},
	{"pincode", func(l *Lead) *string { return &l.Pincode }},
	{"country", func(l *Lead) *string { return &l.Country }},
	{"description", func(l *Lead) *string { return &l.Description }},
	{"tag", func(l *Lead) *string { return &l.Tag }},
	{"utm_source", func(l *Lead) *string { return &l.UTMSource }},
	{"utm_medium", func(l *Lead) *string { return &l.UTMMedium }},
	{"utm_campaign", func(l *Lead) *string { return &l.UTMCampaign }},
	{"utm_term", func(l *Lead) *string { return &l.UTMTerm }},
	{"utm_content", func(l *Lead) *string { return &l.UTMContent }},
	{"referrer_url", func(l *Lead) *string { return &l.ReferrerURL }},
	{FieldLeadOwner, func(l *Lead) *string { return &l.LeadOwner }},
	{FieldLeadOwnerName, func(l *Lead) *string { return &l.LeadOwnerName }},
	{FieldIntegrationID, func(l *Lead) *string { return &l.IntegrationLeadID }},
}

var leadStringIndex = func() map[string]int {
	idx := make(map[string]int, len(leadStringFields))
	for i, f := range leadStringFields {
		idx[f.name] = i
	}
	return idx
}()

// LeadStringColumns lists the text columns of a lead in storage order.
func LeadStringColumns() []string {
	cols := make([]string, len(leadStringFields))
	for i, f := range leadStringFields {
		cols[i] = f.name
	}
	return cols
}

// StringField returns a pointer to the named text field.
func (l *Lead) StringField(name string) (*string, bool) {
	i, ok := leadStringIndex[name]
	if !ok {
		return nil, false
	}
	return leadStringFields[i].ptr(l), true
}

// LeadFieldNames lists the fields a mapping row may target. Ownership
// bookkeeping and integration keys are excluded, except lead_owner.
func LeadFieldNames() []string {
	names := make([]string, 0, len(leadStringFields)+1)
	for _, f := range leadStringFields {
		switch f.name {
		case FieldLeadOwnerName, FieldIntegrationID:
			continue
		}
		names = append(names, f.name)
	}
	return append(names, FieldAnnualRevenue)
}

// IsMappableField reports whether name is a valid mapping target.
func IsMappableField(name string) bool {
	for _, n := range LeadFieldNames() {
		if n == name {
			return true
		}
	}
	return false
}

// AssignedUser returns the first entry of the assignment list.
func (l *Lead) AssignedUser() string {
	if len(l.Assign) == 0 {
		return ""
	}
	return l.Assign[0]
}

// Clone returns a deep copy.
func (l *Lead) Clone() *Lead {
	if l == nil {
		return nil
	}
	c := *l
	if l.Assign != nil {
		c.Assign = append([]string(nil), l.Assign...)
	}
	return &c
}

// LeadRequest is the admin payload for creating or editing a lead by hand
type LeadRequest struct {
	LeadName        string   `json:"lead_name"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	CompanyName     string   `json:"company_name"`
	EmailID         string   `json:"email_id" validate:"omitempty,email"`
	Phone           string   `json:"phone"`
	MobileNo        string   `json:"mobile_no"`
	Source          string   `json:"source"`
	Status          string   `json:"status"`
	LeadOwner       *string  `json:"lead_owner"`
	Assign          []string `json:"_assign"`
	ChangeLeadOwner *bool    `json:"change_lead_owner"`
}

// ApplyTo copies the request onto a lead. Nil pointers leave fields as they are.
func (r LeadRequest) ApplyTo(l *Lead) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&l.LeadName, r.LeadName)
	set(&l.FirstName, r.FirstName)
	set(&l.LastName, r.LastName)
	set(&l.CompanyName, r.CompanyName)
	set(&l.EmailID, r.EmailID)
	set(&l.Phone, r.Phone)
	set(&l.MobileNo, r.MobileNo)
	set(&l.Source, r.Source)
	set(&l.Status, r.Status)
	if r.LeadOwner != nil {
		l.LeadOwner = *r.LeadOwner
	}
	if r.Assign != nil {
		l.Assign = append([]string(nil), r.Assign...)
	}
	if r.ChangeLeadOwner != nil {
		l.ChangeLeadOwner = *r.ChangeLeadOwner
	}
}

// LeadKeys are the values used to find an existing lead, in lookup order
type LeadKeys struct {
	IntegrationID string
	Email         string
	Mobile        string
	Phone         string
}
