package models

import "time"

// FieldMapping pairs an internal lead field with an external CRM field
type FieldMapping struct {
	Idx           int    `json:"idx"`
	InternalField string `json:"internal_field" validate:"required"`
	ExternalField string `json:"external_field" validate:"required"`
}

// FieldMappingRequest replaces the rows of a named mapping
type FieldMappingRequest struct {
	Mappings []FieldMapping `json:"mappings" validate:"required,min=1,dive"`
}

// CRMRuleRow is one (lead source, user) row of the CRM rule document
type CRMRuleRow struct {
	Idx        int    `json:"idx"`
	LeadSource string `json:"lead_source"`
	User       string `json:"user"`
}

// CRMRuleRequest replaces the CRM rule table
type CRMRuleRequest struct {
	Rows []CRMRuleRow `json:"rows" validate:"dive"`
}

// AssignmentRule is a derived round-robin rule for one lead source
type AssignmentRule struct {
	Name            string    `json:"name"`
	DocumentType    string    `json:"document_type"`
	Description     string    `json:"description"`
	AssignCondition string    `json:"assign_condition"`
	Source          string    `json:"source"`
	Rule            string    `json:"rule"`
	Disabled        bool      `json:"disabled"`
	Priority        int       `json:"priority"`
	Days            []string  `json:"days"`
	Users           []string  `json:"users"`
	LastUser        string    `json:"last_user,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RuleSyncSummary reports what a CRM rule save changed
type RuleSyncSummary struct {
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Deleted int    `json:"deleted"`
	Message string `json:"message"`
}
