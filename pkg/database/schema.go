package database

import (
	"math"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
	"github.com/jordanlanch/leadsync/pkg/models"
)

// Table names
const (
	TableUsers               = "users"
	TableLeads               = "leads"
	TableIntegrationLogs     = "integration_logs"
	TableFieldMappings       = "field_mappings"
	TableCRMRuleRows         = "crm_rule_rows"
	TableAssignmentRules     = "assignment_rules"
	TableIntegrationSettings = "integration_settings"
	TableIndustryTypes       = "industry_types"
)

func varchar(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeString, Size: 255}
}

func text(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeString, Size: math.MaxInt32}
}

func timestamp(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeTime}
}

var (
	// UsersColumns holds the columns for the "users" table.
	UsersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 140, Unique: true},
		varchar("full_name"),
		{Name: "enabled", Type: field.TypeBool, Default: true},
		timestamp("created_at"),
		timestamp("updated_at"),
	}
	// UsersTable holds the schema information for the "users" table.
	UsersTable = &schema.Table{
		Name:       TableUsers,
		Columns:    UsersColumns,
		PrimaryKey: []*schema.Column{UsersColumns[0]},
	}

	// LeadsColumns holds the columns for the "leads" table.
	LeadsColumns = leadColumns()
	// LeadsTable holds the schema information for the "leads" table.
	LeadsTable = &schema.Table{
		Name:       TableLeads,
		Columns:    LeadsColumns,
		PrimaryKey: []*schema.Column{LeadsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "lead_integration_id", Columns: []*schema.Column{leadColumn(models.FieldIntegrationID)}},
			{Name: "lead_email_id", Columns: []*schema.Column{leadColumn(models.FieldEmailID)}},
			{Name: "lead_mobile_no", Columns: []*schema.Column{leadColumn(models.FieldMobileNo)}},
			{Name: "lead_phone", Columns: []*schema.Column{leadColumn(models.FieldPhone)}},
			{Name: "lead_lead_owner", Columns: []*schema.Column{leadColumn(models.FieldLeadOwner)}},
		},
	}

	// IntegrationLogsColumns holds the columns for the "integration_logs" table.
	IntegrationLogsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36, Unique: true},
		{Name: "status", Type: field.TypeString, Size: 20},
		text("data"),
		varchar("integration_id"),
		text("response_message"),
		varchar("lead"),
		timestamp("created_at"),
		timestamp("updated_at"),
	}
	// IntegrationLogsTable holds the schema information for the "integration_logs" table.
	IntegrationLogsTable = &schema.Table{
		Name:       TableIntegrationLogs,
		Columns:    IntegrationLogsColumns,
		PrimaryKey: []*schema.Column{IntegrationLogsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "integrationlog_status_created_at", Columns: []*schema.Column{IntegrationLogsColumns[1], IntegrationLogsColumns[6]}},
			{Name: "integrationlog_integration_id", Columns: []*schema.Column{IntegrationLogsColumns[3]}},
		},
	}

	// FieldMappingsColumns holds the columns for the "field_mappings" table.
	FieldMappingsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		varchar("mapping_name"),
		{Name: "idx", Type: field.TypeInt},
		varchar("internal_field"),
		varchar("external_field"),
	}
	// FieldMappingsTable holds the schema information for the "field_mappings" table.
	FieldMappingsTable = &schema.Table{
		Name:       TableFieldMappings,
		Columns:    FieldMappingsColumns,
		PrimaryKey: []*schema.Column{FieldMappingsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "fieldmapping_mapping_name_idx", Columns: []*schema.Column{FieldMappingsColumns[1], FieldMappingsColumns[2]}},
		},
	}

	// CRMRuleRowsColumns holds the columns for the "crm_rule_rows" table.
	CRMRuleRowsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "idx", Type: field.TypeInt},
		varchar("lead_source"),
		varchar("assigned_user"),
	}
	// CRMRuleRowsTable holds the schema information for the "crm_rule_rows" table.
	CRMRuleRowsTable = &schema.Table{
		Name:       TableCRMRuleRows,
		Columns:    CRMRuleRowsColumns,
		PrimaryKey: []*schema.Column{CRMRuleRowsColumns[0]},
	}

	// AssignmentRulesColumns holds the columns for the "assignment_rules" table.
	AssignmentRulesColumns = []*schema.Column{
		{Name: "name", Type: field.TypeString, Size: 255, Unique: true},
		{Name: "document_type", Type: field.TypeString, Size: 64},
		text("description"),
		text("assign_condition"),
		varchar("source"),
		{Name: "rule", Type: field.TypeString, Size: 64},
		{Name: "disabled", Type: field.TypeBool, Default: false},
		{Name: "priority", Type: field.TypeInt, Default: 0},
		text("days"),
		text("users"),
		varchar("last_user"),
		timestamp("created_at"),
		timestamp("updated_at"),
	}
	// AssignmentRulesTable holds the schema information for the "assignment_rules" table.
	AssignmentRulesTable = &schema.Table{
		Name:       TableAssignmentRules,
		Columns:    AssignmentRulesColumns,
		PrimaryKey: []*schema.Column{AssignmentRulesColumns[0]},
	}

	// IntegrationSettingsColumns holds the columns for the "integration_settings" table.
	IntegrationSettingsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt},
		text("access_token"),
		text("refresh_token"),
		{Name: "token_expiry", Type: field.TypeTime, Nullable: true},
		timestamp("updated_at"),
	}
	// IntegrationSettingsTable holds the schema information for the "integration_settings" table.
	IntegrationSettingsTable = &schema.Table{
		Name:       TableIntegrationSettings,
		Columns:    IntegrationSettingsColumns,
		PrimaryKey: []*schema.Column{IntegrationSettingsColumns[0]},
	}

	// IndustryTypesColumns holds the columns for the "industry_types" table.
	IndustryTypesColumns = []*schema.Column{
		{Name: "name", Type: field.TypeString, Size: 255, Unique: true},
		timestamp("created_at"),
	}
	// IndustryTypesTable holds the schema information for the "industry_types" table.
	IndustryTypesTable = &schema.Table{
		Name:       TableIndustryTypes,
		Columns:    IndustryTypesColumns,
		PrimaryKey: []*schema.Column{IndustryTypesColumns[0]},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		UsersTable,
		LeadsTable,
		IntegrationLogsTable,
		FieldMappingsTable,
		CRMRuleRowsTable,
		AssignmentRulesTable,
		IntegrationSettingsTable,
		IndustryTypesTable,
	}
)

// leadColumns builds the leads columns from the model's text field list so
// the table and the scanner never drift apart.
func leadColumns() []*schema.Column {
	cols := []*schema.Column{{Name: "id", Type: field.TypeString, Size: 36, Unique: true}}
	for _, name := range models.LeadStringColumns() {
		switch name {
		case "description":
			cols = append(cols, text(name))
		default:
			cols = append(cols, varchar(name))
		}
	}
	return append(cols,
		&schema.Column{Name: models.FieldAnnualRevenue, Type: field.TypeFloat64, Default: 0},
		text(models.FieldAssign),
		&schema.Column{Name: models.FieldChangeOwner, Type: field.TypeBool, Default: false},
		&schema.Column{Name: models.FieldSyncDone, Type: field.TypeBool, Default: false},
		timestamp("created_at"),
		timestamp("updated_at"),
	)
}

func leadColumn(name string) *schema.Column {
	for _, c := range LeadsColumns {
		if c.Name == name {
			return c
		}
	}
	panic("database: unknown lead column " + name)
}
