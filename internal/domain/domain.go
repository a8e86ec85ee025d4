package domain

// Lifecycle stages for a data contract negotiation.
const (
	StageRequest       = "request"
	StageDiscovery     = "discovery"
	StageSpecification = "specification"
	StageReview        = "review"
	StageApproval      = "approval"
	StageActive        = "active"
	StageRejected      = "rejected"
)

// ODCS contract status values.
const (
	StatusProposed   = "proposed"
	StatusDraft      = "draft"
	StatusActive     = "active"
	StatusDeprecated = "deprecated"
	StatusRetired    = "retired"
)

type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ContractRequest is the consumer's initial ask that opens a session.
type ContractRequest struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	BusinessContext string      `json:"business_context,omitempty"`
	TargetUseCase   string      `json:"target_use_case,omitempty"`
	Urgency         string      `json:"urgency" enum:"low,medium,high,critical"`
	Requester       Participant `json:"requester"`
	Domain          string      `json:"domain,omitempty"`
	DataProduct     string      `json:"data_product,omitempty"`
	DesiredFields   []string    `json:"desired_fields,omitempty"`
	CreatedAt       string      `json:"created_at" format:"date-time"`
}

// ColumnSource tracks where one column's data comes from.
type ColumnSource struct {
	SourceTable          string `json:"source_table"`
	SourceColumn         string `json:"source_column"`
	TransformLogic       string `json:"transform_logic,omitempty"`
	TransformDescription string `json:"transform_description,omitempty"`
}

// Property is a column within a schema object.
type Property struct {
	Name                string         `json:"name"`
	LogicalType         string         `json:"logical_type" enum:"string,integer,number,boolean,date,timestamp,time,array,object"`
	Description         string         `json:"description,omitempty"`
	Required            bool           `json:"required,omitempty"`
	PrimaryKey          bool           `json:"primary_key,omitempty"`
	PrimaryKeyPosition  *int           `json:"primary_key_position,omitempty"`
	Unique              bool           `json:"unique,omitempty"`
	Classification      string         `json:"classification,omitempty"`
	Examples            []string       `json:"examples,omitempty"`
	CriticalDataElement bool           `json:"critical_data_element,omitempty"`
	Sources             []ColumnSource `json:"sources,omitempty"`
}

// SourceTable is an upstream table referenced as a lineage source,
// optionally carrying cached column metadata from the catalog.
type SourceTable struct {
	Name          string           `json:"name"`
	QualifiedName string           `json:"qualified_name,omitempty"`
	DatabaseName  string           `json:"database_name,omitempty"`
	SchemaName    string           `json:"schema_name,omitempty"`
	ConnectorName string           `json:"connector_name,omitempty"`
	Description   string           `json:"description,omitempty"`
	Columns       []map[string]any `json:"columns,omitempty"`
}

// SchemaObject is one target table within the contract.
type SchemaObject struct {
	Name         string        `json:"name"`
	PhysicalName string        `json:"physical_name,omitempty"`
	Description  string        `json:"description,omitempty"`
	Properties   []Property    `json:"properties"`
	SourceTables []SourceTable `json:"source_tables,omitempty"`
}

// QualityCheck is one data-quality rule attached to the contract.
type QualityCheck struct {
	ID                string   `json:"id"`
	Type              string   `json:"type" enum:"text,library,sql,custom"`
	Description       string   `json:"description,omitempty"`
	Dimension         string   `json:"dimension,omitempty"`
	Metric            string   `json:"metric,omitempty"`
	Severity          string   `json:"severity,omitempty"`
	MustBe            string   `json:"must_be,omitempty"`
	MustBeGreaterThan *float64 `json:"must_be_greater_than,omitempty"`
	MustBeLessThan    *float64 `json:"must_be_less_than,omitempty"`
	Schedule          string   `json:"schedule,omitempty"`
	Scheduler         string   `json:"scheduler,omitempty"`
	BusinessImpact    string   `json:"business_impact,omitempty"`
	Method            string   `json:"method,omitempty"`
	Column            string   `json:"column,omitempty"`
	Query             string   `json:"query,omitempty"`
	Engine            string   `json:"engine,omitempty"`
}

// SLAProperty is one service-level expectation (freshness, availability...).
type SLAProperty struct {
	ID          string `json:"id"`
	Property    string `json:"property"`
	Value       string `json:"value"`
	Unit        string `json:"unit,omitempty"`
	Description string `json:"description,omitempty"`
	Schedule    string `json:"schedule,omitempty"`
	Scheduler   string `json:"scheduler,omitempty"`
	Driver      string `json:"driver,omitempty"`
	Element     string `json:"element,omitempty"`
}

type TeamMember struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Server is an ODCS server entry, the system where the target asset
// materializes.
type Server struct {
	ID          string `json:"id"`
	Type        string `json:"type" enum:"snowflake,bigquery,databricks,redshift,postgres,other"`
	Environment string `json:"environment"`
	Account     string `json:"account,omitempty"`
	Database    string `json:"database,omitempty"`
	SchemaName  string `json:"schema_name,omitempty"`
	Host        string `json:"host,omitempty"`
	Description string `json:"description,omitempty"`
}

// RoleApprover is a user who signs off on access grants under a role.
type RoleApprover struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// ContractRole is an ODCS role entry granting access to the data product.
type ContractRole struct {
	ID          string         `json:"id"`
	Role        string         `json:"role"`
	Access      string         `json:"access" enum:"read,write,admin"`
	Approvers   []RoleApprover `json:"approvers,omitempty"`
	Description string         `json:"description,omitempty"`
}

// CustomProperty is a key-value metadata entry (ODCS customProperties).
type CustomProperty struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Contract is the ODCS document being built up across stages. Fields are
// stored flat and snake_case; the odcs package renders the nested camelCase
// wire form.
type Contract struct {
	APIVersion             string           `json:"api_version"`
	Kind                   string           `json:"kind"`
	ID                     string           `json:"id"`
	Name                   string           `json:"name,omitempty"`
	Version                string           `json:"version"`
	Status                 string           `json:"status" enum:"proposed,draft,active,deprecated,retired"`
	Domain                 string           `json:"domain,omitempty"`
	Tenant                 string           `json:"tenant,omitempty"`
	DataProduct            string           `json:"data_product,omitempty"`
	DescriptionPurpose     string           `json:"description_purpose,omitempty"`
	DescriptionLimitations string           `json:"description_limitations,omitempty"`
	DescriptionUsage       string           `json:"description_usage,omitempty"`
	Tags                   []string         `json:"tags,omitempty"`
	SchemaObjects          []SchemaObject   `json:"schema_objects"`
	QualityChecks          []QualityCheck   `json:"quality_checks"`
	SLAProperties          []SLAProperty    `json:"sla_properties"`
	Team                   []TeamMember     `json:"team"`
	Servers                []Server         `json:"servers"`
	Roles                  []ContractRole   `json:"roles"`
	CustomProperties       []CustomProperty `json:"custom_properties"`
}

// Comment is a discussion item tagged with the stage active when posted.
type Comment struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Author    Participant `json:"author"`
	Content   string      `json:"content"`
	Stage     string      `json:"stage"`
	ParentID  *string     `json:"parent_id,omitempty"`
	CreatedAt string      `json:"created_at" format:"date-time"`
}

// StageTransition is an append-only record of one stage change.
type StageTransition struct {
	SessionID      string      `json:"session_id"`
	FromStage      string      `json:"from_stage"`
	ToStage        string      `json:"to_stage"`
	TransitionedBy Participant `json:"transitioned_by"`
	Reason         *string     `json:"reason,omitempty"`
	TS             string      `json:"ts" format:"date-time"`
}

// Session is the aggregate tracking one contract through its lifecycle.
type Session struct {
	ID           string            `json:"id"`
	CurrentStage string            `json:"current_stage" enum:"request,discovery,specification,review,approval,active,rejected"`
	Request      ContractRequest   `json:"request"`
	Contract     Contract          `json:"contract"`
	Participants []Participant     `json:"participants"`
	Comments     []Comment         `json:"comments"`
	History      []StageTransition `json:"history"`
	CreatedAt    string            `json:"created_at" format:"date-time"`
	UpdatedAt    string            `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	SessionID  string `json:"session_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// DatasetColumn defines one column of a reference dataset.
type DatasetColumn struct {
	Name         string `json:"name"`
	DisplayName  string `json:"display_name,omitempty"`
	ColumnType   string `json:"column_type" enum:"string,integer,decimal,date,boolean"`
	IsPrimaryKey bool   `json:"is_primary_key,omitempty"`
	IsNullable   bool   `json:"is_nullable,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Dataset is a managed reference-data codelist (country codes, currencies...).
type Dataset struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	DisplayName string          `json:"display_name,omitempty"`
	Description string          `json:"description,omitempty"`
	Domain      string          `json:"domain,omitempty"`
	Columns     []DatasetColumn `json:"columns"`
	Status      string          `json:"status" enum:"draft,active,deprecated"`
	Version     string          `json:"version"`
	Owners      []string        `json:"owners,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	RowCount    int             `json:"row_count"`
	CreatedAt   string          `json:"created_at" format:"date-time"`
	UpdatedAt   string          `json:"updated_at" format:"date-time"`
}

// ReferenceRow is one row of a reference dataset, keyed by column name.
type ReferenceRow struct {
	ID        string            `json:"id"`
	DatasetID string            `json:"dataset_id"`
	Values    map[string]string `json:"values"`
	Status    string            `json:"status" enum:"active,deprecated"`
	CreatedAt string            `json:"created_at" format:"date-time"`
	UpdatedAt string            `json:"updated_at" format:"date-time"`
}
