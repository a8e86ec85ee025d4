package server

import (
	"encoding/json"

	"pactline/internal/config"
	"pactline/internal/domain"
	"pactline/internal/engine"
)

// Request payloads

type CreateSessionRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	BusinessContext string   `json:"business_context,omitempty"`
	TargetUseCase   string   `json:"target_use_case,omitempty"`
	Urgency         string   `json:"urgency,omitempty" enum:"low,medium,high,critical"`
	RequesterName   string   `json:"requester_name"`
	RequesterEmail  string   `json:"requester_email,omitempty"`
	Domain          string   `json:"domain,omitempty"`
	DataProduct     string   `json:"data_product,omitempty"`
	DesiredFields   []string `json:"desired_fields,omitempty"`
}

type AdvanceStageRequest struct {
	TargetStage string `json:"target_stage" enum:"request,discovery,specification,review,approval,active,rejected"`
	ActorName   string `json:"actor_name,omitempty"`
	ActorEmail  string `json:"actor_email,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type CreateCommentRequest struct {
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email,omitempty"`
	Content     string `json:"content"`
	ParentID    string `json:"parent_id,omitempty"`
}

type UpdateMetadataRequest struct {
	Name                   *string   `json:"name,omitempty"`
	Domain                 *string   `json:"domain,omitempty"`
	Tenant                 *string   `json:"tenant,omitempty"`
	DataProduct            *string   `json:"data_product,omitempty"`
	Version                *string   `json:"version,omitempty"`
	DescriptionPurpose     *string   `json:"description_purpose,omitempty"`
	DescriptionLimitations *string   `json:"description_limitations,omitempty"`
	DescriptionUsage       *string   `json:"description_usage,omitempty"`
	Tags                   *[]string `json:"tags,omitempty"`
}

type CreateObjectRequest struct {
	Name         string `json:"name"`
	PhysicalName string `json:"physical_name,omitempty"`
	Description  string `json:"description,omitempty"`
}

type UpdateObjectRequest struct {
	PhysicalName *string `json:"physical_name,omitempty"`
	Description  *string `json:"description,omitempty"`
}

type CreatePropertyRequest struct {
	Name                string   `json:"name"`
	LogicalType         string   `json:"logical_type,omitempty" enum:"string,integer,number,boolean,date,timestamp,time,array,object"`
	Description         string   `json:"description,omitempty"`
	Required            bool     `json:"required,omitempty"`
	PrimaryKey          bool     `json:"primary_key,omitempty"`
	Unique              bool     `json:"unique,omitempty"`
	Classification      string   `json:"classification,omitempty"`
	CriticalDataElement bool     `json:"critical_data_element,omitempty"`
	Examples            []string `json:"examples,omitempty"`
}

type UpdatePropertyRequest struct {
	Name                *string   `json:"name,omitempty"`
	LogicalType         *string   `json:"logical_type,omitempty" enum:"string,integer,number,boolean,date,timestamp,time,array,object"`
	Description         *string   `json:"description,omitempty"`
	Required            *bool     `json:"required,omitempty"`
	PrimaryKey          *bool     `json:"primary_key,omitempty"`
	PrimaryKeyPosition  *int      `json:"primary_key_position,omitempty"`
	Unique              *bool     `json:"unique,omitempty"`
	Classification      *string   `json:"classification,omitempty"`
	CriticalDataElement *bool     `json:"critical_data_element,omitempty"`
	Examples            *[]string `json:"examples,omitempty"`
}

type ReorderPropertyRequest struct {
	PropertyName string `json:"property_name"`
	Direction    string `json:"direction" enum:"up,down"`
}

type ReorderPropertyResponse struct {
	NewIndex int `json:"new_index"`
}

type CreateSourceTableRequest struct {
	Name          string           `json:"name"`
	QualifiedName string           `json:"qualified_name,omitempty"`
	DatabaseName  string           `json:"database_name,omitempty"`
	SchemaName    string           `json:"schema_name,omitempty"`
	ConnectorName string           `json:"connector_name,omitempty"`
	Description   string           `json:"description,omitempty"`
	Columns       []map[string]any `json:"columns,omitempty"`
}

type ColumnMappingRequest struct {
	SourceTable          string `json:"source_table"`
	SourceColumn         string `json:"source_column"`
	TargetColumnName     string `json:"target_column_name,omitempty"`
	LogicalType          string `json:"logical_type,omitempty"`
	Description          string `json:"description,omitempty"`
	IsPrimary            bool   `json:"is_primary,omitempty"`
	Required             bool   `json:"required,omitempty"`
	TransformLogic       string `json:"transform_logic,omitempty"`
	TransformDescription string `json:"transform_description,omitempty"`
}

type MapColumnsRequest struct {
	Mappings []ColumnMappingRequest `json:"mappings"`
}

type ColumnSourceRequest struct {
	SourceTable          string `json:"source_table"`
	SourceColumn         string `json:"source_column"`
	TransformLogic       string `json:"transform_logic,omitempty"`
	TransformDescription string `json:"transform_description,omitempty"`
}

type UpdateColumnSourceRequest struct {
	SourceTable          *string `json:"source_table,omitempty"`
	SourceColumn         *string `json:"source_column,omitempty"`
	TransformLogic       *string `json:"transform_logic,omitempty"`
	TransformDescription *string `json:"transform_description,omitempty"`
}

type CreateQualityCheckRequest struct {
	Type              string   `json:"type,omitempty" enum:"text,library,sql,custom"`
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

type UpdateQualityCheckRequest struct {
	Type              *string  `json:"type,omitempty" enum:"text,library,sql,custom"`
	Description       *string  `json:"description,omitempty"`
	Dimension         *string  `json:"dimension,omitempty"`
	Metric            *string  `json:"metric,omitempty"`
	Severity          *string  `json:"severity,omitempty"`
	MustBe            *string  `json:"must_be,omitempty"`
	MustBeGreaterThan *float64 `json:"must_be_greater_than,omitempty"`
	MustBeLessThan    *float64 `json:"must_be_less_than,omitempty"`
	Schedule          *string  `json:"schedule,omitempty"`
	Scheduler         *string  `json:"scheduler,omitempty"`
	BusinessImpact    *string  `json:"business_impact,omitempty"`
	Method            *string  `json:"method,omitempty"`
	Column            *string  `json:"column,omitempty"`
	Query             *string  `json:"query,omitempty"`
	Engine            *string  `json:"engine,omitempty"`
}

type CreateSLARequest struct {
	Property    string `json:"property"`
	Value       string `json:"value,omitempty"`
	Unit        string `json:"unit,omitempty"`
	Description string `json:"description,omitempty"`
	Schedule    string `json:"schedule,omitempty"`
	Scheduler   string `json:"scheduler,omitempty"`
	Driver      string `json:"driver,omitempty"`
	Element     string `json:"element,omitempty"`
}

type UpdateSLARequest struct {
	Property    *string `json:"property,omitempty"`
	Value       *string `json:"value,omitempty"`
	Unit        *string `json:"unit,omitempty"`
	Description *string `json:"description,omitempty"`
	Schedule    *string `json:"schedule,omitempty"`
	Scheduler   *string `json:"scheduler,omitempty"`
	Driver      *string `json:"driver,omitempty"`
	Element     *string `json:"element,omitempty"`
}

type CreateTeamMemberRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

type CreateServerRequest struct {
	Type        string `json:"type,omitempty" enum:"snowflake,bigquery,databricks,redshift,postgres,other"`
	Environment string `json:"environment,omitempty"`
	Account     string `json:"account,omitempty"`
	Database    string `json:"database,omitempty"`
	SchemaName  string `json:"schema_name,omitempty"`
	Host        string `json:"host,omitempty"`
	Description string `json:"description,omitempty"`
}

type UpdateServerRequest struct {
	Type        *string `json:"type,omitempty" enum:"snowflake,bigquery,databricks,redshift,postgres,other"`
	Environment *string `json:"environment,omitempty"`
	Account     *string `json:"account,omitempty"`
	Database    *string `json:"database,omitempty"`
	SchemaName  *string `json:"schema_name,omitempty"`
	Host        *string `json:"host,omitempty"`
	Description *string `json:"description,omitempty"`
}

type CreateRoleRequest struct {
	Role        string                `json:"role"`
	Access      string                `json:"access,omitempty" enum:"read,write,admin"`
	Approvers   []domain.RoleApprover `json:"approvers,omitempty"`
	Description string                `json:"description,omitempty"`
}

type UpdateRoleRequest struct {
	Role        *string                `json:"role,omitempty"`
	Access      *string                `json:"access,omitempty" enum:"read,write,admin"`
	Approvers   *[]domain.RoleApprover `json:"approvers,omitempty"`
	Description *string                `json:"description,omitempty"`
}

type CreateCustomPropertyRequest struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

type CreateDatasetRequest struct {
	Name        string                 `json:"name"`
	DisplayName string                 `json:"display_name,omitempty"`
	Description string                 `json:"description,omitempty"`
	Domain      string                 `json:"domain,omitempty"`
	Columns     []domain.DatasetColumn `json:"columns,omitempty"`
	Owners      []string               `json:"owners,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
}

type UpdateDatasetRequest struct {
	DisplayName *string                 `json:"display_name,omitempty"`
	Description *string                 `json:"description,omitempty"`
	Domain      *string                 `json:"domain,omitempty"`
	Columns     *[]domain.DatasetColumn `json:"columns,omitempty"`
	Owners      *[]string               `json:"owners,omitempty"`
	Tags        *[]string               `json:"tags,omitempty"`
	Status      *string                 `json:"status,omitempty" enum:"draft,active,deprecated"`
	Version     *string                 `json:"version,omitempty"`
}

type UpsertRowRequest struct {
	Values map[string]string `json:"values"`
}

type BulkImportRequest struct {
	Rows       []map[string]string `json:"rows"`
	ReplaceAll bool                `json:"replace_all,omitempty"`
}

type CreateAPIKeyRequest struct {
	ActorID string `json:"actor_id"`
	Name    string `json:"name,omitempty"`
}

type DevLoginRequest struct {
	ActorID string   `json:"actor_id"`
	Roles   []string `json:"roles,omitempty"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

// Response payloads

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	SessionID  string         `json:"session_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
	// Key is only returned on creation.
	Key string `json:"key,omitempty"`
}

type WhoAmIResponse struct {
	ActorID string   `json:"actor_id"`
	Roles   []string `json:"roles"`
	Source  string   `json:"source"`
}

type WorkspaceConfigResponse struct {
	Workspace workspaceConfigSection `json:"workspace"`
	Contract  contractConfigSection  `json:"contract"`
	Catalog   catalogConfigSection   `json:"catalog"`
}

type workspaceConfigSection struct {
	Name   string `json:"name"`
	Tenant string `json:"tenant,omitempty"`
}

type contractConfigSection struct {
	APIVersion     string `json:"api_version"`
	Kind           string `json:"kind"`
	InitialVersion string `json:"initial_version"`
}

type catalogConfigSection struct {
	Domains         []string `json:"domains"`
	Classifications []string `json:"classifications"`
	SLAProperties   []string `json:"sla_properties"`
	QualityEngines  []string `json:"quality_engines"`
}

type paginatedSessions struct {
	Items      []SessionSummaryResponse `json:"items"`
	NextCursor string                   `json:"next_cursor,omitempty"`
}

type SessionSummaryResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Requester    string `json:"requester"`
	CurrentStage string `json:"current_stage"`
	ContractName string `json:"contract_name,omitempty"`
	NumObjects   int    `json:"num_objects"`
	NumComments  int    `json:"num_comments"`
	CreatedAt    string `json:"created_at" format:"date-time"`
	UpdatedAt    string `json:"updated_at" format:"date-time"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type MapColumnsResponse struct {
	Added        int `json:"added"`
	Skipped      int `json:"skipped"`
	TotalColumns int `json:"total_columns"`
}

type ImportRowsResponse struct {
	Imported   int  `json:"imported"`
	ReplaceAll bool `json:"replace_all"`
}

type DatasetWithRows struct {
	Dataset domain.Dataset        `json:"dataset"`
	Rows    []domain.ReferenceRow `json:"rows"`
}

type StatusResponse struct {
	Workspace    string         `json:"workspace"`
	SessionCount int            `json:"session_count"`
	StageCounts  map[string]int `json:"stage_counts"`
	DatasetCount int            `json:"dataset_count"`
}

// Conversion helpers

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		SessionID:  e.SessionID,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func apiKeyResponse(k domain.APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:        k.ID,
		ActorID:   k.ActorID,
		Name:      k.Name,
		CreatedAt: k.CreatedAt,
	}
}

func configResponse(cfg *config.Config) WorkspaceConfigResponse {
	return WorkspaceConfigResponse{
		Workspace: workspaceConfigSection{
			Name:   cfg.Workspace.Name,
			Tenant: cfg.Workspace.Tenant,
		},
		Contract: contractConfigSection{
			APIVersion:     cfg.Contract.APIVersion,
			Kind:           cfg.Contract.Kind,
			InitialVersion: cfg.Contract.InitialVersion,
		},
		Catalog: catalogConfigSection{
			Domains:         nonNilSlice(cfg.Catalog.Domains),
			Classifications: nonNilSlice(cfg.Catalog.Classifications),
			SLAProperties:   nonNilSlice(cfg.Catalog.SLAProperties),
			QualityEngines:  nonNilSlice(cfg.Catalog.QualityEngines),
		},
	}
}

func mapColumnMappings(in []ColumnMappingRequest) []engine.ColumnMapping {
	res := make([]engine.ColumnMapping, 0, len(in))
	for _, m := range in {
		res = append(res, engine.ColumnMapping(m))
	}
	return res
}

// JSON helpers

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var tmp any
	if err := json.Unmarshal([]byte(raw), &tmp); err != nil {
		return nil
	}
	if obj, ok := tmp.(map[string]any); ok {
		return obj
	}
	return nil
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
