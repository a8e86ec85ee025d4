package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"pactline/internal/domain"
	"pactline/internal/events"
	"pactline/internal/odcs"
	"pactline/internal/repo"
)

// ContractYAML renders the session's contract as an ODCS document and
// returns the suggested download filename alongside the YAML text.
func (e Engine) ContractYAML(ctx context.Context, sessionID string) (filename, yamlText string, err error) {
	s, err := e.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return "", "", err
	}
	text, err := odcs.Render(&s.Contract)
	if err != nil {
		return "", "", fmt.Errorf("render contract: %w", err)
	}
	return odcs.Filename(&s.Contract), text, nil
}

// notFoundError carries a specific message while still matching
// repo.ErrNotFound for status mapping.
type notFoundError struct{ msg string }

func (e notFoundError) Error() string        { return e.msg }
func (e notFoundError) Is(target error) bool { return target == repo.ErrNotFound }

func notFoundf(format string, args ...any) error {
	return notFoundError{msg: fmt.Sprintf(format, args...)}
}

var logicalTypes = map[string]bool{
	"string": true, "integer": true, "number": true, "boolean": true,
	"date": true, "timestamp": true, "time": true, "array": true, "object": true,
}

var serverTypes = map[string]bool{
	"snowflake": true, "bigquery": true, "databricks": true,
	"redshift": true, "postgres": true, "other": true,
}

var accessLevels = map[string]bool{"read": true, "write": true, "admin": true}

// mutateContract loads a session, applies fn to it, and persists the result
// with a contract.updated event in one transaction.
func (e Engine) mutateContract(ctx context.Context, sessionID, actorID, action string, fn func(s *domain.Session) error) (domain.Session, error) {
	s, err := e.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if err := fn(&s); err != nil {
		return domain.Session{}, err
	}
	s.UpdatedAt = e.nowString()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateSession(ctx, tx, s); err != nil {
		return domain.Session{}, fmt.Errorf("update session: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.TypeContractUpdated, s.ID, "contract", s.Contract.ID, actorID, events.EventPayload{"action": action}); err != nil {
		return domain.Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

func findObject(c *domain.Contract, name string) (*domain.SchemaObject, error) {
	for i := range c.SchemaObjects {
		if c.SchemaObjects[i].Name == name {
			return &c.SchemaObjects[i], nil
		}
	}
	return nil, notFoundf("Object '%s' not found", name)
}

func findProperty(obj *domain.SchemaObject, name string) (*domain.Property, error) {
	for i := range obj.Properties {
		if obj.Properties[i].Name == name {
			return &obj.Properties[i], nil
		}
	}
	return nil, notFoundf("Property '%s' not found in '%s'", name, obj.Name)
}

// MetadataUpdate holds partial contract metadata updates. Nil fields are
// left untouched.
type MetadataUpdate struct {
	Name                   *string
	Domain                 *string
	Tenant                 *string
	DataProduct            *string
	Version                *string
	DescriptionPurpose     *string
	DescriptionLimitations *string
	DescriptionUsage       *string
	Tags                   *[]string
}

func (e Engine) UpdateMetadata(ctx context.Context, sessionID, actorID string, upd MetadataUpdate) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "metadata", func(s *domain.Session) error {
		c := &s.Contract
		if upd.Name != nil {
			c.Name = *upd.Name
		}
		if upd.Domain != nil {
			c.Domain = *upd.Domain
		}
		if upd.Tenant != nil {
			c.Tenant = *upd.Tenant
		}
		if upd.DataProduct != nil {
			c.DataProduct = *upd.DataProduct
		}
		if upd.Version != nil {
			c.Version = *upd.Version
		}
		if upd.DescriptionPurpose != nil {
			c.DescriptionPurpose = *upd.DescriptionPurpose
		}
		if upd.DescriptionLimitations != nil {
			c.DescriptionLimitations = *upd.DescriptionLimitations
		}
		if upd.DescriptionUsage != nil {
			c.DescriptionUsage = *upd.DescriptionUsage
		}
		if upd.Tags != nil {
			c.Tags = *upd.Tags
		}
		return nil
	})
}

// ObjectOptions are parameters for adding a schema object.
type ObjectOptions struct {
	Name         string
	PhysicalName string
	Description  string
}

func (e Engine) AddObject(ctx context.Context, sessionID, actorID string, opts ObjectOptions) (domain.Session, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return domain.Session{}, errors.New("name is required")
	}
	return e.mutateContract(ctx, sessionID, actorID, "object.add", func(s *domain.Session) error {
		for _, o := range s.Contract.SchemaObjects {
			if o.Name == name {
				return fmt.Errorf("Object '%s' already exists", name)
			}
		}
		s.Contract.SchemaObjects = append(s.Contract.SchemaObjects, domain.SchemaObject{
			Name:         name,
			PhysicalName: opts.PhysicalName,
			Description:  opts.Description,
		})
		return nil
	})
}

// ObjectUpdate holds partial schema-object updates.
type ObjectUpdate struct {
	PhysicalName *string
	Description  *string
}

func (e Engine) UpdateObject(ctx context.Context, sessionID, objName, actorID string, upd ObjectUpdate) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "object.update", func(s *domain.Session) error {
		obj, err := findObject(&s.Contract, objName)
		if err != nil {
			return err
		}
		if upd.PhysicalName != nil {
			obj.PhysicalName = *upd.PhysicalName
		}
		if upd.Description != nil {
			obj.Description = *upd.Description
		}
		return nil
	})
}

func (e Engine) DeleteObject(ctx context.Context, sessionID, objName, actorID string) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "object.delete", func(s *domain.Session) error {
		objs := s.Contract.SchemaObjects
		for i := range objs {
			if objs[i].Name == objName {
				s.Contract.SchemaObjects = append(objs[:i], objs[i+1:]...)
				return nil
			}
		}
		return notFoundf("Object '%s' not found", objName)
	})
}

// PropertyOptions are parameters for adding a column to a schema object.
type PropertyOptions struct {
	Name                string
	LogicalType         string
	Description         string
	Required            bool
	PrimaryKey          bool
	Unique              bool
	Classification      string
	CriticalDataElement bool
	Examples            []string
}

func (e Engine) AddProperty(ctx context.Context, sessionID, objName, actorID string, opts PropertyOptions) (domain.Session, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return domain.Session{}, errors.New("name is required")
	}
	if opts.LogicalType == "" {
		opts.LogicalType = "string"
	}
	if !logicalTypes[opts.LogicalType] {
		return domain.Session{}, fmt.Errorf("invalid logical_type: %s", opts.LogicalType)
	}
	return e.mutateContract(ctx, sessionID, actorID, "property.add", func(s *domain.Session) error {
		obj, err := findObject(&s.Contract, objName)
		if err != nil {
			return err
		}
		for _, p := range obj.Properties {
			if p.Name == name {
				return fmt.Errorf("Property '%s' already exists in '%s'", name, objName)
			}
		}
		obj.Properties = append(obj.Properties, domain.Property{
			Name:                name,
			LogicalType:         opts.LogicalType,
			Description:         opts.Description,
			Required:            opts.Required,
			PrimaryKey:          opts.PrimaryKey,
			Unique:              opts.Unique,
			Classification:      opts.Classification,
			CriticalDataElement: opts.CriticalDataElement,
			Examples:            opts.Examples,
		})
		return nil
	})
}

// PropertyUpdate holds partial column updates. Rename applies last.
type PropertyUpdate struct {
	Name                *string
	LogicalType         *string
	Description         *string
	Required            *bool
	PrimaryKey          *bool
	PrimaryKeyPosition  *int
	Unique              *bool
	Classification      *string
	CriticalDataElement *bool
	Examples            *[]string
}

func (e Engine) UpdateProperty(ctx context.Context, sessionID, objName, propName, actorID string, upd PropertyUpdate) (domain.Session, error) {
	if upd.LogicalType != nil && !logicalTypes[*upd.LogicalType] {
		return domain.Session{}, fmt.Errorf("invalid logical_type: %s", *upd.LogicalType)
	}
	return e.mutateContract(ctx, sessionID, actorID, "property.update", func(s *domain.Session) error {
		obj, err := findObject(&s.Contract, objName)
		if err != nil {
			return err
		}
		prop, err := findProperty(obj, propName)
		if err != nil {
			return err
		}
		if upd.LogicalType != nil {
			prop.LogicalType = *upd.LogicalType
		}
		if upd.Description != nil {
			prop.Description = *upd.Description
		}
		if upd.Required != nil {
			prop.Required = *upd.Required
		}
		if upd.PrimaryKey != nil {
			prop.PrimaryKey = *upd.PrimaryKey
		}
		if upd.PrimaryKeyPosition != nil {
			prop.PrimaryKeyPosition = upd.PrimaryKeyPosition
		}
		if upd.Unique != nil {
			prop.Unique = *upd.Unique
		}
		if upd.Classification != nil {
			prop.Classification = *upd.Classification
		}
		if upd.CriticalDataElement != nil {
			prop.CriticalDataElement = *upd.CriticalDataElement
		}
		if upd.Examples != nil {
			prop.Examples = *upd.Examples
		}
		if upd.Name != nil && *upd.Name != propName {
			newName := strings.TrimSpace(*upd.Name)
			if newName == "" {
				return errors.New("column name cannot be empty")
			}
			for _, p := range obj.Properties {
				if p.Name == newName && p.Name != propName {
					return fmt.Errorf("Column '%s' already exists", newName)
				}
			}
			prop.Name = newName
		}
		return nil
	})
}

func (e Engine) DeleteProperty(ctx context.Context, sessionID, objName, propName, actorID string) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "property.delete", func(s *domain.Session) error {
		obj, err := findObject(&s.Contract, objName)
		if err != nil {
			return err
		}
		for i := range obj.Properties {
			if obj.Properties[i].Name == propName {
				obj.Properties = append(obj.Properties[:i], obj.Properties[i+1:]...)
				return nil
			}
		}
		return notFoundf("Property '%s' not found", propName)
	})
}

// ReorderProperty moves a column one slot up or down within its object and
// returns the column's new index. An edge move is a no-op.
func (e Engine) ReorderProperty(ctx context.Context, sessionID, objName, propName, direction, actorID string) (int, error) {
	direction = strings.ToLower(strings.TrimSpace(direction))
	if strings.TrimSpace(propName) == "" {
		return 0, errors.New("property_name is required")
	}
	if direction != "up" && direction != "down" {
		return 0, errors.New("direction must be 'up' or 'down'")
	}
	newIdx := -1
	_, err := e.mutateContract(ctx, sessionID, actorID, "property.reorder", func(s *domain.Session) error {
		obj, err := findObject(&s.Contract, objName)
		if err != nil {
			return err
		}
		idx := -1
		for i := range obj.Properties {
			if obj.Properties[i].Name == propName {
				idx = i
				break
			}
		}
		if idx < 0 {
			return notFoundf("Property '%s' not found", propName)
		}
		newIdx = idx
		switch {
		case direction == "up" && idx > 0:
			obj.Properties[idx], obj.Properties[idx-1] = obj.Properties[idx-1], obj.Properties[idx]
			newIdx = idx - 1
		case direction == "down" && idx < len(obj.Properties)-1:
			obj.Properties[idx], obj.Properties[idx+1] = obj.Properties[idx+1], obj.Properties[idx]
			newIdx = idx + 1
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newIdx, nil
}

// SourceTableOptions are parameters for attaching a lineage source table.
type SourceTableOptions struct {
	Name          string
	QualifiedName string
	DatabaseName  string
	SchemaName    string
	ConnectorName string
	Description   string
	Columns       []map[string]any
}

func (e Engine) AddSourceTable(ctx context.Context, sessionID, objName, actorID string, opts SourceTableOptions) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "source.add", func(s *domain.Session) error {
		obj, err := findObject(&s.Contract, objName)
		if err != nil {
			return err
		}
		if opts.QualifiedName != "" {
			for _, src := range obj.SourceTables {
				if src.QualifiedName == opts.QualifiedName {
					return fmt.Errorf("Source '%s' already added", opts.Name)
				}
			}
		}
		obj.SourceTables = append(obj.SourceTables, domain.SourceTable{
			Name:          opts.Name,
			QualifiedName: opts.QualifiedName,
			DatabaseName:  opts.DatabaseName,
			SchemaName:    opts.SchemaName,
			ConnectorName: opts.ConnectorName,
			Description:   opts.Description,
			Columns:       opts.Columns,
		})
		return nil
	})
}

func (e Engine) DeleteSourceTable(ctx context.Context, sessionID, objName string, idx int, actorID string) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "source.delete", func(s *domain.Session) error {
		obj, err := findObject(&s.Contract, objName)
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(obj.SourceTables) {
			return notFoundf("Source table not found")
		}
		obj.SourceTables = append(obj.SourceTables[:idx], obj.SourceTables[idx+1:]...)
		return nil
	})
}

// SourceColumns returns the cached column metadata of each source table,
// keyed by source table name.
func (e Engine) SourceColumns(ctx context.Context, sessionID, objName string) (map[string][]map[string]any, error) {
	s, err := e.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	obj, err := findObject(&s.Contract, objName)
	if err != nil {
		return nil, err
	}
	res := map[string][]map[string]any{}
	for _, src := range obj.SourceTables {
		if src.Columns != nil {
			res[src.Name] = src.Columns
		} else {
			res[src.Name] = []map[string]any{}
		}
	}
	return res, nil
}

// ColumnMapping maps one source column onto a target column.
type ColumnMapping struct {
	SourceTable          string
	SourceColumn         string
	TargetColumnName     string
	LogicalType          string
	Description          string
	IsPrimary            bool
	Required             bool
	TransformLogic       string
	TransformDescription string
}

// MapResult summarizes a batch column-mapping operation.
type MapResult struct {
	Added        int `json:"added"`
	Skipped      int `json:"skipped"`
	TotalColumns int `json:"total_columns"`
}

// MapColumns batch-creates target columns from source columns with lineage
// pre-populated. Mapping onto an existing column appends a lineage source to
// it instead of creating a duplicate.
func (e Engine) MapColumns(ctx context.Context, sessionID, objName, actorID string, mappings []ColumnMapping) (MapResult, error) {
	if len(mappings) == 0 {
		return MapResult{}, errors.New("No mappings provided")
	}
	var res MapResult
	_, err := e.mutateContract(ctx, sessionID, actorID, "columns.map", func(s *domain.Session) error {
		obj, err := findObject(&s.Contract, objName)
		if err != nil {
			return err
		}
		for _, m := range mappings {
			targetName := m.TargetColumnName
			if targetName == "" {
				targetName = m.SourceColumn
			}
			if targetName == "" {
				res.Skipped++
				continue
			}
			src := domain.ColumnSource{
				SourceTable:          m.SourceTable,
				SourceColumn:         m.SourceColumn,
				TransformLogic:       m.TransformLogic,
				TransformDescription: m.TransformDescription,
			}
			if prop, findErr := findProperty(obj, targetName); findErr == nil {
				dup := false
				for _, existing := range prop.Sources {
					if existing.SourceTable == src.SourceTable && existing.SourceColumn == src.SourceColumn {
						dup = true
						break
					}
				}
				if !dup {
					prop.Sources = append(prop.Sources, src)
				}
				res.Skipped++
				continue
			}
			lt := strings.ToLower(m.LogicalType)
			if !logicalTypes[lt] {
				lt = "string"
			}
			obj.Properties = append(obj.Properties, domain.Property{
				Name:        targetName,
				LogicalType: lt,
				Description: m.Description,
				Required:    m.IsPrimary || m.Required,
				PrimaryKey:  m.IsPrimary,
				Sources:     []domain.ColumnSource{src},
			})
			res.Added++
		}
		res.TotalColumns = len(obj.Properties)
		return nil
	})
	if err != nil {
		return MapResult{}, err
	}
	return res, nil
}

func (e Engine) AddColumnSource(ctx context.Context, sessionID, objName, propName, actorID string, src domain.ColumnSource) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "column_source.add", func(s *domain.Session) error {
		obj, err := findObject(&s.Contract, objName)
		if err != nil {
			return err
		}
		prop, err := findProperty(obj, propName)
		if err != nil {
			return err
		}
		prop.Sources = append(prop.Sources, src)
		return nil
	})
}

// ColumnSourceUpdate holds partial lineage-source updates.
type ColumnSourceUpdate struct {
	SourceTable          *string
	SourceColumn         *string
	TransformLogic       *string
	TransformDescription *string
}

func (e Engine) UpdateColumnSource(ctx context.Context, sessionID, objName, propName string, idx int, actorID string, upd ColumnSourceUpdate) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "column_source.update", func(s *domain.Session) error {
		obj, err := findObject(&s.Contract, objName)
		if err != nil {
			return err
		}
		prop, err := findProperty(obj, propName)
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(prop.Sources) {
			return notFoundf("Source not found")
		}
		src := &prop.Sources[idx]
		if upd.SourceTable != nil {
			src.SourceTable = *upd.SourceTable
		}
		if upd.SourceColumn != nil {
			src.SourceColumn = *upd.SourceColumn
		}
		if upd.TransformLogic != nil {
			src.TransformLogic = *upd.TransformLogic
		}
		if upd.TransformDescription != nil {
			src.TransformDescription = *upd.TransformDescription
		}
		return nil
	})
}

func (e Engine) DeleteColumnSource(ctx context.Context, sessionID, objName, propName string, idx int, actorID string) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "column_source.delete", func(s *domain.Session) error {
		obj, err := findObject(&s.Contract, objName)
		if err != nil {
			return err
		}
		prop, err := findProperty(obj, propName)
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(prop.Sources) {
			return notFoundf("Source not found")
		}
		prop.Sources = append(prop.Sources[:idx], prop.Sources[idx+1:]...)
		return nil
	})
}

var qualityTypes = map[string]bool{"text": true, "library": true, "sql": true, "custom": true}

// AddQualityCheck appends a quality rule and returns its generated ID.
func (e Engine) AddQualityCheck(ctx context.Context, sessionID, actorID string, check domain.QualityCheck) (string, error) {
	if check.Type == "" {
		check.Type = "text"
	}
	if !qualityTypes[check.Type] {
		return "", fmt.Errorf("invalid quality check type: %s", check.Type)
	}
	check.ID = uuid.NewString()
	_, err := e.mutateContract(ctx, sessionID, actorID, "quality.add", func(s *domain.Session) error {
		s.Contract.QualityChecks = append(s.Contract.QualityChecks, check)
		return nil
	})
	if err != nil {
		return "", err
	}
	return check.ID, nil
}

// QualityCheckUpdate holds partial quality-rule updates.
type QualityCheckUpdate struct {
	Type              *string
	Description       *string
	Dimension         *string
	Metric            *string
	Severity          *string
	MustBe            *string
	MustBeGreaterThan *float64
	MustBeLessThan    *float64
	Schedule          *string
	Scheduler         *string
	BusinessImpact    *string
	Method            *string
	Column            *string
	Query             *string
	Engine            *string
}

func (e Engine) UpdateQualityCheck(ctx context.Context, sessionID, checkID, actorID string, upd QualityCheckUpdate) (domain.Session, error) {
	if upd.Type != nil && !qualityTypes[*upd.Type] {
		return domain.Session{}, fmt.Errorf("invalid quality check type: %s", *upd.Type)
	}
	return e.mutateContract(ctx, sessionID, actorID, "quality.update", func(s *domain.Session) error {
		var check *domain.QualityCheck
		for i := range s.Contract.QualityChecks {
			if s.Contract.QualityChecks[i].ID == checkID {
				check = &s.Contract.QualityChecks[i]
				break
			}
		}
		if check == nil {
			return notFoundf("Quality check not found")
		}
		if upd.Type != nil {
			check.Type = *upd.Type
		}
		if upd.Description != nil {
			check.Description = *upd.Description
		}
		if upd.Dimension != nil {
			check.Dimension = *upd.Dimension
		}
		if upd.Metric != nil {
			check.Metric = *upd.Metric
		}
		if upd.Severity != nil {
			check.Severity = *upd.Severity
		}
		if upd.MustBe != nil {
			check.MustBe = *upd.MustBe
		}
		if upd.MustBeGreaterThan != nil {
			check.MustBeGreaterThan = upd.MustBeGreaterThan
		}
		if upd.MustBeLessThan != nil {
			check.MustBeLessThan = upd.MustBeLessThan
		}
		if upd.Schedule != nil {
			check.Schedule = *upd.Schedule
		}
		if upd.Scheduler != nil {
			check.Scheduler = *upd.Scheduler
		}
		if upd.BusinessImpact != nil {
			check.BusinessImpact = *upd.BusinessImpact
		}
		if upd.Method != nil {
			check.Method = *upd.Method
		}
		if upd.Column != nil {
			check.Column = *upd.Column
		}
		if upd.Query != nil {
			check.Query = *upd.Query
		}
		if upd.Engine != nil {
			check.Engine = *upd.Engine
		}
		return nil
	})
}

func (e Engine) DeleteQualityCheck(ctx context.Context, sessionID, checkID, actorID string) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "quality.delete", func(s *domain.Session) error {
		checks := s.Contract.QualityChecks
		for i := range checks {
			if checks[i].ID == checkID {
				s.Contract.QualityChecks = append(checks[:i], checks[i+1:]...)
				return nil
			}
		}
		return notFoundf("Quality check not found")
	})
}

// AddSLA appends an SLA property and returns its generated ID.
func (e Engine) AddSLA(ctx context.Context, sessionID, actorID string, sla domain.SLAProperty) (string, error) {
	sla.ID = uuid.NewString()
	_, err := e.mutateContract(ctx, sessionID, actorID, "sla.add", func(s *domain.Session) error {
		s.Contract.SLAProperties = append(s.Contract.SLAProperties, sla)
		return nil
	})
	if err != nil {
		return "", err
	}
	return sla.ID, nil
}

// SLAUpdate holds partial SLA-property updates.
type SLAUpdate struct {
	Property    *string
	Value       *string
	Unit        *string
	Description *string
	Schedule    *string
	Scheduler   *string
	Driver      *string
	Element     *string
}

func (e Engine) UpdateSLA(ctx context.Context, sessionID, slaID, actorID string, upd SLAUpdate) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "sla.update", func(s *domain.Session) error {
		var sla *domain.SLAProperty
		for i := range s.Contract.SLAProperties {
			if s.Contract.SLAProperties[i].ID == slaID {
				sla = &s.Contract.SLAProperties[i]
				break
			}
		}
		if sla == nil {
			return notFoundf("SLA property not found")
		}
		if upd.Property != nil {
			sla.Property = *upd.Property
		}
		if upd.Value != nil {
			sla.Value = *upd.Value
		}
		if upd.Unit != nil {
			sla.Unit = *upd.Unit
		}
		if upd.Description != nil {
			sla.Description = *upd.Description
		}
		if upd.Schedule != nil {
			sla.Schedule = *upd.Schedule
		}
		if upd.Scheduler != nil {
			sla.Scheduler = *upd.Scheduler
		}
		if upd.Driver != nil {
			sla.Driver = *upd.Driver
		}
		if upd.Element != nil {
			sla.Element = *upd.Element
		}
		return nil
	})
}

func (e Engine) DeleteSLA(ctx context.Context, sessionID, slaID, actorID string) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "sla.delete", func(s *domain.Session) error {
		slas := s.Contract.SLAProperties
		for i := range slas {
			if slas[i].ID == slaID {
				s.Contract.SLAProperties = append(slas[:i], slas[i+1:]...)
				return nil
			}
		}
		return notFoundf("SLA property not found")
	})
}

// DeleteSLAByIndex removes an SLA property by position. Kept for clients
// created before SLA entries carried IDs.
func (e Engine) DeleteSLAByIndex(ctx context.Context, sessionID string, idx int, actorID string) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "sla.delete", func(s *domain.Session) error {
		if idx < 0 || idx >= len(s.Contract.SLAProperties) {
			return notFoundf("SLA property not found")
		}
		s.Contract.SLAProperties = append(s.Contract.SLAProperties[:idx], s.Contract.SLAProperties[idx+1:]...)
		return nil
	})
}

func (e Engine) AddTeamMember(ctx context.Context, sessionID, actorID string, m domain.TeamMember) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "team.add", func(s *domain.Session) error {
		s.Contract.Team = append(s.Contract.Team, m)
		return nil
	})
}

func (e Engine) DeleteTeamMember(ctx context.Context, sessionID string, idx int, actorID string) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "team.delete", func(s *domain.Session) error {
		if idx < 0 || idx >= len(s.Contract.Team) {
			return notFoundf("Team member not found")
		}
		s.Contract.Team = append(s.Contract.Team[:idx], s.Contract.Team[idx+1:]...)
		return nil
	})
}

// AddServer appends a server entry and returns its generated ID.
func (e Engine) AddServer(ctx context.Context, sessionID, actorID string, srv domain.Server) (string, error) {
	if srv.Type == "" {
		srv.Type = "snowflake"
	}
	if !serverTypes[srv.Type] {
		return "", fmt.Errorf("invalid server type: %s", srv.Type)
	}
	if srv.Environment == "" {
		srv.Environment = "prod"
	}
	srv.ID = uuid.NewString()
	_, err := e.mutateContract(ctx, sessionID, actorID, "server.add", func(s *domain.Session) error {
		s.Contract.Servers = append(s.Contract.Servers, srv)
		return nil
	})
	if err != nil {
		return "", err
	}
	return srv.ID, nil
}

// ServerUpdate holds partial server-entry updates.
type ServerUpdate struct {
	Type        *string
	Environment *string
	Account     *string
	Database    *string
	SchemaName  *string
	Host        *string
	Description *string
}

func (e Engine) UpdateServer(ctx context.Context, sessionID, serverID, actorID string, upd ServerUpdate) (domain.Session, error) {
	if upd.Type != nil && !serverTypes[*upd.Type] {
		return domain.Session{}, fmt.Errorf("invalid server type: %s", *upd.Type)
	}
	return e.mutateContract(ctx, sessionID, actorID, "server.update", func(s *domain.Session) error {
		var srv *domain.Server
		for i := range s.Contract.Servers {
			if s.Contract.Servers[i].ID == serverID {
				srv = &s.Contract.Servers[i]
				break
			}
		}
		if srv == nil {
			return notFoundf("Server not found")
		}
		if upd.Type != nil {
			srv.Type = *upd.Type
		}
		if upd.Environment != nil {
			srv.Environment = *upd.Environment
		}
		if upd.Account != nil {
			srv.Account = *upd.Account
		}
		if upd.Database != nil {
			srv.Database = *upd.Database
		}
		if upd.SchemaName != nil {
			srv.SchemaName = *upd.SchemaName
		}
		if upd.Host != nil {
			srv.Host = *upd.Host
		}
		if upd.Description != nil {
			srv.Description = *upd.Description
		}
		return nil
	})
}

func (e Engine) DeleteServer(ctx context.Context, sessionID, serverID, actorID string) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "server.delete", func(s *domain.Session) error {
		servers := s.Contract.Servers
		for i := range servers {
			if servers[i].ID == serverID {
				s.Contract.Servers = append(servers[:i], servers[i+1:]...)
				return nil
			}
		}
		return notFoundf("Server not found")
	})
}

// AddRole appends a role entry and returns its generated ID.
func (e Engine) AddRole(ctx context.Context, sessionID, actorID string, role domain.ContractRole) (string, error) {
	if role.Access == "" {
		role.Access = "read"
	}
	if !accessLevels[role.Access] {
		return "", fmt.Errorf("invalid access level: %s", role.Access)
	}
	role.ID = uuid.NewString()
	_, err := e.mutateContract(ctx, sessionID, actorID, "role.add", func(s *domain.Session) error {
		s.Contract.Roles = append(s.Contract.Roles, role)
		return nil
	})
	if err != nil {
		return "", err
	}
	return role.ID, nil
}

// RoleUpdate holds partial role-entry updates.
type RoleUpdate struct {
	Role        *string
	Access      *string
	Approvers   *[]domain.RoleApprover
	Description *string
}

func (e Engine) UpdateRole(ctx context.Context, sessionID, roleID, actorID string, upd RoleUpdate) (domain.Session, error) {
	if upd.Access != nil && !accessLevels[*upd.Access] {
		return domain.Session{}, fmt.Errorf("invalid access level: %s", *upd.Access)
	}
	return e.mutateContract(ctx, sessionID, actorID, "role.update", func(s *domain.Session) error {
		var role *domain.ContractRole
		for i := range s.Contract.Roles {
			if s.Contract.Roles[i].ID == roleID {
				role = &s.Contract.Roles[i]
				break
			}
		}
		if role == nil {
			return notFoundf("Role not found")
		}
		if upd.Role != nil {
			role.Role = *upd.Role
		}
		if upd.Access != nil {
			role.Access = *upd.Access
		}
		if upd.Approvers != nil {
			role.Approvers = *upd.Approvers
		}
		if upd.Description != nil {
			role.Description = *upd.Description
		}
		return nil
	})
}

func (e Engine) DeleteRole(ctx context.Context, sessionID, roleID, actorID string) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "role.delete", func(s *domain.Session) error {
		roles := s.Contract.Roles
		for i := range roles {
			if roles[i].ID == roleID {
				s.Contract.Roles = append(roles[:i], roles[i+1:]...)
				return nil
			}
		}
		return notFoundf("Role not found")
	})
}

// AddCustomProperty appends a key-value entry and returns its generated ID.
func (e Engine) AddCustomProperty(ctx context.Context, sessionID, actorID, key, value string) (string, error) {
	id := uuid.NewString()
	_, err := e.mutateContract(ctx, sessionID, actorID, "custom_property.add", func(s *domain.Session) error {
		s.Contract.CustomProperties = append(s.Contract.CustomProperties, domain.CustomProperty{ID: id, Key: key, Value: value})
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (e Engine) DeleteCustomProperty(ctx context.Context, sessionID, propID, actorID string) (domain.Session, error) {
	return e.mutateContract(ctx, sessionID, actorID, "custom_property.delete", func(s *domain.Session) error {
		props := s.Contract.CustomProperties
		for i := range props {
			if props[i].ID == propID {
				s.Contract.CustomProperties = append(props[:i], props[i+1:]...)
				return nil
			}
		}
		return notFoundf("Custom property not found")
	})
}
