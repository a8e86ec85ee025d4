// Package odcs renders a contract into an Open Data Contract Standard
// v3.1.0 YAML document. The internal model is flat and snake_case; the
// wire form is nested camelCase with empty fields omitted.
package odcs

import (
	"strings"

	"gopkg.in/yaml.v3"

	"pactline/internal/domain"
)

type description struct {
	Purpose     string `yaml:"purpose,omitempty"`
	Limitations string `yaml:"limitations,omitempty"`
	Usage       string `yaml:"usage,omitempty"`
}

type property struct {
	Name                   string   `yaml:"name"`
	LogicalType            string   `yaml:"logicalType"`
	Description            string   `yaml:"description,omitempty"`
	Required               bool     `yaml:"required,omitempty"`
	PrimaryKey             bool     `yaml:"primaryKey,omitempty"`
	PrimaryKeyPosition     *int     `yaml:"primaryKeyPosition,omitempty"`
	Unique                 bool     `yaml:"unique,omitempty"`
	Classification         string   `yaml:"classification,omitempty"`
	CriticalDataElement    bool     `yaml:"criticalDataElement,omitempty"`
	Examples               []string `yaml:"examples,omitempty"`
	TransformSourceObjects []string `yaml:"transformSourceObjects,omitempty"`
	TransformLogic         string   `yaml:"transformLogic,omitempty"`
	TransformDescription   string   `yaml:"transformDescription,omitempty"`
}

type schemaObject struct {
	Name         string     `yaml:"name"`
	PhysicalName string     `yaml:"physicalName,omitempty"`
	Description  string     `yaml:"description,omitempty"`
	Properties   []property `yaml:"properties,omitempty"`
}

type qualityCheck struct {
	Type              string   `yaml:"type"`
	Description       string   `yaml:"description,omitempty"`
	Dimension         string   `yaml:"dimension,omitempty"`
	Metric            string   `yaml:"metric,omitempty"`
	Severity          string   `yaml:"severity,omitempty"`
	MustBe            string   `yaml:"mustBe,omitempty"`
	MustBeGreaterThan *float64 `yaml:"mustBeGreaterThan,omitempty"`
	MustBeLessThan    *float64 `yaml:"mustBeLessThan,omitempty"`
	Schedule          string   `yaml:"schedule,omitempty"`
	Scheduler         string   `yaml:"scheduler,omitempty"`
	BusinessImpact    string   `yaml:"businessImpact,omitempty"`
	Method            string   `yaml:"method,omitempty"`
	Column            string   `yaml:"column,omitempty"`
	Query             string   `yaml:"query,omitempty"`
	Engine            string   `yaml:"engine,omitempty"`
}

type slaProperty struct {
	Property    string `yaml:"property"`
	Value       string `yaml:"value"`
	Unit        string `yaml:"unit,omitempty"`
	Description string `yaml:"description,omitempty"`
	Schedule    string `yaml:"schedule,omitempty"`
	Scheduler   string `yaml:"scheduler,omitempty"`
	Driver      string `yaml:"driver,omitempty"`
	Element     string `yaml:"element,omitempty"`
}

type teamMember struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

type server struct {
	Type        string `yaml:"type"`
	Environment string `yaml:"environment"`
	Account     string `yaml:"account,omitempty"`
	Database    string `yaml:"database,omitempty"`
	Schema      string `yaml:"schema,omitempty"`
	Host        string `yaml:"host,omitempty"`
	Description string `yaml:"description,omitempty"`
}

type role struct {
	Role        string   `yaml:"role"`
	Access      string   `yaml:"access"`
	Approvers   []string `yaml:"approvers,omitempty"`
	Description string   `yaml:"description,omitempty"`
}

type customProperty struct {
	Property string `yaml:"property"`
	Value    string `yaml:"value"`
}

type document struct {
	APIVersion       string           `yaml:"apiVersion"`
	Kind             string           `yaml:"kind"`
	ID               string           `yaml:"id"`
	Version          string           `yaml:"version"`
	Status           string           `yaml:"status"`
	Name             string           `yaml:"name,omitempty"`
	Domain           string           `yaml:"domain,omitempty"`
	Tenant           string           `yaml:"tenant,omitempty"`
	DataProduct      string           `yaml:"dataProduct,omitempty"`
	Tags             []string         `yaml:"tags,omitempty"`
	Description      *description     `yaml:"description,omitempty"`
	Schema           []schemaObject   `yaml:"schema,omitempty"`
	Quality          []qualityCheck   `yaml:"quality,omitempty"`
	SLAProperties    []slaProperty    `yaml:"slaProperties,omitempty"`
	Team             []teamMember     `yaml:"team,omitempty"`
	Servers          []server         `yaml:"servers,omitempty"`
	Roles            []role           `yaml:"roles,omitempty"`
	CustomProperties []customProperty `yaml:"customProperties,omitempty"`
}

func wireProperty(p domain.Property) property {
	out := property{
		Name:                p.Name,
		LogicalType:         p.LogicalType,
		Description:         p.Description,
		Required:            p.Required,
		PrimaryKey:          p.PrimaryKey,
		PrimaryKeyPosition:  p.PrimaryKeyPosition,
		Unique:              p.Unique,
		Classification:      p.Classification,
		CriticalDataElement: p.CriticalDataElement,
		Examples:            p.Examples,
	}
	if len(p.Sources) > 0 {
		for _, src := range p.Sources {
			out.TransformSourceObjects = append(out.TransformSourceObjects, src.SourceTable)
		}
		out.TransformLogic = joinNonEmpty(p.Sources, func(s domain.ColumnSource) string { return s.TransformLogic })
		out.TransformDescription = joinNonEmpty(p.Sources, func(s domain.ColumnSource) string { return s.TransformDescription })
	}
	return out
}

func joinNonEmpty(sources []domain.ColumnSource, pick func(domain.ColumnSource) string) string {
	var parts []string
	for _, s := range sources {
		if v := pick(s); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "; ")
}

func wireDocument(c *domain.Contract) document {
	doc := document{
		APIVersion:  c.APIVersion,
		Kind:        c.Kind,
		ID:          c.ID,
		Version:     c.Version,
		Status:      c.Status,
		Name:        c.Name,
		Domain:      c.Domain,
		Tenant:      c.Tenant,
		DataProduct: c.DataProduct,
		Tags:        c.Tags,
	}

	if c.DescriptionPurpose != "" || c.DescriptionLimitations != "" || c.DescriptionUsage != "" {
		doc.Description = &description{
			Purpose:     c.DescriptionPurpose,
			Limitations: c.DescriptionLimitations,
			Usage:       c.DescriptionUsage,
		}
	}

	for _, obj := range c.SchemaObjects {
		wire := schemaObject{
			Name:         obj.Name,
			PhysicalName: obj.PhysicalName,
			Description:  obj.Description,
		}
		for _, p := range obj.Properties {
			wire.Properties = append(wire.Properties, wireProperty(p))
		}
		doc.Schema = append(doc.Schema, wire)
	}

	for _, q := range c.QualityChecks {
		doc.Quality = append(doc.Quality, qualityCheck{
			Type:              q.Type,
			Description:       q.Description,
			Dimension:         q.Dimension,
			Metric:            q.Metric,
			Severity:          q.Severity,
			MustBe:            q.MustBe,
			MustBeGreaterThan: q.MustBeGreaterThan,
			MustBeLessThan:    q.MustBeLessThan,
			Schedule:          q.Schedule,
			Scheduler:         q.Scheduler,
			BusinessImpact:    q.BusinessImpact,
			Method:            q.Method,
			Column:            q.Column,
			Query:             q.Query,
			Engine:            q.Engine,
		})
	}

	for _, s := range c.SLAProperties {
		doc.SLAProperties = append(doc.SLAProperties, slaProperty{
			Property:    s.Property,
			Value:       s.Value,
			Unit:        s.Unit,
			Description: s.Description,
			Schedule:    s.Schedule,
			Scheduler:   s.Scheduler,
			Driver:      s.Driver,
			Element:     s.Element,
		})
	}

	for _, t := range c.Team {
		doc.Team = append(doc.Team, teamMember{Name: t.Name, Email: t.Email, Role: t.Role})
	}

	for _, s := range c.Servers {
		doc.Servers = append(doc.Servers, server{
			Type:        s.Type,
			Environment: s.Environment,
			Account:     s.Account,
			Database:    s.Database,
			Schema:      s.SchemaName,
			Host:        s.Host,
			Description: s.Description,
		})
	}

	for _, r := range c.Roles {
		wire := role{Role: r.Role, Access: r.Access, Description: r.Description}
		for _, a := range r.Approvers {
			wire.Approvers = append(wire.Approvers, a.Email)
		}
		doc.Roles = append(doc.Roles, wire)
	}

	for _, p := range c.CustomProperties {
		doc.CustomProperties = append(doc.CustomProperties, customProperty{Property: p.Key, Value: p.Value})
	}

	return doc
}

// Render produces the ODCS v3.1.0 YAML document for the contract.
// Keys follow the model's field order, empty optional fields are dropped,
// and long scalar values are never line-wrapped.
func Render(c *domain.Contract) (string, error) {
	doc := wireDocument(c)
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Filename derives the export file name from the contract name: lowercased,
// whitespace runs collapsed to single underscores, suffixed ".odcs.yaml".
// An unnamed contract exports as "contract.odcs.yaml".
func Filename(c *domain.Contract) string {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = "contract"
	}
	name = strings.ToLower(name)
	name = strings.Join(strings.Fields(name), "_")
	return name + ".odcs.yaml"
}
