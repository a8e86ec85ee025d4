package odcs_test

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"pactline/internal/domain"
	"pactline/internal/odcs"
)

func baseContract() *domain.Contract {
	return &domain.Contract{
		APIVersion: "v3.1.0",
		Kind:       "DataContract",
		ID:         "11111111-2222-3333-4444-555555555555",
		Version:    "0.1.0",
		Status:     "draft",
	}
}

func render(t *testing.T, c *domain.Contract) string {
	t.Helper()
	out, err := odcs.Render(c)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return out
}

func parse(t *testing.T, out string) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("parse rendered yaml: %v", err)
	}
	return doc
}

func TestMinimalDocument(t *testing.T) {
	out := render(t, baseContract())
	doc := parse(t, out)
	for _, key := range []string{"apiVersion", "kind", "id", "version", "status"} {
		if _, ok := doc[key]; !ok {
			t.Fatalf("missing required key %q in:\n%s", key, out)
		}
	}
	for _, key := range []string{"name", "domain", "tags", "description", "schema", "quality", "slaProperties", "team", "servers", "roles", "customProperties"} {
		if _, ok := doc[key]; ok {
			t.Fatalf("empty key %q should be omitted in:\n%s", key, out)
		}
	}
	if !strings.HasPrefix(out, "apiVersion: v3.1.0\n") {
		t.Fatalf("apiVersion must come first:\n%s", out)
	}
}

func TestDescriptionBlock(t *testing.T) {
	c := baseContract()
	c.DescriptionPurpose = "Daily revenue reporting"
	out := render(t, c)
	doc := parse(t, out)
	desc, ok := doc["description"].(map[string]any)
	if !ok {
		t.Fatalf("expected description block:\n%s", out)
	}
	if desc["purpose"] != "Daily revenue reporting" {
		t.Fatalf("purpose mismatch: %v", desc)
	}
	if _, ok := desc["limitations"]; ok {
		t.Fatalf("empty limitations should be omitted: %v", desc)
	}
}

func TestSchemaAndPropertyFlags(t *testing.T) {
	pos := 1
	c := baseContract()
	c.SchemaObjects = []domain.SchemaObject{{
		Name:         "orders",
		PhysicalName: "fct_orders",
		Properties: []domain.Property{
			{Name: "order_id", LogicalType: "string", Required: true, PrimaryKey: true, PrimaryKeyPosition: &pos, Unique: true},
			{Name: "amount", LogicalType: "number"},
		},
	}}
	out := render(t, c)
	doc := parse(t, out)
	schema := doc["schema"].([]any)
	obj := schema[0].(map[string]any)
	if obj["physicalName"] != "fct_orders" {
		t.Fatalf("physicalName missing: %v", obj)
	}
	props := obj["properties"].([]any)
	first := props[0].(map[string]any)
	if first["required"] != true || first["primaryKey"] != true || first["unique"] != true {
		t.Fatalf("boolean flags should be emitted when true: %v", first)
	}
	if first["primaryKeyPosition"] != 1 {
		t.Fatalf("primaryKeyPosition: %v", first)
	}
	second := props[1].(map[string]any)
	for _, key := range []string{"required", "primaryKey", "unique", "primaryKeyPosition", "criticalDataElement"} {
		if _, ok := second[key]; ok {
			t.Fatalf("false/absent flag %q should be omitted: %v", key, second)
		}
	}
	if second["logicalType"] != "number" {
		t.Fatalf("logicalType always emitted: %v", second)
	}
}

func TestLineageJoin(t *testing.T) {
	c := baseContract()
	c.SchemaObjects = []domain.SchemaObject{{
		Name: "orders",
		Properties: []domain.Property{{
			Name:        "total",
			LogicalType: "number",
			Sources: []domain.ColumnSource{
				{SourceTable: "raw.orders", SourceColumn: "amt", TransformLogic: "SUM(amt)"},
				{SourceTable: "raw.fees", SourceColumn: "fee"},
				{SourceTable: "raw.orders", SourceColumn: "tax", TransformLogic: "SUM(tax)"},
			},
		}},
	}}
	out := render(t, c)
	doc := parse(t, out)
	prop := doc["schema"].([]any)[0].(map[string]any)["properties"].([]any)[0].(map[string]any)
	srcs := prop["transformSourceObjects"].([]any)
	// positional, duplicates preserved
	if len(srcs) != 3 || srcs[0] != "raw.orders" || srcs[1] != "raw.fees" || srcs[2] != "raw.orders" {
		t.Fatalf("transformSourceObjects: %v", srcs)
	}
	if prop["transformLogic"] != "SUM(amt); SUM(tax)" {
		t.Fatalf("transformLogic join: %v", prop["transformLogic"])
	}
	if _, ok := prop["transformDescription"]; ok {
		t.Fatalf("all-empty transformDescription should be omitted: %v", prop)
	}
}

func TestLineageSingleSource(t *testing.T) {
	c := baseContract()
	c.SchemaObjects = []domain.SchemaObject{{
		Name: "orders",
		Properties: []domain.Property{{
			Name:        "id",
			LogicalType: "string",
			Sources:     []domain.ColumnSource{{SourceTable: "raw.orders", SourceColumn: "id", TransformLogic: "UPPER(id)"}},
		}},
	}}
	doc := parse(t, render(t, c))
	prop := doc["schema"].([]any)[0].(map[string]any)["properties"].([]any)[0].(map[string]any)
	// single value, no trailing separator
	if prop["transformLogic"] != "UPPER(id)" {
		t.Fatalf("transformLogic: %q", prop["transformLogic"])
	}
}

func TestNoSourcesOmitsLineageKeys(t *testing.T) {
	c := baseContract()
	c.SchemaObjects = []domain.SchemaObject{{
		Name:       "orders",
		Properties: []domain.Property{{Name: "id", LogicalType: "string"}},
	}}
	doc := parse(t, render(t, c))
	prop := doc["schema"].([]any)[0].(map[string]any)["properties"].([]any)[0].(map[string]any)
	for _, key := range []string{"transformSourceObjects", "transformLogic", "transformDescription"} {
		if _, ok := prop[key]; ok {
			t.Fatalf("%q should be omitted without sources: %v", key, prop)
		}
	}
}

func TestQualityAndSLA(t *testing.T) {
	gt := 0.99
	c := baseContract()
	c.QualityChecks = []domain.QualityCheck{{
		ID: "q1", Type: "sql", Description: "row count stable",
		Dimension: "completeness", MustBeGreaterThan: &gt,
		Query: "SELECT COUNT(*) FROM orders", Engine: "monte-carlo",
	}}
	c.SLAProperties = []domain.SLAProperty{{
		ID: "s1", Property: "freshness", Value: "4", Unit: "hours", Element: "orders",
	}}
	doc := parse(t, render(t, c))
	q := doc["quality"].([]any)[0].(map[string]any)
	if q["type"] != "sql" || q["mustBeGreaterThan"] != 0.99 || q["engine"] != "monte-carlo" {
		t.Fatalf("quality: %v", q)
	}
	if _, ok := q["id"]; ok {
		t.Fatalf("internal id should not leak into the document: %v", q)
	}
	s := doc["slaProperties"].([]any)[0].(map[string]any)
	if s["property"] != "freshness" || s["unit"] != "hours" || s["element"] != "orders" {
		t.Fatalf("sla: %v", s)
	}
}

func TestServersRolesCustomProperties(t *testing.T) {
	c := baseContract()
	c.Servers = []domain.Server{{
		ID: "srv1", Type: "snowflake", Environment: "prod",
		Database: "ANALYTICS", SchemaName: "MARTS",
	}}
	c.Roles = []domain.ContractRole{{
		ID: "r1", Role: "Data Consumer", Access: "read",
		Approvers: []domain.RoleApprover{{Username: "jdoe", Email: "jdoe@example.com"}},
	}}
	c.CustomProperties = []domain.CustomProperty{{ID: "cp1", Key: "costCenter", Value: "CC-42"}}
	doc := parse(t, render(t, c))
	srv := doc["servers"].([]any)[0].(map[string]any)
	if srv["schema"] != "MARTS" {
		t.Fatalf("server schema key must be 'schema': %v", srv)
	}
	if _, ok := srv["account"]; ok {
		t.Fatalf("empty account should be omitted: %v", srv)
	}
	role := doc["roles"].([]any)[0].(map[string]any)
	approvers := role["approvers"].([]any)
	if len(approvers) != 1 || approvers[0] != "jdoe@example.com" {
		t.Fatalf("approvers should be emails: %v", role)
	}
	cp := doc["customProperties"].([]any)[0].(map[string]any)
	if cp["property"] != "costCenter" || cp["value"] != "CC-42" {
		t.Fatalf("customProperties: %v", cp)
	}
}

func TestLongScalarsNotWrapped(t *testing.T) {
	long := "CASE WHEN " + strings.Repeat("col_a = 'some_long_value' AND ", 10) + "1=1 THEN amount ELSE 0 END"
	c := baseContract()
	c.SchemaObjects = []domain.SchemaObject{{
		Name: "orders",
		Properties: []domain.Property{{
			Name:        "amount",
			LogicalType: "number",
			Sources:     []domain.ColumnSource{{SourceTable: "raw.orders", SourceColumn: "amount", TransformLogic: long}},
		}},
	}}
	out := render(t, c)
	found := false
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "transformLogic:") {
			found = true
			if !strings.Contains(line, "THEN amount ELSE 0 END") {
				t.Fatalf("transformLogic was wrapped across lines:\n%s", out)
			}
		}
	}
	if !found {
		t.Fatalf("transformLogic missing:\n%s", out)
	}
}

func TestFilename(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Customer Orders", "customer_orders.odcs.yaml"},
		{"  Revenue\t Daily  Report ", "revenue_daily_report.odcs.yaml"},
		{"orders", "orders.odcs.yaml"},
		{"", "contract.odcs.yaml"},
	}
	for _, tc := range cases {
		c := baseContract()
		c.Name = tc.name
		if got := odcs.Filename(c); got != tc.want {
			t.Fatalf("Filename(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
