package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/graph-gophers/graphql-go"

	"github.com/nucleus/todo-api/internal/database"
)

// FieldMapping binds one field of the ToDo type to its storage column.
type FieldMapping struct {
	Field       string   // GraphQL field name
	GraphQLType string   // GraphQL type in SDL notation
	Column      string   // column of database.TodosTable
	ColumnTypes []string // accepted database type names, upper case
}

// TodoFieldMap is the wire-to-storage mapping of ToDo. Int is 32-bit on the
// wire, so only 32-bit integer id columns are accepted.
var TodoFieldMap = []FieldMapping{
	{Field: "id", GraphQLType: "Int!", Column: "id", ColumnTypes: []string{"INT4", "INTEGER"}},
	{Field: "title", GraphQLType: "String!", Column: "title", ColumnTypes: []string{"TEXT", "VARCHAR"}},
	{Field: "description", GraphQLType: "String!", Column: "description", ColumnTypes: []string{"TEXT", "VARCHAR"}},
	{Field: "completed", GraphQLType: "Boolean!", Column: "completed", ColumnTypes: []string{"BOOL", "BOOLEAN"}},
}

// ColumnInspector reports the database type names of table columns.
type ColumnInspector interface {
	ColumnTypes(ctx context.Context, table string, columns []string) (map[string]string, error)
}

// VerifyFieldMap checks TodoFieldMap against both ends: the ToDo type of
// schema and the columns reported by db. It is meant to run once at startup.
func VerifyFieldMap(ctx context.Context, schema *graphql.Schema, db ColumnInspector) error {
	fields, err := introspectFields(ctx, schema, "ToDo")
	if err != nil {
		return err
	}

	var errs []error
	seen := make(map[string]bool, len(TodoFieldMap))
	columns := make([]string, 0, len(TodoFieldMap))
	for _, m := range TodoFieldMap {
		seen[m.Field] = true
		columns = append(columns, m.Column)

		got, ok := fields[m.Field]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("field ToDo.%s is mapped but missing from the schema", m.Field))
		case got != m.GraphQLType:
			errs = append(errs, fmt.Errorf("field ToDo.%s has type %s, mapping expects %s", m.Field, got, m.GraphQLType))
		}
	}
	for name := range fields {
		if !seen[name] {
			errs = append(errs, fmt.Errorf("field ToDo.%s has no storage mapping", name))
		}
	}

	types, err := db.ColumnTypes(ctx, database.TodosTable, columns)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	for _, m := range TodoFieldMap {
		got, ok := types[m.Column]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("column %s.%s is missing", database.TodosTable, m.Column))
		case !slices.Contains(m.ColumnTypes, got):
			errs = append(errs, fmt.Errorf("column %s.%s has type %s, mapping for %s accepts %s",
				database.TodosTable, m.Column, got, m.GraphQLType, strings.Join(m.ColumnTypes, "|")))
		}
	}

	return errors.Join(errs...)
}

const typeFieldsQuery = `query($name: String!) {
  __type(name: $name) {
    fields { name type { ...TypeRef } }
  }
}

fragment TypeRef on __Type {
  kind name
  ofType { kind name ofType { kind name ofType { kind name } } }
}`

type typeRef struct {
	Kind   string   `json:"kind"`
	Name   *string  `json:"name"`
	OfType *typeRef `json:"ofType"`
}

// String renders the reference in SDL notation, e.g. [Int!]!.
func (t *typeRef) String() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case "NON_NULL":
		return t.OfType.String() + "!"
	case "LIST":
		return "[" + t.OfType.String() + "]"
	}
	if t.Name == nil {
		return ""
	}
	return *t.Name
}

// introspectFields returns the fields of the named object type with their
// SDL type.
func introspectFields(ctx context.Context, schema *graphql.Schema, typeName string) (map[string]string, error) {
	resp := schema.Exec(ctx, typeFieldsQuery, "", map[string]interface{}{"name": typeName})
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("failed to introspect type %s: %v", typeName, resp.Errors[0])
	}

	var data struct {
		Type *struct {
			Fields []struct {
				Name string   `json:"name"`
				Type *typeRef `json:"type"`
			} `json:"fields"`
		} `json:"__type"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode introspection result: %w", err)
	}
	if data.Type == nil {
		return nil, fmt.Errorf("type %s is not defined in the schema", typeName)
	}

	fields := make(map[string]string, len(data.Type.Fields))
	for _, f := range data.Type.Fields {
		fields[f.Name] = f.Type.String()
	}
	return fields, nil
}
