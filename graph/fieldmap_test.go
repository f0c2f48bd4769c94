package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInspector struct {
	types map[string]string
	err   error
}

func (f fakeInspector) ColumnTypes(ctx context.Context, table string, columns []string) (map[string]string, error) {
	return f.types, f.err
}

func postgresColumns() map[string]string {
	return map[string]string{
		"id":          "INT4",
		"title":       "TEXT",
		"description": "TEXT",
		"completed":   "BOOL",
	}
}

func TestVerifyFieldMapAgainstSQLite(t *testing.T) {
	schema, db := newTestSchema(t)
	require.NoError(t, VerifyFieldMap(context.Background(), schema, db))
}

func TestVerifyFieldMapAgainstPostgresTypes(t *testing.T) {
	schema, _ := newTestSchema(t)
	require.NoError(t, VerifyFieldMap(context.Background(), schema, fakeInspector{types: postgresColumns()}))
}

func TestVerifyFieldMapRejectsMismatches(t *testing.T) {
	schema, _ := newTestSchema(t)

	tests := []struct {
		name    string
		mutate  func(types map[string]string)
		wantErr string
	}{
		{
			name:    "64-bit id",
			mutate:  func(types map[string]string) { types["id"] = "INT8" },
			wantErr: "column todos.id has type INT8",
		},
		{
			name:    "integer flag",
			mutate:  func(types map[string]string) { types["completed"] = "INT4" },
			wantErr: "column todos.completed has type INT4",
		},
		{
			name:    "missing column",
			mutate:  func(types map[string]string) { delete(types, "description") },
			wantErr: "column todos.description is missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			types := postgresColumns()
			tt.mutate(types)

			err := VerifyFieldMap(context.Background(), schema, fakeInspector{types: types})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestVerifyFieldMapPropagatesInspectorError(t *testing.T) {
	schema, _ := newTestSchema(t)
	errNoTable := errors.New("no such table: todos")

	err := VerifyFieldMap(context.Background(), schema, fakeInspector{err: errNoTable})
	require.ErrorIs(t, err, errNoTable)
}

func TestIntrospectFieldsMatchesFieldMap(t *testing.T) {
	schema, _ := newTestSchema(t)

	fields, err := introspectFields(context.Background(), schema, "ToDo")
	require.NoError(t, err)

	want := make(map[string]string, len(TodoFieldMap))
	for _, m := range TodoFieldMap {
		want[m.Field] = m.GraphQLType
	}
	assert.Equal(t, want, fields)

	_, err = introspectFields(context.Background(), schema, "Nope")
	assert.Error(t, err)
}

func TestTypeRefString(t *testing.T) {
	name := func(s string) *string { return &s }

	tests := []struct {
		ref  *typeRef
		want string
	}{
		{ref: &typeRef{Kind: "SCALAR", Name: name("Int")}, want: "Int"},
		{ref: &typeRef{Kind: "NON_NULL", OfType: &typeRef{Kind: "SCALAR", Name: name("Int")}}, want: "Int!"},
		{
			ref: &typeRef{Kind: "NON_NULL", OfType: &typeRef{Kind: "LIST", OfType: &typeRef{
				Kind: "NON_NULL", OfType: &typeRef{Kind: "OBJECT", Name: name("ToDo")},
			}}},
			want: "[ToDo!]!",
		},
		{ref: nil, want: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.ref.String())
	}
}
