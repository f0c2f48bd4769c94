package graph

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/graph-gophers/graphql-go"
	"go.uber.org/zap"
)

//go:embed schema.graphql
var schemaSDL string

// SchemaSDL returns the GraphQL schema served by the API.
func SchemaSDL() string {
	return schemaSDL
}

// Options tunes the execution engine.
type Options struct {
	MaxParallelism int
	MaxDepth       int
	Logger         *zap.Logger
}

// NewSchema parses the schema against r. Parsing fails if any schema field
// lacks a resolver or a resolver returns a type the field cannot carry.
func NewSchema(r *Resolver, opts Options) (*graphql.Schema, error) {
	schemaOpts := []graphql.SchemaOpt{}
	if opts.MaxParallelism > 0 {
		schemaOpts = append(schemaOpts, graphql.MaxParallelism(opts.MaxParallelism))
	}
	if opts.MaxDepth > 0 {
		schemaOpts = append(schemaOpts, graphql.MaxDepth(opts.MaxDepth))
	}
	if opts.Logger != nil {
		schemaOpts = append(schemaOpts, graphql.Logger(panicLogger{log: opts.Logger}))
	}

	schema, err := graphql.ParseSchema(schemaSDL, r, schemaOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse graphql schema: %w", err)
	}
	return schema, nil
}

// panicLogger reports resolver panics recovered by the engine.
type panicLogger struct {
	log *zap.Logger
}

func (l panicLogger) LogPanic(ctx context.Context, value interface{}) {
	l.log.Error("graphql resolver panic", zap.Any("panic", value), zap.Stack("stack"))
}
