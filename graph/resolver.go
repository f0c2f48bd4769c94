// Package graph provides the GraphQL schema and resolvers for the todo-api.
package graph

import (
	"github.com/nucleus/todo-api/internal/database"
)

// Resolver is the root resolver for GraphQL queries and mutations.
type Resolver struct {
	db *database.Client
}

// NewResolver creates a new resolver with the given dependencies.
func NewResolver(db *database.Client) *Resolver {
	return &Resolver{
		db: db,
	}
}
