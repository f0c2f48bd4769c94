package graph

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/nucleus/todo-api/internal/database"
	"github.com/nucleus/todo-api/internal/logging"
)

// ErrStorage is the error clients see when the database fails. The cause is
// logged, not returned.
var ErrStorage = errors.New("internal storage error")

// storageError logs err against the request and hides it from the client.
func storageError(ctx context.Context, op string, err error) error {
	logging.FromContext(ctx).Error("resolver storage failure",
		zap.String("operation", op),
		zap.Error(err),
	)
	return ErrStorage
}

// =============================================================================
// QUERY RESOLVERS
// =============================================================================

// AllTodos returns every todo.
func (r *Resolver) AllTodos(ctx context.Context) ([]*todoResolver, error) {
	var todos []*database.Todo
	err := r.db.Session(ctx, func(s *database.Session) (err error) {
		todos, err = s.ListTodos(ctx)
		return err
	})
	if err != nil {
		return nil, storageError(ctx, "allTodos", err)
	}
	return mapTodosToGraphQL(todos), nil
}

// GetTodoByID returns a single todo by id, or null.
func (r *Resolver) GetTodoByID(ctx context.Context, args struct{ ID int32 }) (*todoResolver, error) {
	var todo *database.Todo
	err := r.db.Session(ctx, func(s *database.Session) (err error) {
		todo, err = s.GetTodo(ctx, int64(args.ID))
		return err
	})
	if err != nil {
		return nil, storageError(ctx, "getTodoById", err)
	}
	return mapTodoToGraphQL(todo), nil
}

// GetTodoByTitle returns the todos with exactly the given title.
func (r *Resolver) GetTodoByTitle(ctx context.Context, args struct{ Title string }) ([]*todoResolver, error) {
	var todos []*database.Todo
	err := r.db.Session(ctx, func(s *database.Session) (err error) {
		todos, err = s.ListTodosByTitle(ctx, args.Title)
		return err
	})
	if err != nil {
		return nil, storageError(ctx, "getTodoByTitle", err)
	}
	return mapTodosToGraphQL(todos), nil
}

// GetTodoByCompleted returns the todos with the given completed flag.
func (r *Resolver) GetTodoByCompleted(ctx context.Context, args struct{ Completed bool }) ([]*todoResolver, error) {
	var todos []*database.Todo
	err := r.db.Session(ctx, func(s *database.Session) (err error) {
		todos, err = s.ListTodosByCompleted(ctx, args.Completed)
		return err
	})
	if err != nil {
		return nil, storageError(ctx, "getTodoByCompleted", err)
	}
	return mapTodosToGraphQL(todos), nil
}

// =============================================================================
// MUTATION RESOLVERS
// =============================================================================

// AddTodo creates a todo. New todos are never completed.
func (r *Resolver) AddTodo(ctx context.Context, args struct {
	Title       string
	Description string
}) (*todoResolver, error) {
	var todo *database.Todo
	err := r.db.Transaction(ctx, func(s *database.Session) (err error) {
		todo, err = s.CreateTodo(ctx, args.Title, args.Description)
		return err
	})
	if err != nil {
		return nil, storageError(ctx, "addTodo", err)
	}

	logging.FromContext(ctx).Debug("todo created", zap.Int64("id", todo.ID))
	return mapTodoToGraphQL(todo), nil
}

// UpdateTodo overwrites the supplied fields of a todo. An unknown id yields
// null rather than an error.
func (r *Resolver) UpdateTodo(ctx context.Context, args struct {
	ID          int32
	Title       *string
	Description *string
	Completed   *bool
}) (*todoResolver, error) {
	patch := database.TodoPatch{
		Title:       args.Title,
		Description: args.Description,
		Completed:   args.Completed,
	}

	var todo *database.Todo
	err := r.db.Transaction(ctx, func(s *database.Session) (err error) {
		todo, err = s.UpdateTodo(ctx, int64(args.ID), patch)
		return err
	})
	if err != nil {
		return nil, storageError(ctx, "updateTodo", err)
	}
	if todo == nil {
		logging.FromContext(ctx).Debug("update of unknown todo", zap.Int32("id", args.ID))
	}
	return mapTodoToGraphQL(todo), nil
}

// DeleteTodo removes a todo and reports whether it existed.
func (r *Resolver) DeleteTodo(ctx context.Context, args struct{ ID int32 }) (bool, error) {
	var deleted bool
	err := r.db.Transaction(ctx, func(s *database.Session) (err error) {
		deleted, err = s.DeleteTodo(ctx, int64(args.ID))
		return err
	})
	if err != nil {
		return false, storageError(ctx, "deleteTodo", err)
	}
	return deleted, nil
}

// =============================================================================
// TYPE RESOLVERS
// =============================================================================

// todoResolver resolves the fields of the ToDo type.
type todoResolver struct {
	todo *database.Todo
}

func (t *todoResolver) ID() int32           { return int32(t.todo.ID) }
func (t *todoResolver) Title() string       { return t.todo.Title }
func (t *todoResolver) Description() string { return t.todo.Description }
func (t *todoResolver) Completed() bool     { return t.todo.Completed }

func mapTodoToGraphQL(todo *database.Todo) *todoResolver {
	if todo == nil {
		return nil
	}
	return &todoResolver{todo: todo}
}

func mapTodosToGraphQL(todos []*database.Todo) []*todoResolver {
	result := make([]*todoResolver, len(todos))
	for i, todo := range todos {
		result[i] = mapTodoToGraphQL(todo)
	}
	return result
}
