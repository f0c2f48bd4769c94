package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Placeholders are numbered in order of first appearance so the same SQL
// binds correctly on PostgreSQL and SQLite.

var todoSelect = "SELECT " + strings.Join(TodoColumns, ", ") + " FROM " + TodosTable

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*Todo, error) {
	var t Todo
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Completed); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Session) listTodos(ctx context.Context, what, where string, args ...any) ([]*Todo, error) {
	query := todoSelect
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}
	defer rows.Close()

	todos := []*Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}
	return todos, nil
}

// =============================================================================
// READS
// =============================================================================

// ListTodos returns every todo ordered by id.
func (s *Session) ListTodos(ctx context.Context) ([]*Todo, error) {
	return s.listTodos(ctx, "todos", "")
}

// GetTodo returns the todo with id, or nil if there is none.
func (s *Session) GetTodo(ctx context.Context, id int64) (*Todo, error) {
	row := s.q.QueryRowContext(ctx, todoSelect+" WHERE id = $1", id)

	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get todo %d: %w", id, err)
	}
	return t, nil
}

// ListTodosByTitle returns the todos whose title equals title exactly.
func (s *Session) ListTodosByTitle(ctx context.Context, title string) ([]*Todo, error) {
	return s.listTodos(ctx, "todos by title", "title = $1", title)
}

// ListTodosByCompleted returns the todos whose completed flag equals completed.
func (s *Session) ListTodosByCompleted(ctx context.Context, completed bool) ([]*Todo, error) {
	return s.listTodos(ctx, "todos by completed", "completed = $1", completed)
}

// =============================================================================
// WRITES
// =============================================================================

// CreateTodo inserts a new, not yet completed todo and returns it with its
// generated id.
func (s *Session) CreateTodo(ctx context.Context, title, description string) (*Todo, error) {
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO todos (title, description, completed)
		VALUES ($1, $2, $3)
		RETURNING id, title, description, completed
	`, title, description, false)

	t, err := scanTodo(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}
	return t, nil
}

// UpdateTodo overwrites the fields set in patch and returns the updated todo,
// or nil if no todo has id.
func (s *Session) UpdateTodo(ctx context.Context, id int64, patch TodoPatch) (*Todo, error) {
	if patch.Empty() {
		return s.GetTodo(ctx, id)
	}

	row := s.q.QueryRowContext(ctx, `
		UPDATE todos
		SET title = COALESCE($1, title),
		    description = COALESCE($2, description),
		    completed = COALESCE($3, completed)
		WHERE id = $4
		RETURNING id, title, description, completed
	`, patch.Title, patch.Description, patch.Completed, id)

	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update todo %d: %w", id, err)
	}
	return t, nil
}

// DeleteTodo removes the todo with id and reports whether it existed.
func (s *Session) DeleteTodo(ctx context.Context, id int64) (bool, error) {
	result, err := s.q.ExecContext(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete todo %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}
