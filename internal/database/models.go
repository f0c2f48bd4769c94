package database

// Todo is a row of the todos table.
type Todo struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// TodoPatch carries the fields of an update. Nil fields keep their stored
// value.
type TodoPatch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// Empty reports whether the patch changes nothing.
func (p TodoPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// TodosTable is the table backing Todo.
const TodosTable = "todos"

// TodoColumns lists the columns of TodosTable in scan order.
var TodoColumns = []string{"id", "title", "description", "completed"}
