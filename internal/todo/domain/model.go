package domain

import (
	"strings"
	"time"
)

// TodoList is a named list owned by one user.
type TodoList struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TodoItem is a task inside a list. Only Completed is ever changed after creation.
type TodoItem struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskDraft is an item that has not been committed yet.
type TaskDraft struct {
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDraft returns an uncompleted draft. There is no way to build a completed one.
func NewDraft(text string, at time.Time) TaskDraft {
	return TaskDraft{Text: text, CreatedAt: at}
}

// Blank reports whether s is empty after trimming whitespace.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
