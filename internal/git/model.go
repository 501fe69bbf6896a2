// Package git commits and pushes documentation updates in the CI checkout
package git

import "time"

// ChangeType represents the type of change to a file
type ChangeType string

const (
	// ChangeTypeAdded represents a file that was added
	ChangeTypeAdded ChangeType = "added"
	// ChangeTypeModified represents a file that was modified
	ChangeTypeModified ChangeType = "modified"
	// ChangeTypeDeleted represents a file that was deleted
	ChangeTypeDeleted ChangeType = "deleted"
	// ChangeTypeRenamed represents a file that was renamed
	ChangeTypeRenamed ChangeType = "renamed"
	// ChangeTypeUntracked represents a file git does not know about yet
	ChangeTypeUntracked ChangeType = "untracked"
)

// ChangedFile represents a worktree path with uncommitted changes
type ChangedFile struct {
	Path       string     `json:"path"`
	ChangeType ChangeType `json:"change_type"`
}

// Commit represents a Git commit
type Commit struct {
	Hash      string    `json:"hash"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Identity is the author recorded on automation commits
type Identity struct {
	Name  string
	Email string
}
