// Package workspace gives the automations access to the checked-out
// repository files.
package workspace

import "errors"

var (
	// ErrOutsideRoot is returned for absolute paths and paths that climb out of the root
	ErrOutsideRoot = errors.New("path escapes the workspace root")
	// ErrNotExist is returned by Overwrite when the target file is missing
	ErrNotExist = errors.New("file does not exist in the workspace")
)

// Document is a documentation file of the workspace
type Document struct {
	Path     string `json:"path"` // slash separated, relative to the root
	Language string `json:"language,omitempty"`
	Content  string `json:"content"`
	// Truncated is set when Content holds only an excerpt of the file
	Truncated bool `json:"truncated,omitempty"`
}
