// Package extractor recovers JSON payloads embedded in free-form LLM answers
package extractor

// FileUpdate is one documentation rewrite proposed by the drift detector prompt
type FileUpdate struct {
	FilePath       string `json:"file_path"`
	UpdatedContent string `json:"updated_content"`
}

// IssueDraft is the rewritten title/body pair proposed for an issue
type IssueDraft struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// LabelChange describes how one existing label should be renamed or restyled
type LabelChange struct {
	OriginalName string `json:"original_name"`
	NewName      string `json:"new_name"`
	Description  string `json:"description"`
	Color        string `json:"color"`
}
