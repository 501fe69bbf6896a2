// Package prompt assembles the model prompts for each automation task
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/tildaslashalef/ghmind/internal/github"
	"github.com/tildaslashalef/ghmind/internal/workspace"
)

// Prompt is a system instruction, a user message and the response schema
// the answer is expected to follow
type Prompt struct {
	System string
	User   string
	Schema map[string]any
}

const driftSystemTemplate = `You are a meticulous technical writer keeping a repository's documentation in sync with its code.
You receive a pull request diff and the current content of the documentation files.
Decide which documentation files no longer describe the code correctly after the change.

Respond **ONLY** with a JSON array. Each element **MUST** be:
{"file_path": "path of an existing documentation file", "updated_content": "the complete new file content"}

IMPORTANT:
- Only use file paths from the documentation provided. Never invent new files.
- "updated_content" replaces the whole file, so include every unchanged section too.
- Files marked as excerpts were cut to fit. Never propose updates for them.
- If the documentation is still accurate, respond with an empty array: []`

const driftUserTemplate = `## Pull Request
- Title: {{if .Title}}{{.Title}}{{else}}(none){{end}}
- Author: {{if .Author}}@{{.Author}}{{else}}unknown{{end}}

## Diff
{{.Diff}}

## Documentation Files
{{range .Docs}}
### {{.Path}}{{if .Truncated}} (excerpt){{end}}
{{.Content}}
{{else}}
(no documentation files found)
{{end}}`

const improveSystemTemplate = `You are an experienced open-source maintainer helping contributors write clear issues.
Rewrite the issue so that it has a concise, specific title and a well structured markdown body
(context, steps to reproduce or motivation, expected and actual behaviour where relevant).
Start the title with one fitting emoji (🐛 for bugs, ✨ for features) and write it in the imperative mood.
Keep every fact the author gave. Do not invent details. Translate to English when needed.
End the body with a short footer crediting the original author.

Respond **ONLY** with a JSON object:
{"title": "improved title", "body": "improved markdown body"}`

const improveUserTemplate = `Issue author: {{.Author}}

## Title
{{.Title}}

## Body
{{if .Body}}{{.Body}}{{else}}(empty){{end}}`

const beautifySystemTemplate = `You are a repository maintainer tidying up issue labels.
Propose a consistent naming scheme, short descriptions and a harmonious colour palette for every label.

Respond **ONLY** with a JSON array, one element per existing label:
{"original_name": "current label name", "new_name": "proposed name", "description": "short description", "color": "6 digit hex colour without #"}

IMPORTANT:
- "original_name" **MUST** be copied exactly from the list below.
- Keep a label's name when it is already good.`

const beautifyUserTemplate = `## Existing Labels
{{range .Labels}}- {{.Name}} (color: {{if .Color}}{{.Color}}{{else}}none{{end}}){{if .Description}}: {{.Description}}{{end}}
{{end}}`

const labelerSystemTemplate = `You are a triage assistant labelling {{.Kind}}s.
Choose the labels that apply from this list and from nothing else:
{{range .Allowed}}- {{.}}
{{end}}
Respond **ONLY** with a JSON array of label names, for example ["bug"]. Respond with [] when none apply.`

const labelerUserTemplate = `## Title
{{if .Title}}{{.Title}}{{else}}(none){{end}}

## {{if eq .Kind "pull request"}}Diff{{else}}Body{{end}}
{{.Content}}`

var templates = template.Must(template.New("prompts").Parse(""))

func init() {
	for name, text := range map[string]string{
		"drift.system":    driftSystemTemplate,
		"drift.user":      driftUserTemplate,
		"improve.system":  improveSystemTemplate,
		"improve.user":    improveUserTemplate,
		"beautify.system": beautifySystemTemplate,
		"beautify.user":   beautifyUserTemplate,
		"labeler.system":  labelerSystemTemplate,
		"labeler.user":    labelerUserTemplate,
	} {
		template.Must(templates.New(name).Parse(text))
	}
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func build(task string, data any, schema map[string]any) (*Prompt, error) {
	system, err := render(task+".system", data)
	if err != nil {
		return nil, err
	}
	user, err := render(task+".user", data)
	if err != nil {
		return nil, err
	}
	return &Prompt{System: system, User: user, Schema: schema}, nil
}

// Drift builds the documentation-drift prompt. diff and docs are expected
// to be truncated already.
func Drift(title, author, diff string, docs []workspace.Document) (*Prompt, error) {
	return build("drift", map[string]any{
		"Title":  title,
		"Author": author,
		"Diff":   diff,
		"Docs":   docs,
	}, arrayOf(objectSchema("file_path", "updated_content")))
}

// Improve builds the issue improvement prompt
func Improve(title, body, author string) (*Prompt, error) {
	if author == "" {
		author = "unknown"
	}
	return build("improve", map[string]any{
		"Title":  title,
		"Body":   body,
		"Author": author,
	}, objectSchema("title", "body"))
}

// Beautify builds the label beautification prompt
func Beautify(labels []github.Label) (*Prompt, error) {
	return build("beautify", map[string]any{
		"Labels": labels,
	}, arrayOf(objectSchema("original_name", "new_name", "description", "color")))
}

// Labels builds the smart labeler prompt. kind is "issue" or "pull request".
func Labels(kind, title, content string, allowed []string) (*Prompt, error) {
	return build("labeler", map[string]any{
		"Kind":    kind,
		"Title":   title,
		"Content": content,
		"Allowed": allowed,
	}, arrayOf(map[string]any{"type": "STRING"}))
}

func arrayOf(items map[string]any) map[string]any {
	return map[string]any{"type": "ARRAY", "items": items}
}

// objectSchema describes an object whose listed properties are all required strings
func objectSchema(fields ...string) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f] = map[string]any{"type": "STRING"}
	}
	return map[string]any{
		"type":       "OBJECT",
		"properties": props,
		"required":   fields,
	}
}
