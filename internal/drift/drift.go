// Package drift detects documentation that a pull request made stale and
// rewrites it.
package drift

import (
	"context"
	"fmt"
	"strings"

	"github.com/tildaslashalef/ghmind/internal/extractor"
	"github.com/tildaslashalef/ghmind/internal/github"
	"github.com/tildaslashalef/ghmind/internal/llm"
	"github.com/tildaslashalef/ghmind/internal/loggy"
	"github.com/tildaslashalef/ghmind/internal/prompt"
	"github.com/tildaslashalef/ghmind/internal/workspace"
)

const noDiffComment = "📝 Documentation check skipped: this pull request has no diff."

// PullRequests is the hosting platform capability the detector needs
type PullRequests interface {
	Issue(ctx context.Context, number int) (*github.Issue, error)
	PullRequestDiff(ctx context.Context, number int) (string, error)
	Comment(ctx context.Context, number int, body string) error
}

// Files is the checkout the documentation lives in
type Files interface {
	Clean(path string) (string, error)
	Exists(path string) bool
	Read(path string) (string, error)
	Overwrite(path, content string) error
	DocumentationFiles(limit int) ([]workspace.Document, error)
}

// Committer records applied updates in version control
type Committer interface {
	CommitFiles(ctx context.Context, paths []string, message string) (string, error)
	Push(ctx context.Context) error
}

// Options tune a run
type Options struct {
	DryRun        bool
	Push          bool
	ContextBudget int // diff budget in characters
	DocsBudget    int // combined documentation budget in characters
	MaxDocFiles   int
}

// SkipReason says why a proposed update was not applied
type SkipReason string

const (
	SkipMissing   SkipReason = "file does not exist"
	SkipUnchanged SkipReason = "content unchanged"
	SkipInvalid   SkipReason = "invalid path"
	SkipDuplicate SkipReason = "duplicate update"
	SkipEmpty     SkipReason = "empty content"
	SkipPartial   SkipReason = "only an excerpt was shown to the model"
)

// Input identifies the pull request. Title and author come from the
// triggering event and are fetched when both are empty.
type Input struct {
	Number int
	Title  string
	Author string
}

// Skipped is a proposed update that was not applied
type Skipped struct {
	Path   string
	Reason SkipReason
}

// Result is the outcome of a run
type Result struct {
	Proposed []extractor.FileUpdate
	Applied  []string
	Skipped  []Skipped
	Commit   string
	Comment  string
	DryRun   bool
}

// Service runs the documentation drift check
type Service struct {
	prs       PullRequests
	files     Files
	committer Committer
	model     llm.Client
	extractor *extractor.Extractor
	opts      Options
	logger    *loggy.Logger
}

// NewService creates a new drift service
func NewService(prs PullRequests, files Files, committer Committer, model llm.Client, ex *extractor.Extractor, opts Options, logger *loggy.Logger) *Service {
	if logger == nil {
		logger = loggy.NewNoopLogger()
	}
	if ex == nil {
		ex = extractor.New(extractor.Balanced, logger)
	}
	if opts.ContextBudget <= 0 {
		opts.ContextBudget = prompt.DefaultBudget
	}
	return &Service{
		prs:       prs,
		files:     files,
		committer: committer,
		model:     model,
		extractor: ex,
		opts:      opts,
		logger:    logger,
	}
}

// Run checks a pull request for documentation drift
func (s *Service) Run(ctx context.Context, in Input) (*Result, error) {
	number := in.Number
	logger := s.logger.With("pr", number)
	result := &Result{DryRun: s.opts.DryRun}

	if in.Title == "" && in.Author == "" {
		pr, err := s.prs.Issue(ctx, number)
		if err != nil {
			// Soft failure: title and author only enrich the prompt
			logger.Warn("Failed to fetch pull request details", "error", err)
		} else {
			in.Title, in.Author = pr.Title, pr.Author
		}
	}

	diff, err := s.prs.PullRequestDiff(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("fetching diff: %w", err)
	}

	if strings.TrimSpace(diff) == "" {
		logger.Info("Pull request has no diff, skipping documentation check")
		return result, s.comment(ctx, number, noDiffComment, result)
	}

	diff, truncated := prompt.Truncate(diff, s.opts.ContextBudget)
	if truncated {
		logger.Info("Diff truncated to fit the context budget", "budget", s.opts.ContextBudget)
	}

	docs, err := s.files.DocumentationFiles(s.opts.MaxDocFiles)
	if err != nil {
		// Soft failure: the model can still propose updates from the diff alone
		logger.Warn("Failed to collect documentation files", "error", err)
		docs = nil
	}
	docs = prompt.FitDocuments(docs, s.opts.DocsBudget)
	partial := s.excerpts(docs)
	logger.Debug("Collected documentation context", "files", len(docs), "excerpts", len(partial))

	p, err := prompt.Drift(in.Title, in.Author, diff, docs)
	if err != nil {
		return nil, err
	}

	shape := extractor.Array
	resp, err := s.model.Generate(ctx, llm.GenerateRequest{
		Prompt: p.User,
		System: p.System,
		Shape:  &shape,
		Schema: p.Schema,
	})
	if err != nil {
		return nil, fmt.Errorf("generating documentation updates: %w", err)
	}

	result.Proposed = extractor.DecodeArray[extractor.FileUpdate](s.extractor, resp.Content)
	logger.Info("Model proposed documentation updates", "count", len(result.Proposed))

	if s.opts.DryRun {
		result.Applied, result.Skipped = s.apply(result.Proposed, partial, false)
		logger.Info("Dry run, no files written", "would_apply", len(result.Applied))
		return result, nil
	}

	result.Applied, result.Skipped = s.apply(result.Proposed, partial, true)
	for _, sk := range result.Skipped {
		logger.Info("Skipped documentation update", "path", sk.Path, "reason", sk.Reason)
	}

	if len(result.Applied) == 0 {
		logger.Info("No documentation drift detected")
		return result, s.comment(ctx, number, upToDateComment(in.Author), result)
	}

	result.Commit, err = s.committer.CommitFiles(ctx, result.Applied, commitMessage(number))
	if err != nil {
		return nil, fmt.Errorf("committing documentation updates: %w", err)
	}
	if s.opts.Push && result.Commit != "" {
		if err := s.committer.Push(ctx); err != nil {
			return nil, fmt.Errorf("pushing documentation updates: %w", err)
		}
	}

	return result, s.comment(ctx, number, summaryComment(result), result)
}

func (s *Service) comment(ctx context.Context, number int, body string, result *Result) error {
	result.Comment = body
	if s.opts.DryRun {
		return nil
	}
	if err := s.prs.Comment(ctx, number, body); err != nil {
		return fmt.Errorf("posting comment: %w", err)
	}
	return nil
}

// ApplyUpdates overwrites the files named by updates. Only files that
// already exist are written, and only when the new content is not blank and
// differs from the current one. The applied paths are returned cleaned, in
// input order and without duplicates.
func (s *Service) ApplyUpdates(updates []extractor.FileUpdate) ([]string, []Skipped) {
	return s.apply(updates, nil, true)
}

// excerpts returns the cleaned paths of docs the model only saw in part
func (s *Service) excerpts(docs []workspace.Document) map[string]bool {
	partial := make(map[string]bool)
	for _, d := range docs {
		if !d.Truncated {
			continue
		}
		if p, err := s.files.Clean(d.Path); err == nil {
			partial[p] = true
		}
	}
	return partial
}

func (s *Service) apply(updates []extractor.FileUpdate, partial map[string]bool, write bool) ([]string, []Skipped) {
	applied := []string{}
	var skipped []Skipped
	seen := make(map[string]bool)

	for _, u := range updates {
		path, err := s.files.Clean(u.FilePath)
		switch {
		case err != nil:
			skipped = append(skipped, Skipped{Path: u.FilePath, Reason: SkipInvalid})
			continue
		case seen[path]:
			skipped = append(skipped, Skipped{Path: path, Reason: SkipDuplicate})
			continue
		case strings.TrimSpace(u.UpdatedContent) == "":
			skipped = append(skipped, Skipped{Path: path, Reason: SkipEmpty})
			continue
		case partial[path]:
			skipped = append(skipped, Skipped{Path: path, Reason: SkipPartial})
			continue
		case !s.files.Exists(path):
			skipped = append(skipped, Skipped{Path: path, Reason: SkipMissing})
			continue
		}

		current, err := s.files.Read(path)
		if err == nil && current == u.UpdatedContent {
			skipped = append(skipped, Skipped{Path: path, Reason: SkipUnchanged})
			continue
		}

		if write {
			if err := s.files.Overwrite(path, u.UpdatedContent); err != nil {
				s.logger.Warn("Failed to write documentation update", "path", path, "error", err)
				skipped = append(skipped, Skipped{Path: path, Reason: SkipInvalid})
				continue
			}
			s.logger.Info("Updated documentation file", "path", path)
		}

		seen[path] = true
		applied = append(applied, path)
	}

	return applied, skipped
}

func commitMessage(number int) string {
	return fmt.Sprintf("docs: sync documentation with #%d", number)
}

func upToDateComment(author string) string {
	msg := "📝 Documentation check: the documentation is up to date with this change."
	if author != "" {
		msg += fmt.Sprintf(" Great job @%s! 👏", author)
	}
	return msg
}

func summaryComment(result *Result) string {
	var b strings.Builder
	b.WriteString("📝 Documentation drift detected. Updated files:\n\n")
	for _, p := range result.Applied {
		fmt.Fprintf(&b, "- `%s`\n", p)
	}
	if result.Commit != "" {
		fmt.Fprintf(&b, "\nCommitted in %s.", result.Commit)
	}
	return b.String()
}
