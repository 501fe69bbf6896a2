// Package improve rewrites issue titles and bodies into clearer reports
package improve

import (
	"context"
	"fmt"
	"strings"

	"github.com/tildaslashalef/ghmind/internal/extractor"
	"github.com/tildaslashalef/ghmind/internal/github"
	"github.com/tildaslashalef/ghmind/internal/llm"
	"github.com/tildaslashalef/ghmind/internal/loggy"
	"github.com/tildaslashalef/ghmind/internal/prompt"
)

// Issues is the hosting platform capability the improver needs
type Issues interface {
	Issue(ctx context.Context, number int) (*github.Issue, error)
	UpdateIssue(ctx context.Context, number int, title, body string) error
	Comment(ctx context.Context, number int, body string) error
}

// Input describes the issue as delivered by the triggering event. Empty
// title and body are fetched from the API.
type Input struct {
	Number int
	Title  string
	Body   string
	Author string
}

// Options tune a run
type Options struct {
	DryRun        bool
	ContextBudget int
}

// Result is the outcome of a run
type Result struct {
	Original extractor.IssueDraft
	Proposed extractor.IssueDraft
	Changed  bool
	Applied  bool
	Comment  string
}

// Service improves issue descriptions
type Service struct {
	issues    Issues
	model     llm.Client
	extractor *extractor.Extractor
	opts      Options
	logger    *loggy.Logger
}

// NewService creates a new issue improver
func NewService(issues Issues, model llm.Client, ex *extractor.Extractor, opts Options, logger *loggy.Logger) *Service {
	if logger == nil {
		logger = loggy.NewNoopLogger()
	}
	if ex == nil {
		ex = extractor.New(extractor.Balanced, logger)
	}
	if opts.ContextBudget <= 0 {
		opts.ContextBudget = prompt.DefaultBudget
	}
	return &Service{issues: issues, model: model, extractor: ex, opts: opts, logger: logger}
}

// Run proposes a better title and body for the issue and applies it
func (s *Service) Run(ctx context.Context, in Input) (*Result, error) {
	logger := s.logger.With("issue", in.Number)

	if in.Title == "" && in.Body == "" {
		issue, err := s.issues.Issue(ctx, in.Number)
		if err != nil {
			return nil, fmt.Errorf("fetching issue: %w", err)
		}
		in.Title, in.Body = issue.Title, issue.Body
		if in.Author == "" {
			in.Author = issue.Author
		}
	}

	original := extractor.IssueDraft{Title: in.Title, Body: in.Body}
	result := &Result{Original: original, Proposed: original}

	body, truncated := prompt.Truncate(in.Body, s.opts.ContextBudget)
	if truncated {
		logger.Info("Issue body truncated to fit the context budget", "budget", s.opts.ContextBudget)
	}

	p, err := prompt.Improve(in.Title, body, in.Author)
	if err != nil {
		return nil, err
	}

	shape := extractor.Object
	resp, err := s.model.Generate(ctx, llm.GenerateRequest{
		Prompt: p.User,
		System: p.System,
		Shape:  &shape,
		Schema: p.Schema,
	})
	if err != nil {
		return nil, fmt.Errorf("generating issue improvement: %w", err)
	}

	proposed := extractor.DecodeObject(s.extractor, resp.Content, original)
	// Blank fields keep the author's text
	if strings.TrimSpace(proposed.Title) == "" {
		proposed.Title = original.Title
	}
	if strings.TrimSpace(proposed.Body) == "" {
		proposed.Body = original.Body
	}
	result.Proposed = proposed
	result.Changed = proposed != original

	if !result.Changed {
		logger.Info("No improvement proposed, leaving the issue as is")
		return result, nil
	}

	result.Comment = authorComment(in.Author)
	if s.opts.DryRun {
		logger.Info("Dry run, issue not updated")
		return result, nil
	}

	if err := s.issues.UpdateIssue(ctx, in.Number, proposed.Title, proposed.Body); err != nil {
		return nil, fmt.Errorf("updating issue: %w", err)
	}
	result.Applied = true

	if err := s.issues.Comment(ctx, in.Number, result.Comment); err != nil {
		return nil, fmt.Errorf("posting comment: %w", err)
	}

	logger.Info("Issue improved", "title_changed", proposed.Title != original.Title, "body_changed", proposed.Body != original.Body)
	return result, nil
}

func authorComment(author string) string {
	greeting := "Hi"
	if author != "" {
		greeting = "Hi @" + author
	}
	return greeting + ", thanks for the report! ✨ I polished the title and description to make this issue easier to triage. " +
		"The original text is preserved in the edit history."
}
