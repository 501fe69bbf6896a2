// Package labeler suggests labels for issues and pull requests from a fixed
// allow-list.
package labeler

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

// ItemType distinguishes issues from pull requests
type ItemType string

const (
	ItemIssue       ItemType = "issue"
	ItemPullRequest ItemType = "pull_request"
)

// ParseItemType accepts the event names used by CI workflows
func ParseItemType(s string) (ItemType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "issue", "issues":
		return ItemIssue, nil
	case "pull_request", "pull-request", "pr", "pull_request_target":
		return ItemPullRequest, nil
	default:
		return "", fmt.Errorf("unknown item type %q, expected issue or pull_request", s)
	}
}

// label returns the human form used in prompts
func (t ItemType) label() string {
	if t == ItemPullRequest {
		return "pull request"
	}
	return "issue"
}

// Items is the hosting platform capability the labeler needs
type Items interface {
	Issue(ctx context.Context, number int) (*github.Issue, error)
	PullRequestDiff(ctx context.Context, number int) (string, error)
	AddLabels(ctx context.Context, number int, labels []string) error
}

// Input describes the item to label
type Input struct {
	Type   ItemType
	Number int
	Title  string
	Body   string
}

// Options tune a run
type Options struct {
	DryRun        bool
	ContextBudget int
	Allowed       []string
}

// Result is the outcome of a run
type Result struct {
	Suggested []string
	Applied   []string
	Skipped   bool // nothing to classify
}

// Service runs the smart labeler
type Service struct {
	items     Items
	model     llm.Client
	extractor *extractor.Extractor
	opts      Options
	logger    *loggy.Logger
}

// NewService creates a new smart labeler
func NewService(items Items, model llm.Client, ex *extractor.Extractor, opts Options, logger *loggy.Logger) *Service {
	if logger == nil {
		logger = loggy.NewNoopLogger()
	}
	if ex == nil {
		ex = extractor.New(extractor.Balanced, logger)
	}
	if opts.ContextBudget <= 0 {
		opts.ContextBudget = prompt.DefaultBudget
	}
	return &Service{items: items, model: model, extractor: ex, opts: opts, logger: logger}
}

// Run suggests and applies labels for one item
func (s *Service) Run(ctx context.Context, in Input) (*Result, error) {
	logger := s.logger.With("item_type", string(in.Type), "number", in.Number)
	result := &Result{Suggested: []string{}, Applied: []string{}}

	var content string
	switch in.Type {
	case ItemPullRequest:
		diff, err := s.items.PullRequestDiff(ctx, in.Number)
		if err != nil {
			return nil, fmt.Errorf("fetching diff: %w", err)
		}
		content = diff
	case ItemIssue:
		if in.Title == "" && in.Body == "" {
			issue, err := s.items.Issue(ctx, in.Number)
			if err != nil {
				return nil, fmt.Errorf("fetching issue: %w", err)
			}
			in.Title, in.Body = issue.Title, issue.Body
		}
		content = strings.TrimSpace(in.Title + "\n\n" + in.Body)
	default:
		return nil, fmt.Errorf("unknown item type %q", in.Type)
	}

	if strings.TrimSpace(content) == "" {
		logger.Info("Nothing to classify, no labels applied")
		result.Skipped = true
		return result, nil
	}

	content, truncated := prompt.Truncate(content, s.opts.ContextBudget)
	if truncated {
		logger.Info("Content truncated to fit the context budget", "budget", s.opts.ContextBudget)
	}

	title := in.Title
	if in.Type == ItemIssue {
		// The title is already part of the content
		title = ""
	}
	p, err := prompt.Labels(in.Type.label(), title, content, s.opts.Allowed)
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
		return nil, fmt.Errorf("generating labels: %w", err)
	}

	result.Suggested = extractor.DecodeArray[string](s.extractor, resp.Content)
	result.Applied = FilterAllowed(result.Suggested, s.opts.Allowed)

	if len(result.Applied) == 0 {
		logger.Info("No labels suggested", "suggested", result.Suggested)
		return result, nil
	}

	if s.opts.DryRun {
		logger.Info("Dry run, labels not applied", "labels", result.Applied)
		return result, nil
	}

	if err := s.items.AddLabels(ctx, in.Number, result.Applied); err != nil {
		return nil, fmt.Errorf("adding labels: %w", err)
	}
	return result, nil
}

// FilterAllowed keeps the suggestions present in allowed, compared case
// insensitively and returned in their allow-list spelling without duplicates
func FilterAllowed(suggested, allowed []string) []string {
	canonical := make(map[string]string, len(allowed))
	for _, a := range allowed {
		canonical[strings.ToLower(strings.TrimSpace(a))] = a
	}

	out := []string{}
	seen := make(map[string]bool)
	for _, s := range suggested {
		name, ok := canonical[strings.ToLower(strings.TrimSpace(s))]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
